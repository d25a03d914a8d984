package main

import "github.com/modelcontextprotocol/go-sdk/mcp"

type (
	// GenerateInput contains parameters for aggregating a source.
	GenerateInput struct {
		GithubURL string   `json:"githubUrl,omitempty" jsonschema:"GitHub repository URL or owner/repo (mutually exclusive with localPath)"`
		LocalPath string   `json:"localPath,omitempty" jsonschema:"Local directory to aggregate (mutually exclusive with githubUrl)"`
		Ref       string   `json:"ref,omitempty" jsonschema:"Branch, tag or commit for GitHub sources (default: repository default branch)"`
		Include   []string `json:"include,omitempty" jsonschema:"Glob patterns of files to include; replaces the configured list"`
		Exclude   []string `json:"exclude,omitempty" jsonschema:"Glob patterns of files or directories to exclude; replaces the configured list"`
		Summary   bool     `json:"summary,omitempty" jsonschema:"Omit the document content from the result (default: false)"`
	}

	// GenerateOutput contains the result of aggregating a source.
	GenerateOutput struct {
		Artifact string `json:"artifact"`
		Name     string `json:"name"`
		Blocks   int    `json:"blocks"`
		Bytes    int    `json:"bytes"`
		Content  string `json:"content,omitempty"`
	}

	// ParseInput contains an aggregate document to split.
	ParseInput struct {
		Content string   `json:"content" jsonschema:"Aggregate document made of 'File: <path>' records"`
		Include []string `json:"include,omitempty" jsonschema:"Only list paths matching these glob patterns"`
		Exclude []string `json:"exclude,omitempty" jsonschema:"Omit paths matching these glob patterns"`
	}

	// ParseOutput contains the block paths recovered from a document.
	// Blocks counts every record; Paths holds only those passing the filter.
	ParseOutput struct {
		Blocks int      `json:"blocks"`
		Paths  []string `json:"paths"`
	}
)

func registerTools(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate",
		Description: "Aggregate a GitHub repository or local directory into one markdown document. Files are filtered by include/exclude globs and written as 'File: <path>' records. Returns the artifact path and the document.",
	}, handleGenerate)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "parse",
		Description: "Split an aggregate document back into its records and list the file paths it contains, in order. Optional include/exclude globs narrow the listed paths.",
	}, handleParse)
}
