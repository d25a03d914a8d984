package main

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/taigrr/contextgen/internal/aggregator"
	"github.com/taigrr/contextgen/internal/document"
	"github.com/taigrr/contextgen/internal/pathfilter"
	"github.com/taigrr/contextgen/internal/types"
)

func handleGenerate(ctx context.Context, req *mcp.CallToolRequest, input GenerateInput) (*mcp.CallToolResult, GenerateOutput, error) {
	src, err := aggregator.ParseSource(input.GithubURL, input.LocalPath)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, GenerateOutput{}, err
	}
	if remote, ok := src.(types.RemoteSource); ok {
		src = resolveRef(remote, strings.TrimSpace(input.Ref), settings.GitHub.Ref)
	}

	cfg := settings
	if len(input.Include) > 0 {
		cfg.Include = input.Include
	}
	if len(input.Exclude) > 0 {
		cfg.Exclude = input.Exclude
	}

	filter, err := cfg.Validate()
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, GenerateOutput{}, err
	}
	agg, err := newAggregator(cfg, filter)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, GenerateOutput{}, err
	}

	artifact, content, err := agg.Generate(ctx, src, cfg.Output.Directory)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, GenerateOutput{}, err
	}

	out := GenerateOutput{
		Artifact: artifact.Path,
		Name:     artifact.Name,
		Blocks:   artifact.Blocks,
		Bytes:    artifact.Bytes,
	}
	if !input.Summary {
		out.Content = content
	}
	return nil, out, nil
}

func handleParse(ctx context.Context, req *mcp.CallToolRequest, input ParseInput) (*mcp.CallToolResult, ParseOutput, error) {
	doc, err := document.Parse(input.Content)
	if err != nil {
		return &mcp.CallToolResult{IsError: true}, ParseOutput{}, err
	}

	paths := doc.Paths()
	if len(input.Include) > 0 || len(input.Exclude) > 0 {
		filter, err := pathfilter.New(types.FilterConfig{Include: input.Include, Exclude: input.Exclude})
		if err != nil {
			return &mcp.CallToolResult{IsError: true}, ParseOutput{}, err
		}
		paths = filter.FilterPaths(paths)
	}

	return nil, ParseOutput{
		Blocks: doc.Len(),
		Paths:  paths,
	}, nil
}
