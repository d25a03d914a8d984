// Package types defines the data structures shared across the aggregator.
package types

type (
	// ContentBlock is one file's contribution to an aggregate document.
	ContentBlock struct {
		Path string `json:"path"`
		Body string `json:"body"`
	}

	// Document is the ordered sequence of blocks produced by one traversal.
	// Block order follows the traversal and is part of the output contract.
	Document struct {
		Blocks []ContentBlock `json:"blocks"`
	}

	// Artifact describes a written aggregate document.
	Artifact struct {
		Name   string `json:"name"`
		Path   string `json:"path"`
		Blocks int    `json:"blocks"`
		Bytes  int    `json:"bytes"`
	}
)

// Len returns the number of blocks in the document.
func (d Document) Len() int {
	return len(d.Blocks)
}

// Paths returns the block paths in document order.
func (d Document) Paths() []string {
	paths := make([]string, len(d.Blocks))
	for i, b := range d.Blocks {
		paths[i] = b.Path
	}
	return paths
}
