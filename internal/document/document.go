// Package document renders and parses aggregate documents.
//
// An aggregate document is a sequence of records of the form
//
//	File: <path>\n\n<body>\n\n
//
// concatenated in traversal order with no other separators.
package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/taigrr/contextgen/internal/types"
)

const (
	marker    = "File: "
	separator = "\n\n"
)

// ErrMalformed is returned by Parse when input is not a valid aggregate document.
var ErrMalformed = errors.New("malformed aggregate document")

// Render serializes doc to a string.
func Render(doc types.Document) string {
	var sb strings.Builder
	sb.Grow(Size(doc))
	for _, b := range doc.Blocks {
		writeBlock(&sb, b)
	}
	return sb.String()
}

// Size returns the length in bytes of the rendered document.
func Size(doc types.Document) int {
	n := 0
	for _, b := range doc.Blocks {
		n += len(marker) + len(b.Path) + len(separator) + len(b.Body) + len(separator)
	}
	return n
}

func writeBlock(sb *strings.Builder, b types.ContentBlock) {
	sb.WriteString(marker)
	sb.WriteString(b.Path)
	sb.WriteString(separator)
	sb.WriteString(b.Body)
	sb.WriteString(separator)
}

// Parse splits a rendered document back into its blocks. A body that
// itself contains "\n\nFile: " cannot be told apart from a record
// boundary and is split there.
func Parse(content string) (types.Document, error) {
	var doc types.Document
	rest := content

	for rest != "" {
		if !strings.HasPrefix(rest, marker) {
			return types.Document{}, fmt.Errorf("%w: expected %q at offset %d", ErrMalformed, marker, len(content)-len(rest))
		}
		rest = rest[len(marker):]

		end := strings.Index(rest, separator)
		if end == -1 {
			return types.Document{}, fmt.Errorf("%w: unterminated path", ErrMalformed)
		}
		path := rest[:end]
		rest = rest[end+len(separator):]

		var body string
		if next := strings.Index(rest, separator+marker); next != -1 {
			body = rest[:next]
			rest = rest[next+len(separator):]
		} else {
			if !strings.HasSuffix(rest, separator) {
				return types.Document{}, fmt.Errorf("%w: missing trailing separator after %s", ErrMalformed, path)
			}
			body = rest[:len(rest)-len(separator)]
			rest = ""
		}

		doc.Blocks = append(doc.Blocks, types.ContentBlock{Path: path, Body: body})
	}

	return doc, nil
}
