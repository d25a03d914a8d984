package github

import (
	"encoding/base64"
	"fmt"
	"regexp"

	"github.com/taigrr/contextgen/internal/types"
)

var nonBase64 = regexp.MustCompile(`[^A-Za-z0-9+/=]`)

// DecodeContent decodes a base64 file body as returned by the contents
// API. Characters outside the base64 alphabet, such as the line breaks
// GitHub inserts every 60 characters, are dropped first.
func DecodeContent(path, encoded string) (string, error) {
	cleaned := nonBase64.ReplaceAllString(encoded, "")
	data, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", &types.DecodeError{Path: path, Err: err}
	}
	return string(data), nil
}

func decodeFile(c Content) (string, error) {
	switch c.Encoding {
	case "", "base64":
		return DecodeContent(c.Path, c.Content)
	default:
		return "", &types.DecodeError{Path: c.Path, Err: fmt.Errorf("unsupported encoding %q", c.Encoding)}
	}
}
