// Package pathfilter decides which paths of a source tree are aggregated.
package pathfilter

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/taigrr/contextgen/internal/types"
)

// PathFilter evaluates slash-separated relative paths against ordered
// include and exclude globs. It is immutable once built and safe for
// concurrent use.
type PathFilter struct {
	includePatterns []string
	excludePatterns []string
}

// New compiles a PathFilter from the given configuration. Malformed
// patterns are reported as a *types.ConfigurationError.
func New(config types.FilterConfig) (*PathFilter, error) {
	include, err := compile("include", config.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := compile("exclude", config.Exclude)
	if err != nil {
		return nil, err
	}
	return &PathFilter{
		includePatterns: include,
		excludePatterns: exclude,
	}, nil
}

// MustNew is like New but panics on a malformed pattern.
func MustNew(config types.FilterConfig) *PathFilter {
	pf, err := New(config)
	if err != nil {
		panic(err)
	}
	return pf
}

func compile(field string, patterns []string) ([]string, error) {
	var out []string
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = strings.ReplaceAll(p, "\\", "/")
		if !doublestar.ValidatePattern(p) {
			return nil, &types.ConfigurationError{
				Field: field,
				Err:   fmt.Errorf("malformed glob %q", p),
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// Normalize converts a relative path to the form patterns are matched
// against: forward slashes, no leading "./" or "/".
func Normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}
	return strings.TrimLeft(p, "/")
}

// ShouldInclude reports whether relPath passes the filter. With dirCheck
// set, only exclude patterns apply: directories are never include-gated.
func (pf *PathFilter) ShouldInclude(relPath string, dirCheck bool) bool {
	p := Normalize(relPath)

	if matchAny(pf.excludePatterns, p) {
		return false
	}
	if dirCheck || len(pf.includePatterns) == 0 {
		return true
	}
	return matchAny(pf.includePatterns, p)
}

// IncludeFile applies the full include/exclude rule to a file path.
func (pf *PathFilter) IncludeFile(relPath string) bool {
	return pf.ShouldInclude(relPath, false)
}

// ExcludeDir reports whether traversal must not descend into relPath.
func (pf *PathFilter) ExcludeDir(relPath string) bool {
	return !pf.ShouldInclude(relPath, true)
}

// FilterPaths filters a slice of file paths to only include allowed ones.
func (pf *PathFilter) FilterPaths(paths []string) []string {
	allowed := make([]string, 0, len(paths))
	for _, p := range paths {
		if pf.IncludeFile(p) {
			allowed = append(allowed, p)
		}
	}
	return allowed
}

// Include returns a copy of the compiled include patterns.
func (pf *PathFilter) Include() []string {
	return append([]string(nil), pf.includePatterns...)
}

// Exclude returns a copy of the compiled exclude patterns.
func (pf *PathFilter) Exclude() []string {
	return append([]string(nil), pf.excludePatterns...)
}

func matchAny(patterns []string, p string) bool {
	for _, pattern := range patterns {
		if match(pattern, p) {
			return true
		}
	}
	return false
}

// match tests pattern against the whole path. A pattern without a slash
// also matches the last path segment, so "*.go" selects "cmd/main.go".
func match(pattern, p string) bool {
	if ok, _ := doublestar.Match(pattern, p); ok {
		return true
	}
	if strings.Contains(pattern, "/") || !strings.Contains(p, "/") {
		return false
	}
	ok, _ := doublestar.Match(pattern, path.Base(p))
	return ok
}
