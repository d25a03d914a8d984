// Package uri parses GitHub repository references and builds contents API paths.
package uri

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/taigrr/contextgen/internal/types"
)

var (
	sshRemoteRe = regexp.MustCompile(`^[^@\s]+@[^:\s]+:([^/\s]+)/([^/\s]+?)(?:\.git)?/?$`)
	shorthandRe = regexp.MustCompile(`^([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)$`)
)

// ParseRepository extracts owner, repository and optional ref from a
// GitHub reference. Accepted forms:
//
//	owner/repo
//	https://github.com/owner/repo[.git]
//	https://github.com/owner/repo/tree/<ref>[/...]
//	git@github.com:owner/repo[.git]
func ParseRepository(ref string) (types.RemoteSource, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return types.RemoteSource{}, fmt.Errorf("empty repository reference")
	}

	if m := sshRemoteRe.FindStringSubmatch(ref); m != nil {
		return types.RemoteSource{Owner: m[1], Repo: m[2]}, nil
	}

	if !strings.Contains(ref, "://") {
		if m := shorthandRe.FindStringSubmatch(strings.TrimSuffix(ref, ".git")); m != nil {
			return types.RemoteSource{Owner: m[1], Repo: m[2]}, nil
		}
		return types.RemoteSource{}, fmt.Errorf("cannot parse owner/repo from %q", ref)
	}

	u, err := url.Parse(ref)
	if err != nil {
		return types.RemoteSource{}, fmt.Errorf("parsing repository URL: %w", err)
	}

	parts := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(parts) < 2 {
		return types.RemoteSource{}, fmt.Errorf("cannot parse owner/repo from %q", ref)
	}

	src := types.RemoteSource{
		Owner: parts[0],
		Repo:  strings.TrimSuffix(parts[1], ".git"),
	}
	if len(parts) >= 4 && (parts[2] == "tree" || parts[2] == "blob") {
		src.Ref = parts[3]
	}
	if src.Owner == "" || src.Repo == "" {
		return types.RemoteSource{}, fmt.Errorf("cannot parse owner/repo from %q", ref)
	}
	return src, nil
}

// EscapePath URI-encodes each segment of a slash-separated path, keeping
// the slashes.
func EscapePath(p string) string {
	p = strings.Trim(p, "/")
	if p == "" {
		return ""
	}
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// ContentsPath returns the contents API path for a repository path.
// An empty path addresses the repository root.
func ContentsPath(owner, repo, p string) string {
	base := fmt.Sprintf("/repos/%s/%s/contents", url.PathEscape(owner), url.PathEscape(repo))
	if escaped := EscapePath(p); escaped != "" {
		return base + "/" + escaped
	}
	return base + "/"
}
