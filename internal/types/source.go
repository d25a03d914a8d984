package types

import "fmt"

// Source selects what the aggregator reads. The set of implementations is
// closed: RemoteSource and LocalSource.
type Source interface {
	fmt.Stringer
	isSource()
}

type (
	// RemoteSource is a GitHub repository, optionally pinned to a ref.
	RemoteSource struct {
		Owner string `json:"owner"`
		Repo  string `json:"repo"`
		Ref   string `json:"ref,omitempty"`
	}

	// LocalSource is a directory on the local filesystem.
	LocalSource struct {
		Path string `json:"path"`
	}
)

func (RemoteSource) isSource() {}
func (LocalSource) isSource()  {}

func (s RemoteSource) String() string {
	if s.Ref != "" {
		return fmt.Sprintf("github:%s/%s@%s", s.Owner, s.Repo, s.Ref)
	}
	return fmt.Sprintf("github:%s/%s", s.Owner, s.Repo)
}

func (s LocalSource) String() string {
	return "local:" + s.Path
}
