package types

// EntryKind discriminates tree entries.
type EntryKind int

const (
	EntryOther EntryKind = iota
	EntryFile
	EntryDir
)

func (k EntryKind) String() string {
	switch k {
	case EntryFile:
		return "file"
	case EntryDir:
		return "dir"
	default:
		return "other"
	}
}

// TreeEntry is a file or directory seen during traversal.
// Path is always slash separated and relative to the traversal root.
type TreeEntry struct {
	Path string    `json:"path"`
	Kind EntryKind `json:"kind"`
	Size int64     `json:"size,omitempty"`
	Ref  string    `json:"ref,omitempty"` // remote download URL, if any
}

// IsFile reports whether the entry is a regular file.
func (e TreeEntry) IsFile() bool { return e.Kind == EntryFile }

// IsDir reports whether the entry is a directory.
func (e TreeEntry) IsDir() bool { return e.Kind == EntryDir }
