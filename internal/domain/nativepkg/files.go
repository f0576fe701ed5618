package nativepkg

import "io/fs"

// EntryKind classifies a file list entry.
type EntryKind uint8

const (
	// Regular is a regular file.
	Regular EntryKind = iota + 1
	// Symlink is a symbolic link, recorded without following it.
	Symlink
	// Directory is a directory; only listed when the backend requires it.
	Directory
)

// String returns a short name for logs.
func (k EntryKind) String() string {
	switch k {
	case Regular:
		return "file"
	case Symlink:
		return "symlink"
	case Directory:
		return "dir"
	default:
		return "unknown"
	}
}

// FileEntry is one installed file of the package.
type FileEntry struct {
	// Path is the slash-separated path relative to the surveyed root.
	Path string
	// SourcePath is the absolute path on disk; empty for generated entries.
	SourcePath string
	// InstallPath is the absolute path the entry has once the package is installed.
	InstallPath string
	// Kind classifies the entry.
	Kind EntryKind
	// Mode holds the permission and type bits copied from the filesystem.
	Mode fs.FileMode
	// UID is the owning user id copied from the filesystem.
	UID uint32
	// GID is the owning group id copied from the filesystem.
	GID uint32
	// Size is the logical size in bytes.
	Size int64
	// AllocatedSize is Size rounded up to the filesystem block size.
	AllocatedSize int64
	// LinkTarget is the symlink target, verbatim.
	LinkTarget string
	// Owned marks directories the package owns.
	Owned bool
	// Content holds the data of generated regular files.
	Content []byte
}

// Generated reports whether the entry is produced by the packager rather than copied from disk.
func (e *FileEntry) Generated() bool {
	return e.SourcePath == ""
}

// FileList is an ordered sequence of entries.
type FileList []FileEntry

// Merge returns a new list where entries with an install path already present
// replace the existing entry in place and all other entries are appended in order.
func (l FileList) Merge(extra FileList) FileList {
	result := make(FileList, len(l), len(l)+len(extra))
	copy(result, l)

	index := make(map[string]int, len(result))
	for i := range result {
		index[result[i].InstallPath] = i
	}

	for _, entry := range extra {
		if i, ok := index[entry.InstallPath]; ok {
			result[i] = entry
			continue
		}

		index[entry.InstallPath] = len(result)
		result = append(result, entry)
	}

	return result
}

// InstallPaths returns the install paths in list order.
func (l FileList) InstallPaths() []string {
	paths := make([]string, 0, len(l))
	for i := range l {
		paths = append(paths, l[i].InstallPath)
	}

	return paths
}

// InstalledSizeKiB converts an installed size in bytes to KiB, rounded up.
func InstalledSizeKiB(size int64) int64 {
	return (size + 1023) / 1024
}

// InstallPrefix returns the directory the AppDir is installed to.
func InstallPrefix(packageName string) string {
	return "/opt/" + packageName + ".AppDir"
}
