package surveyor

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/oshokin/appdir-native-packages/internal/domain/nativepkg"
)

// DefaultBlockSize is used when the filesystem does not report a block size.
const DefaultBlockSize int64 = 4096

// Options tunes a survey.
type Options struct {
	// Directories adds directory entries to the file list.
	Directories bool
	// BlockSize overrides the block size reported by the filesystem.
	BlockSize int64
}

// Survey is the result of walking a tree.
type Survey struct {
	// Files lists the entries in traversal order.
	Files nativepkg.FileList
	// InstalledSize is the sum of block-rounded regular file sizes in bytes.
	InstalledSize int64
	// BlockSize is the block granularity used for rounding.
	BlockSize int64
}

// Run walks root and maps every entry below it to prefix.
func Run(root, prefix string, opts Options) (*Survey, error) {
	blockSize := opts.BlockSize
	if blockSize <= 0 {
		var err error

		if blockSize, err = filesystemBlockSize(root); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", nativepkg.ErrSurvey, root, err)
		}
	}

	survey := &Survey{BlockSize: blockSize}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}

		entry, err := newEntry(p, filepath.ToSlash(rel), prefix, blockSize)
		if err != nil {
			return err
		}

		switch entry.Kind {
		case nativepkg.Directory:
			if !opts.Directories {
				return nil
			}
		case nativepkg.Regular:
			survey.InstalledSize += entry.AllocatedSize
		case nativepkg.Symlink:
		default:
			// Sockets, devices and pipes cannot be packaged.
			return nil
		}

		survey.Files = append(survey.Files, *entry)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", nativepkg.ErrSurvey, err)
	}

	return survey, nil
}

// InstallPath maps a slash-separated relative path below prefix.
func InstallPath(prefix, rel string) string {
	return path.Join("/", prefix, rel)
}

// RoundUp rounds size up to a multiple of blockSize.
func RoundUp(size, blockSize int64) int64 {
	if size <= 0 || blockSize <= 0 {
		return size
	}

	return (size + blockSize - 1) / blockSize * blockSize
}

// IsSystemDirectory reports whether dir belongs to the base filesystem layout
// and must not be claimed by the package.
func IsSystemDirectory(dir string) bool {
	dir = path.Clean("/" + dir)
	if _, ok := systemDirectories[dir]; ok {
		return true
	}

	for _, prefix := range systemTrees {
		if dir == prefix || strings.HasPrefix(dir, prefix+"/") {
			return true
		}
	}

	return false
}

// Owned reports whether the package owns dir: it lies at or below prefix and is not a system directory.
func Owned(dir, prefix string) bool {
	dir = path.Clean("/" + dir)
	prefix = path.Clean("/" + prefix)

	if IsSystemDirectory(dir) {
		return false
	}

	return dir == prefix || strings.HasPrefix(dir, prefix+"/")
}

func newEntry(p, rel, prefix string, blockSize int64) (*nativepkg.FileEntry, error) {
	var st unix.Stat_t
	if err := unix.Lstat(p, &st); err != nil {
		return nil, &fs.PathError{Op: "lstat", Path: p, Err: err}
	}

	info, err := os.Lstat(p)
	if err != nil {
		return nil, err
	}

	entry := &nativepkg.FileEntry{
		Path:        rel,
		SourcePath:  p,
		InstallPath: InstallPath(prefix, rel),
		Mode:        info.Mode(),
		UID:         st.Uid,
		GID:         st.Gid,
		Size:        st.Size,
	}

	switch {
	case info.Mode().IsRegular():
		// Unreadable files would only fail later while staging.
		if err = unix.Access(p, unix.R_OK); err != nil {
			return nil, &fs.PathError{Op: "access", Path: p, Err: err}
		}

		entry.Kind = nativepkg.Regular
		entry.AllocatedSize = RoundUp(st.Size, blockSize)
	case info.Mode()&fs.ModeSymlink != 0:
		entry.Kind = nativepkg.Symlink

		if entry.LinkTarget, err = os.Readlink(p); err != nil {
			return nil, err
		}
	case info.IsDir():
		entry.Kind = nativepkg.Directory
		entry.Size = 0
		entry.Owned = Owned(entry.InstallPath, prefix)
	}

	return entry, nil
}

func filesystemBlockSize(root string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(root, &st); err != nil {
		return 0, err
	}

	//nolint:unconvert // Bsize has a platform-dependent type.
	if size := int64(st.Bsize); size > 0 {
		return size, nil
	}

	return DefaultBlockSize, nil
}
