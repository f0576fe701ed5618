package invoker

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/oshokin/appdir-native-packages/internal/domain/nativepkg"
)

// Staging directory layout.
const (
	RootDirName    = "root"
	OutputDirName  = "out"
	RPMTopDirName  = "rpmbuild"
	DebianDirName  = "DEBIAN"
	dirPermissions = 0o755
)

const specialModeBits = fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky

// stage recreates the payload below root: files copied with their modes,
// symlinks recreated verbatim and generated entries written from memory.
func stage(root string, files nativepkg.FileList) error {
	var directories []nativepkg.FileEntry

	for _, entry := range files {
		dst := filepath.Join(root, filepath.FromSlash(entry.InstallPath))

		if err := os.MkdirAll(filepath.Dir(dst), dirPermissions); err != nil {
			return fmt.Errorf("stage %s: %w", entry.InstallPath, err)
		}

		var err error

		switch entry.Kind {
		case nativepkg.Directory:
			err = os.MkdirAll(dst, dirPermissions)
			directories = append(directories, entry)
		case nativepkg.Symlink:
			err = stageSymlink(dst, entry.LinkTarget)
		case nativepkg.Regular:
			err = stageFile(dst, entry)
		default:
			err = fmt.Errorf("unsupported entry kind %s", entry.Kind)
		}

		if err != nil {
			return fmt.Errorf("stage %s: %w", entry.InstallPath, err)
		}
	}

	// Deepest first, so a read-only parent does not block its children.
	for _, entry := range slices.Backward(directories) {
		dst := filepath.Join(root, filepath.FromSlash(entry.InstallPath))
		if err := os.Chmod(dst, entry.Mode&specialModeBits); err != nil {
			return fmt.Errorf("stage %s: %w", entry.InstallPath, err)
		}
	}

	return nil
}

func stageSymlink(dst, target string) error {
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}

	return os.Symlink(target, dst)
}

func stageFile(dst string, entry nativepkg.FileEntry) error {
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}

	mode := entry.Mode & specialModeBits

	if entry.Generated() {
		if err := os.WriteFile(dst, entry.Content, mode.Perm()); err != nil {
			return err
		}

		return os.Chmod(dst, mode)
	}

	if err := copyFile(entry.SourcePath, dst, mode.Perm()); err != nil {
		return err
	}

	return os.Chmod(dst, mode)
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm|0o200)
	if err != nil {
		return err
	}

	if _, err = io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}

// copyInto copies each file into dir under its base name, keeping its mode.
func copyInto(dir string, paths []string) error {
	for _, src := range paths {
		info, err := os.Stat(src)
		if err != nil {
			return fmt.Errorf("stat %s: %w", src, err)
		}

		dst := filepath.Join(dir, filepath.Base(src))
		if err = copyFile(src, dst, info.Mode().Perm()); err != nil {
			return fmt.Errorf("copy %s: %w", src, err)
		}

		if err = os.Chmod(dst, info.Mode().Perm()); err != nil {
			return fmt.Errorf("copy %s: %w", src, err)
		}
	}

	return nil
}
