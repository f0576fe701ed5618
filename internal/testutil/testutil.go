package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteFile creates rel below root with the given content and mode, creating parent directories.
func WriteFile(t *testing.T, root, rel string, content []byte, mode os.FileMode) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, mode))
	require.NoError(t, os.Chmod(path, mode))

	return path
}

// Symlink creates a symlink at rel below root pointing to target.
func Symlink(t *testing.T, root, rel, target string) {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.Symlink(target, path))
}

// FakeTool writes an executable shell script named name into a fresh directory and returns its path.
func FakeTool(t *testing.T, name, script string) string {
	t.Helper()

	return WriteFile(t, t.TempDir(), name, []byte("#!/bin/sh\n"+script), 0o755)
}

// DesktopEntry returns the content of a minimal desktop entry.
func DesktopEntry(name, exec, icon, comment string) []byte {
	return []byte("[Desktop Entry]\n" +
		"Type=Application\n" +
		"Name=" + name + "\n" +
		"Exec=" + exec + "\n" +
		"Icon=" + icon + "\n" +
		"Comment=" + comment + "\n" +
		"Categories=Utility;\n")
}

// DemoAppDir creates an AppDir with a desktop entry, a binary, an icon and a MIME file.
func DemoAppDir(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	entry := DesktopEntry("Demo App", "demo %F", "demo", "A demo application")

	WriteFile(t, root, "demo.desktop", entry, 0o644)
	WriteFile(t, root, "usr/share/applications/demo.desktop", entry, 0o644)
	WriteFile(t, root, "usr/bin/demo", make([]byte, 1000), 0o755)
	WriteFile(t, root, "usr/share/icons/hicolor/64x64/apps/demo.png", []byte("png"), 0o644)
	WriteFile(t, root, "usr/share/icons/hicolor/64x64/apps/other.png", []byte("png"), 0o644)
	WriteFile(t, root, "usr/share/mime/packages/demo.xml", []byte("<mime-info/>"), 0o644)
	WriteFile(t, root, "AppRun", []byte("#!/bin/sh\nexec \"$APPDIR/usr/bin/demo\" \"$@\"\n"), 0o755)
	Symlink(t, root, "demo.png", "usr/share/icons/hicolor/64x64/apps/demo.png")

	return root
}
