package surveyor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/appdir-native-packages/internal/domain/nativepkg"
	"github.com/oshokin/appdir-native-packages/internal/testutil"
)

// TestInstallPath verifies the relative-to-install-path rewrite round-trips.
func TestInstallPath(t *testing.T) {
	t.Parallel()

	require.Equal(t, "/opt/app/usr/bin/app", InstallPath("/opt/app", "usr/bin/app"))
	require.Equal(t, "/opt/app/usr/bin/app", InstallPath("/opt/app/", "usr/bin/app"))
	require.Equal(t, "/opt/app", InstallPath("/opt/app", "."))
}

// TestRun_Deterministic surveys an unchanged tree twice and compares the results.
func TestRun_Deterministic(t *testing.T) {
	t.Parallel()

	root := testutil.DemoAppDir(t)

	first, err := Run(root, "/opt/demo.AppDir", Options{Directories: true})
	require.NoError(t, err)

	second, err := Run(root, "/opt/demo.AppDir", Options{Directories: true})
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.NotEmpty(t, first.Files)
}

// TestRun_Entries checks entry kinds, install paths, modes and symlink handling.
func TestRun_Entries(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFile(t, root, "usr/bin/app", []byte("binary"), 0o755)
	testutil.WriteFile(t, root, "usr/lib/real/libx.so", []byte("lib"), 0o644)
	testutil.Symlink(t, root, "usr/lib/linked", "real")
	testutil.Symlink(t, root, "app.png", "missing.png")

	survey, err := Run(root, "/opt/app", Options{})
	require.NoError(t, err)

	require.Equal(t, []string{
		"/opt/app/app.png",
		"/opt/app/usr/bin/app",
		"/opt/app/usr/lib/linked",
		"/opt/app/usr/lib/real/libx.so",
	}, survey.Files.InstallPaths())

	dangling := survey.Files[0]
	require.Equal(t, nativepkg.Symlink, dangling.Kind)
	require.Equal(t, "missing.png", dangling.LinkTarget)
	require.Equal(t, "app.png", dangling.Path)
	require.Zero(t, dangling.AllocatedSize)

	binary := survey.Files[1]
	require.Equal(t, nativepkg.Regular, binary.Kind)
	require.Equal(t, os.FileMode(0o755), binary.Mode.Perm())
	require.Equal(t, uint32(os.Getuid()), binary.UID)
	require.Equal(t, filepath.Join(root, "usr", "bin", "app"), binary.SourcePath)
	require.Equal(t, int64(6), binary.Size)

	linked := survey.Files[2]
	require.Equal(t, nativepkg.Symlink, linked.Kind)
	require.Equal(t, "real", linked.LinkTarget)
}

// TestRun_Directories verifies directory entries and the ownership heuristic.
func TestRun_Directories(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFile(t, root, "usr/bin/app", []byte("x"), 0o755)

	survey, err := Run(root, "/opt/app", Options{Directories: true})
	require.NoError(t, err)

	require.Equal(t, []string{
		"/opt/app",
		"/opt/app/usr",
		"/opt/app/usr/bin",
		"/opt/app/usr/bin/app",
	}, survey.Files.InstallPaths())

	for _, entry := range survey.Files[:3] {
		require.Equal(t, nativepkg.Directory, entry.Kind)
		require.True(t, entry.Owned, entry.InstallPath)
	}

	// A tree installed straight into / must not claim system directories.
	system, err := Run(root, "/", Options{Directories: true})
	require.NoError(t, err)

	for _, entry := range system.Files {
		if entry.Kind == nativepkg.Directory {
			require.False(t, entry.Owned, entry.InstallPath)
		}
	}
}

// TestRun_BlockRounding compares the installed size with the block-rounded sum.
func TestRun_BlockRounding(t *testing.T) {
	t.Parallel()

	const (
		big   = 10<<20 + 1
		small = 1000
	)

	root := t.TempDir()
	testutil.WriteFile(t, root, "big.bin", make([]byte, big), 0o644)
	testutil.WriteFile(t, root, "small.bin", make([]byte, small), 0o644)

	survey, err := Run(root, "/opt/x", Options{BlockSize: 4096})
	require.NoError(t, err)
	require.Equal(t, int64(4096), survey.BlockSize)
	require.Equal(t, int64(10<<20+4096+4096), survey.InstalledSize)
	require.NotEqual(t, int64(big+small), survey.InstalledSize)
	require.Equal(t, survey.InstalledSize/1024, nativepkg.InstalledSizeKiB(survey.InstalledSize))

	// Filesystem-reported block size.
	survey, err = Run(root, "/opt/x", Options{})
	require.NoError(t, err)
	require.Positive(t, survey.BlockSize)
	require.Equal(t, RoundUp(big, survey.BlockSize)+RoundUp(small, survey.BlockSize), survey.InstalledSize)
}

// TestRun_MiBAndKiBFiles matches the size of a 10 MiB and a 4 KiB file.
func TestRun_MiBAndKiBFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFile(t, root, "a", make([]byte, 10<<20), 0o644)
	testutil.WriteFile(t, root, "b", make([]byte, 4<<10), 0o644)

	survey, err := Run(root, "/opt/x", Options{BlockSize: 4096})
	require.NoError(t, err)
	require.Equal(t, int64(10<<20+4<<10), survey.InstalledSize)

	survey, err = Run(root, "/opt/x", Options{BlockSize: 64 << 10})
	require.NoError(t, err)
	require.Equal(t, int64(10<<20+64<<10), survey.InstalledSize)
}

// TestRun_Unreadable aborts the survey on permission errors.
func TestRun_Unreadable(t *testing.T) {
	t.Parallel()

	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	testutil.WriteFile(t, root, "locked/file", []byte("x"), 0o644)
	require.NoError(t, os.Chmod(locked, 0o000))

	t.Cleanup(func() {
		_ = os.Chmod(locked, 0o755)
	})

	survey, err := Run(root, "/opt/x", Options{})
	require.ErrorIs(t, err, nativepkg.ErrSurvey)
	require.Nil(t, survey)

	// An unreadable file inside a readable directory.
	root = t.TempDir()
	testutil.WriteFile(t, root, "usr/bin/app", []byte("x"), 0o755)
	secret := testutil.WriteFile(t, root, "usr/share/secret", []byte("x"), 0o000)

	survey, err = Run(root, "/opt/x", Options{})
	require.ErrorIs(t, err, nativepkg.ErrSurvey)
	require.ErrorIs(t, err, os.ErrPermission)
	require.ErrorContains(t, err, secret)
	require.Nil(t, survey)
}

// TestOwned covers the directory ownership heuristic.
func TestOwned(t *testing.T) {
	t.Parallel()

	require.True(t, Owned("/opt/demo.AppDir", "/opt/demo.AppDir"))
	require.True(t, Owned("/opt/demo.AppDir/usr/share", "/opt/demo.AppDir"))
	require.False(t, Owned("/opt", "/opt/demo.AppDir"))
	require.False(t, Owned("/usr/share/icons/hicolor", "/"))
	require.False(t, Owned("/opt/other", "/opt/demo.AppDir"))
	require.True(t, IsSystemDirectory("/usr/share/applications"))
	require.False(t, IsSystemDirectory("/usr/share/demo"))
}
