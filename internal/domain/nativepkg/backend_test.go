package nativepkg

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestArchitectureMapping verifies host names are translated into each backend's vocabulary.
func TestArchitectureMapping(t *testing.T) {
	t.Parallel()

	deb, err := Debian.Backend().Architecture("x86_64")
	require.NoError(t, err)
	require.Equal(t, "amd64", deb)

	rpm, err := RPM.Backend().Architecture("x86_64")
	require.NoError(t, err)
	require.Equal(t, "x86_64", rpm)

	deb, err = Debian.Backend().Architecture("aarch64")
	require.NoError(t, err)
	require.Equal(t, "arm64", deb)

	_, err = Debian.Backend().Architecture("sparc64")
	require.ErrorIs(t, err, ErrUnsupportedArchitecture)

	_, err = RPM.Backend().Architecture("")
	require.ErrorIs(t, err, ErrUnsupportedArchitecture)
}

// TestParseKind checks backend names and rejection of unknown ones.
func TestParseKind(t *testing.T) {
	t.Parallel()

	kind, err := ParseKind("deb")
	require.NoError(t, err)
	require.Equal(t, Debian, kind)

	kind, err = ParseKind(" RPM ")
	require.NoError(t, err)
	require.Equal(t, RPM, kind)
	require.Equal(t, "rpm", kind.String())

	_, err = ParseKind("apk")
	require.ErrorIs(t, err, ErrUnknownBackend)
}

// TestHostArch verifies GOARCH names map to uname-style names.
func TestHostArch(t *testing.T) {
	t.Parallel()

	require.Equal(t, "x86_64", HostArch("amd64"))
	require.Equal(t, "aarch64", HostArch("arm64"))
	require.Equal(t, "mips", HostArch("mips"))
}

// TestFileListMerge ensures generated entries replace same-path entries in place.
func TestFileListMerge(t *testing.T) {
	t.Parallel()

	base := FileList{
		{InstallPath: "/opt/a.AppDir/usr/bin/a", SourcePath: "/src/usr/bin/a"},
		{InstallPath: "/opt/a.AppDir/usr/bin/linuxdeploy.conf", SourcePath: "/src/usr/bin/linuxdeploy.conf"},
	}
	extra := FileList{
		{InstallPath: "/opt/a.AppDir/usr/bin/linuxdeploy.conf", Content: []byte("x")},
		{InstallPath: "/usr/bin/a", Content: []byte("y")},
	}

	merged := base.Merge(extra)

	require.Equal(t, []string{
		"/opt/a.AppDir/usr/bin/a",
		"/opt/a.AppDir/usr/bin/linuxdeploy.conf",
		"/usr/bin/a",
	}, merged.InstallPaths())
	require.True(t, merged[1].Generated())
	require.False(t, base[1].Generated())
}

// TestInstalledSizeKiB rounds partial KiB up.
func TestInstalledSizeKiB(t *testing.T) {
	t.Parallel()

	require.Equal(t, int64(0), InstalledSizeKiB(0))
	require.Equal(t, int64(1), InstalledSizeKiB(1))
	require.Equal(t, int64(1), InstalledSizeKiB(1024))
	require.Equal(t, int64(2), InstalledSizeKiB(1025))
}

// TestMetadataString ensures the textual form is sorted and stable.
func TestMetadataString(t *testing.T) {
	t.Parallel()

	meta := Metadata{"version": "1.0.0", "package_name": "demo"}
	require.Equal(t, "package_name=demo\nversion=1.0.0\n", meta.String())
	require.Equal(t, "demo", meta.Get("PACKAGE_NAME"))
}
