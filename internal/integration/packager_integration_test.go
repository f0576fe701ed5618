package integration

import (
	"context"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/appdir-native-packages/internal/config"
	"github.com/oshokin/appdir-native-packages/internal/service/packager"
	"github.com/oshokin/appdir-native-packages/internal/testutil"
)

// lookTool returns the path of an executable or skips the test.
func lookTool(t *testing.T, name string) string {
	t.Helper()

	if runtime.GOARCH != "amd64" {
		t.Skip("package names below assume an x86_64 host")
	}

	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not installed", name)
	}

	return path
}

func demoConfig(t *testing.T, build string) *config.Config {
	t.Helper()

	return &config.Config{
		AppDir:    testutil.DemoAppDir(t),
		Builds:    []string{build},
		OutputDir: t.TempDir(),
		HostArch:  "x86_64",
		Metadata: map[string]string{
			"package_name": "demo",
			"version":      "1.0.0",
			"maintainer":   "Jane Doe <jane@example.org>",
		},
	}
}

// TestPackager_Debian builds a real .deb and inspects it with dpkg-deb.
func TestPackager_Debian(t *testing.T) {
	t.Parallel()

	dpkgDeb := lookTool(t, "dpkg-deb")

	cfg := demoConfig(t, "deb")
	cfg.Tools.DpkgDeb = dpkgDeb

	paths, err := packager.Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cfg.OutputDir, "demo-1.0.0-amd64.deb"), paths[0])

	info, err := exec.Command(dpkgDeb, "--field", paths[0], "Package", "Version", "Architecture").Output()
	require.NoError(t, err)
	require.Equal(t, "Package: demo\nVersion: 1.0.0\nArchitecture: amd64\n", string(info))

	contents, err := exec.Command(dpkgDeb, "--contents", paths[0]).Output()
	require.NoError(t, err)
	require.Contains(t, string(contents), "root/root")
	require.Contains(t, string(contents), "./opt/demo.AppDir/usr/bin/demo")
	require.Contains(t, string(contents), "./usr/share/applications/demo.desktop -> ")
}

// TestPackager_RPM builds a real .rpm and lists it with rpm.
func TestPackager_RPM(t *testing.T) {
	t.Parallel()

	rpmbuild := lookTool(t, "rpmbuild")
	rpm := lookTool(t, "rpm")

	cfg := demoConfig(t, "rpm")
	cfg.Tools.RPMBuild = rpmbuild

	paths, err := packager.Run(context.Background(), cfg)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cfg.OutputDir, "demo-1.0.0-1.x86_64.rpm"), paths[0])

	files, err := exec.Command(rpm, "-qpl", paths[0]).Output()
	require.NoError(t, err)
	require.Contains(t, string(files), "/opt/demo.AppDir/usr/bin/demo\n")
	require.Contains(t, string(files), "/usr/bin/demo\n")

	name, err := exec.Command(rpm, "-qp", "--queryformat", "%{NAME}-%{VERSION}-%{RELEASE}.%{ARCH}", paths[0]).Output()
	require.NoError(t, err)
	require.Equal(t, "demo-1.0.0-1.x86_64", string(name))
}
