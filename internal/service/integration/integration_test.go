package integration

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/ini.v1"
	"mvdan.cc/sh/v3/syntax"

	"github.com/oshokin/appdir-native-packages/internal/domain/nativepkg"
	"github.com/oshokin/appdir-native-packages/internal/repository/appdir"
	"github.com/oshokin/appdir-native-packages/internal/testutil"
)

const demoPrefix = "/opt/demo.AppDir"

// TestPlan_DemoAppDir verifies the full set of generated entries for the demo AppDir.
func TestPlan_DemoAppDir(t *testing.T) {
	t.Parallel()

	dir, err := appdir.Open(testutil.DemoAppDir(t))
	require.NoError(t, err)

	entries, err := Plan(context.Background(), dir, demoPrefix)
	require.NoError(t, err)

	require.Equal(t, []string{
		"/usr/share/applications/demo.desktop",
		"/usr/share/icons/hicolor/64x64/apps/demo.png",
		"/usr/bin/demo",
		"/usr/share/mime/packages/demo.xml",
		"/opt/demo.AppDir/usr/bin/linuxdeploy.conf",
	}, entries.InstallPaths())

	desktop := entries[0]
	require.Equal(t, nativepkg.Symlink, desktop.Kind)
	require.Equal(t, "../../../opt/demo.AppDir/usr/share/applications/demo.desktop", desktop.LinkTarget)
	require.True(t, desktop.Generated())

	launcher := entries[2]
	require.Equal(t, nativepkg.Regular, launcher.Kind)
	require.Equal(t, launcherMode, launcher.Mode)
	require.Contains(t, string(launcher.Content), "exec /opt/demo.AppDir/usr/bin/demo \"$@\"")
	require.Equal(t, int64(len(launcher.Content)), launcher.Size)

	conf, err := ini.Load(entries[4].Content)
	require.NoError(t, err)
	require.Equal(t, demoPrefix, conf.Section(ConfigSection).Key(ConfigInstalledPathKey).String())
}

// TestPlan_Deterministic plans twice and compares the results.
func TestPlan_Deterministic(t *testing.T) {
	t.Parallel()

	dir, err := appdir.Open(testutil.DemoAppDir(t))
	require.NoError(t, err)

	first, err := Plan(context.Background(), dir, demoPrefix)
	require.NoError(t, err)

	second, err := Plan(context.Background(), dir, demoPrefix)
	require.NoError(t, err)

	require.Equal(t, first, second)
}

// TestPlan_MissingBinary rejects desktop entries whose Exec= binary is not shipped.
func TestPlan_MissingBinary(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFile(t, root, "usr/share/applications/app.desktop",
		testutil.DesktopEntry("App", "missing --flag", "app", "An app"), 0o644)

	dir, err := appdir.Open(root)
	require.NoError(t, err)

	_, err = Plan(context.Background(), dir, "/opt/app.AppDir")
	require.ErrorIs(t, err, nativepkg.ErrInvalidDesktopEntry)
	require.Contains(t, err.Error(), "missing")
}

// TestPlan_MergesExistingConfig keeps foreign sections of linuxdeploy.conf.
func TestPlan_MergesExistingConfig(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteFile(t, root, appdir.ConfigLocation, []byte("[other]\nkey = value\n"), 0o644)

	dir, err := appdir.Open(root)
	require.NoError(t, err)

	entries, err := Plan(context.Background(), dir, "/opt/app.AppDir")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	conf, err := ini.Load(entries[0].Content)
	require.NoError(t, err)
	require.Equal(t, "value", conf.Section("other").Key("key").String())
	require.Equal(t, "/opt/app.AppDir", conf.Section(ConfigSection).Key(ConfigInstalledPathKey).String())
}

// TestExecBinary covers shell splitting of Exec= values.
func TestExecBinary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		exec    string
		want    string
		wantErr bool
	}{
		{name: "field code", exec: "demo %F", want: "demo"},
		{name: "quoted", exec: `"my app" --flag`, want: "my app"},
		{name: "variable is not expanded", exec: "$HOME/bin/app", want: "/bin/app"},
		{name: "empty", exec: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ExecBinary(tt.exec)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

// TestRelativeLink checks the number of parent hops.
func TestRelativeLink(t *testing.T) {
	t.Parallel()

	require.Equal(t, "../../opt/x/usr/bin/x", RelativeLink("/usr/bin/x", "/opt/x/usr/bin/x"))
	require.Equal(t, "opt/x/file", RelativeLink("/file", "/opt/x/file"))
}

// TestLauncherScript verifies quoting and that the script parses as POSIX shell.
func TestLauncherScript(t *testing.T) {
	t.Parallel()

	script, err := LauncherScript("/opt/my app.AppDir", "/opt/my app.AppDir/usr/bin/app")
	require.NoError(t, err)
	require.Contains(t, string(script), "this_dir='/opt/my app.AppDir'")
	require.Contains(t, string(script), `exec '/opt/my app.AppDir/usr/bin/app' "$@"`)

	_, err = syntax.NewParser(syntax.Variant(syntax.LangPOSIX)).Parse(bytes.NewReader(script), "launcher")
	require.NoError(t, err)
}
