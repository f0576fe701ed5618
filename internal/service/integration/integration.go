package integration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/ini.v1"
	"mvdan.cc/sh/v3/shell"
	"mvdan.cc/sh/v3/syntax"

	"github.com/oshokin/appdir-native-packages/internal/domain/nativepkg"
	"github.com/oshokin/appdir-native-packages/internal/logger"
	"github.com/oshokin/appdir-native-packages/internal/repository/appdir"
)

const (
	// ConfigSection is the linuxdeploy.conf section written by the packager.
	ConfigSection = "native_packages"
	// ConfigInstalledPathKey holds the install prefix of the AppDir.
	ConfigInstalledPathKey = "appdir_installed_path"

	launcherMode fs.FileMode = 0o755
	configMode   fs.FileMode = 0o644
	symlinkMode              = fs.ModeSymlink | 0o777
)

// errExecNotSet is returned for desktop entries without a command.
var errExecNotSet = errors.New("Exec= entry not set")

// Plan returns the generated entries for an AppDir installed at prefix.
func Plan(ctx context.Context, dir *appdir.AppDir, prefix string) (nativepkg.FileList, error) {
	p := &planner{dir: dir, prefix: path.Clean("/" + prefix), seen: make(map[string]struct{})}

	desktopFiles, err := dir.DesktopFiles()
	if err != nil {
		return nil, err
	}

	for _, rel := range desktopFiles {
		if err = p.desktopFile(ctx, rel); err != nil {
			return nil, err
		}
	}

	for _, find := range []func() ([]string, error){dir.MimeFiles, dir.CloudProviderFiles} {
		files, err := find()
		if err != nil {
			return nil, err
		}

		for _, rel := range files {
			p.link(rel)
		}
	}

	if err = p.config(); err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "planned desktop integration", "paths", p.entries.InstallPaths())

	return p.entries, nil
}

type planner struct {
	dir     *appdir.AppDir
	prefix  string
	entries nativepkg.FileList
	seen    map[string]struct{}
}

func (p *planner) desktopFile(ctx context.Context, rel string) error {
	entry, err := appdir.ReadDesktopEntry(p.dir.Abs(rel))
	if err != nil {
		return err
	}

	p.link(rel)

	if entry.Icon != "" {
		icons, err := p.dir.Icons(entry.Icon + ".")
		if err != nil {
			return err
		}

		for _, icon := range icons {
			p.link(icon)
		}
	}

	binary, err := ExecBinary(entry.Exec)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", nativepkg.ErrInvalidDesktopEntry, rel, err)
	}

	binRel := path.Join(appdir.BinLocation, binary)
	if !p.dir.Exists(binRel) {
		return fmt.Errorf("%w: %s: Exec= binary %q not found in AppDir/%s",
			nativepkg.ErrInvalidDesktopEntry, rel, binary, appdir.BinLocation)
	}

	script, err := LauncherScript(p.prefix, path.Join(p.prefix, binRel))
	if err != nil {
		return err
	}

	logger.DebugKV(ctx, "planned launcher", "binary", binary)

	p.add(nativepkg.FileEntry{
		InstallPath: path.Join("/", binRel),
		Kind:        nativepkg.Regular,
		Mode:        launcherMode,
		Content:     script,
	})

	return nil
}

// link deploys an AppDir file as a relative symlink at the same path below /.
func (p *planner) link(rel string) {
	installPath := path.Join("/", rel)

	p.add(nativepkg.FileEntry{
		InstallPath: installPath,
		Kind:        nativepkg.Symlink,
		Mode:        symlinkMode,
		LinkTarget:  RelativeLink(installPath, path.Join(p.prefix, rel)),
	})
}

func (p *planner) config() error {
	file := ini.Empty()

	if p.dir.Exists(appdir.ConfigLocation) {
		data, err := p.dir.ReadFile(appdir.ConfigLocation)
		if err != nil {
			return fmt.Errorf("read %s: %w", appdir.ConfigLocation, err)
		}

		if file, err = ini.Load(data); err != nil {
			return fmt.Errorf("parse %s: %w", appdir.ConfigLocation, err)
		}
	}

	file.Section(ConfigSection).Key(ConfigInstalledPathKey).SetValue(p.prefix)

	var buf bytes.Buffer
	if _, err := file.WriteTo(&buf); err != nil {
		return fmt.Errorf("write %s: %w", appdir.ConfigLocation, err)
	}

	p.add(nativepkg.FileEntry{
		InstallPath: path.Join(p.prefix, appdir.ConfigLocation),
		Kind:        nativepkg.Regular,
		Mode:        configMode,
		Content:     buf.Bytes(),
	})

	return nil
}

func (p *planner) add(entry nativepkg.FileEntry) {
	if _, ok := p.seen[entry.InstallPath]; ok {
		return
	}

	p.seen[entry.InstallPath] = struct{}{}

	entry.Path = strings.TrimPrefix(entry.InstallPath, "/")
	entry.Size = int64(len(entry.Content))
	p.entries = append(p.entries, entry)
}

// ExecBinary returns the program of a desktop entry Exec= value.
// Field codes such as %F are left alone; variables are not expanded.
func ExecBinary(exec string) (string, error) {
	fields, err := shell.Fields(exec, func(string) string { return "" })
	if err != nil {
		return "", fmt.Errorf("split Exec=: %w", err)
	}

	if len(fields) == 0 || fields[0] == "" {
		return "", errExecNotSet
	}

	return fields[0], nil
}

// RelativeLink returns the target of a symlink at link pointing to target, both absolute.
func RelativeLink(link, target string) string {
	depth := strings.Count(strings.Trim(path.Dir(link), "/"), "/") + 1
	if path.Dir(link) == "/" {
		depth = 0
	}

	return strings.Repeat("../", depth) + strings.TrimPrefix(target, "/")
}

// LauncherScript returns a /usr/bin wrapper that prepares the AppDir environment and execs binary.
func LauncherScript(appDir, binary string) ([]byte, error) {
	quotedDir, err := syntax.Quote(appDir, syntax.LangPOSIX)
	if err != nil {
		return nil, fmt.Errorf("quote %q: %w", appDir, err)
	}

	quotedBinary, err := syntax.Quote(binary, syntax.LangPOSIX)
	if err != nil {
		return nil, fmt.Errorf("quote %q: %w", binary, err)
	}

	lines := []string{
		"#! /bin/sh",
		"",
		"set -e",
		"",
		"# shellcheck disable=SC2034",
		"this_dir=" + quotedDir,
		"",
		`APPDIR="$this_dir"`,
		"export APPDIR",
		"",
		`script_dir="$APPDIR/apprun-hooks"`,
		`if [ -d "$script_dir" ]; then`,
		`    for script in "$script_dir"/*; do`,
		`        [ ! -f "$script" ] && continue`,
		"",
		"        # shellcheck disable=SC1090",
		`        . "$script"`,
		"    done",
		"fi",
		"",
		"exec " + quotedBinary + ` "$@"`,
		"",
	}

	return []byte(strings.Join(lines, "\n")), nil
}
