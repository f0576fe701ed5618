package appdir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/oshokin/appdir-native-packages/internal/domain/nativepkg"
)

// Well-known locations relative to the AppDir root.
const (
	DesktopFilesLocation   = "usr/share/applications"
	IconsLocation          = "usr/share/icons"
	MimeFilesLocation      = "usr/share/mime"
	CloudProvidersLocation = "usr/share/cloud-providers"
	BinLocation            = "usr/bin"
	ConfigLocation         = "usr/bin/linuxdeploy.conf"

	desktopEntrySection = "Desktop Entry"
	desktopExtension    = ".desktop"
)

var (
	// ErrNotFound is returned when the AppDir has no root desktop entry.
	ErrNotFound = errors.New("desktop entry not found")
	// errMultipleDesktopEntries is returned when the AppDir root holds more than one desktop entry.
	errMultipleDesktopEntries = errors.New("more than one desktop entry in appdir root")
	// errNotDirectory is returned when the AppDir path is not a directory.
	errNotDirectory = errors.New("not a directory")
)

// DesktopEntry holds the keys of a desktop entry the packager cares about.
type DesktopEntry struct {
	// Path is the file the entry was read from.
	Path string
	// Name is the application name.
	Name string
	// Comment is the one-line application description.
	Comment string
	// Icon is the icon name without extension.
	Icon string
	// Exec is the command line.
	Exec string
	// Version is the X-AppImage-Version key.
	Version string
}

// AppDir is a read-only view of an AppDir on disk.
type AppDir struct {
	// path is the absolute AppDir root.
	path string
}

// Open returns an AppDir rooted at path. Symlinks in path are resolved so the
// tree is read through its real location.
func Open(path string) (*AppDir, error) {
	absPath, err := Resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat appdir: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", absPath, errNotDirectory)
	}

	return &AppDir{path: absPath}, nil
}

// Resolve returns the absolute path of path with all symlinks evaluated.
func Resolve(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve appdir: %w", err)
	}

	realPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return "", fmt.Errorf("resolve appdir: %w", err)
	}

	return realPath, nil
}

// Path returns the absolute AppDir root.
func (a *AppDir) Path() string {
	return a.path
}

// Abs returns the absolute path of a slash-separated AppDir-relative path.
func (a *AppDir) Abs(rel string) string {
	return filepath.Join(a.path, filepath.FromSlash(rel))
}

// Exists reports whether the AppDir-relative path exists, following symlinks.
func (a *AppDir) Exists(rel string) bool {
	_, err := os.Stat(a.Abs(rel))

	return err == nil
}

// ReadFile reads an AppDir-relative file.
func (a *AppDir) ReadFile(rel string) ([]byte, error) {
	return os.ReadFile(a.Abs(rel))
}

// RootDesktopEntry reads the single desktop entry at the AppDir root.
func (a *AppDir) RootDesktopEntry() (*DesktopEntry, error) {
	matches, err := filepath.Glob(filepath.Join(a.path, "*"+desktopExtension))
	if err != nil {
		return nil, fmt.Errorf("find root desktop entry: %w", err)
	}

	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return ReadDesktopEntry(matches[0])
	default:
		return nil, fmt.Errorf("%w: %s", errMultipleDesktopEntries, strings.Join(matches, ", "))
	}
}

// Facts returns metadata derived from the root desktop entry.
// An AppDir without a root desktop entry has no facts.
func (a *AppDir) Facts() (nativepkg.Metadata, error) {
	facts := make(nativepkg.Metadata)

	entry, err := a.RootDesktopEntry()
	if errors.Is(err, ErrNotFound) {
		return facts, nil
	}

	if err != nil {
		return nil, err
	}

	setIfNotEmpty(facts, nativepkg.KeyPackageName, entry.Name)
	setIfNotEmpty(facts, nativepkg.KeyShortDescription, entry.Comment)
	setIfNotEmpty(facts, nativepkg.KeyVersion, entry.Version)

	return facts, nil
}

// DesktopFiles returns the desktop files shipped in usr/share/applications.
func (a *AppDir) DesktopFiles() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(a.Abs(DesktopFilesLocation), "*"+desktopExtension))
	if err != nil {
		return nil, fmt.Errorf("find desktop files: %w", err)
	}

	result := make([]string, 0, len(matches))
	for _, match := range matches {
		result = append(result, path.Join(DesktopFilesLocation, filepath.Base(match)))
	}

	return result, nil
}

// Icons returns icon files whose name starts with prefix; an empty prefix returns all icons.
func (a *AppDir) Icons(prefix string) ([]string, error) {
	icons, err := a.findFiles(IconsLocation)
	if err != nil {
		return nil, err
	}

	if prefix == "" {
		return icons, nil
	}

	result := make([]string, 0, len(icons))
	for _, icon := range icons {
		if strings.HasPrefix(path.Base(icon), prefix) {
			result = append(result, icon)
		}
	}

	return result, nil
}

// MimeFiles returns the MIME type definitions shipped in the AppDir.
func (a *AppDir) MimeFiles() ([]string, error) {
	return a.findFiles(MimeFilesLocation)
}

// CloudProviderFiles returns the libcloudproviders definitions shipped in the AppDir.
func (a *AppDir) CloudProviderFiles() ([]string, error) {
	return a.findFiles(CloudProvidersLocation)
}

// findFiles returns AppDir-relative paths of files below rel, in lexical order.
// Symlinks are included when they point to a regular file.
func (a *AppDir) findFiles(rel string) ([]string, error) {
	root := a.Abs(rel)

	if _, err := os.Stat(root); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	var result []string

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		info, err := os.Stat(p)
		if err != nil || !info.Mode().IsRegular() {
			//nolint:nilerr // Dangling links and special files are not deployable.
			return nil
		}

		relPath, err := filepath.Rel(a.path, p)
		if err != nil {
			return err
		}

		result = append(result, filepath.ToSlash(relPath))

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", rel, err)
	}

	return result, nil
}

// ReadDesktopEntry parses a desktop entry file.
func ReadDesktopEntry(path string) (*DesktopEntry, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
		KeyValueDelimiters:  "=",
	}, path)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", nativepkg.ErrInvalidDesktopEntry, path, err)
	}

	section, err := file.GetSection(desktopEntrySection)
	if err != nil {
		return nil, fmt.Errorf("%w: %s has no [%s] section", nativepkg.ErrInvalidDesktopEntry, path, desktopEntrySection)
	}

	return &DesktopEntry{
		Path:    path,
		Name:    section.Key("Name").String(),
		Comment: section.Key("Comment").String(),
		Icon:    section.Key("Icon").String(),
		Exec:    section.Key("Exec").String(),
		Version: section.Key("X-AppImage-Version").String(),
	}, nil
}

func setIfNotEmpty(m nativepkg.Metadata, key, value string) {
	if value = strings.TrimSpace(value); value != "" {
		m[key] = value
	}
}
