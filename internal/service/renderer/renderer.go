package renderer

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strconv"
	"strings"
	"text/template"

	"github.com/oshokin/appdir-native-packages/internal/domain/nativepkg"
)

//go:embed templates
var embedded embed.FS

// Renderer renders manifests from a template filesystem.
type Renderer struct {
	fsys fs.FS
}

// Input is everything a manifest is rendered from.
type Input struct {
	// Backend selects the template and the relationship fields.
	Backend nativepkg.Backend
	// Metadata is the resolved metadata.
	Metadata nativepkg.Metadata
	// Files is the complete payload, generated entries included.
	Files nativepkg.FileList
	// InstalledSize is the surveyed installed size in bytes.
	InstalledSize int64
	// Scriptlets are rendered into RPM spec files.
	Scriptlets []nativepkg.Scriptlet
}

type view struct {
	Meta       map[string]string
	Relations  []relation
	Files      []file
	Scriptlets []nativepkg.Scriptlet
}

type relation struct {
	Field string
	Value string
}

type file struct {
	Path      string
	Directory bool
}

// New returns a renderer reading templates from fsys.
func New(fsys fs.FS) *Renderer {
	return &Renderer{fsys: fsys}
}

// Default returns a renderer using the built-in templates.
func Default() *Renderer {
	sub, err := fs.Sub(embedded, "templates")
	if err != nil {
		panic(err)
	}

	return New(sub)
}

// Render produces the manifest for in.Backend.
func (r *Renderer) Render(in Input) (*nativepkg.Manifest, error) {
	tmpl, err := template.New(in.Backend.Template).
		Option("missingkey=error").
		Funcs(funcs()).
		ParseFS(r.fsys, in.Backend.Template)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", nativepkg.ErrTemplateRender, in.Backend.Template, err)
	}

	var buf bytes.Buffer
	if err = tmpl.ExecuteTemplate(&buf, path.Base(in.Backend.Template), newView(in)); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", nativepkg.ErrTemplateRender, in.Backend.Template, err)
	}

	text := buf.String()
	if in.Backend.Kind == nativepkg.Debian {
		text = compactControl(text)
	}

	return &nativepkg.Manifest{
		Backend: in.Backend.Kind,
		Name:    in.Backend.ManifestName,
		Text:    text,
	}, nil
}

func newView(in Input) view {
	meta := make(map[string]string, len(nativepkg.Vocabulary()))
	for _, key := range nativepkg.Vocabulary() {
		meta[key] = in.Metadata.Get(key)
	}

	// Computed from the survey, never taken from user input.
	meta[nativepkg.KeyInstalledSize] = strconv.FormatInt(nativepkg.InstalledSizeKiB(in.InstalledSize), 10)

	v := view{Meta: meta, Scriptlets: in.Scriptlets}

	for _, rel := range in.Backend.Relations {
		if value := strings.TrimSpace(meta[rel.Key]); value != "" {
			v.Relations = append(v.Relations, relation{Field: rel.Field, Value: value})
		}
	}

	for _, entry := range in.Files {
		switch {
		case entry.Kind != nativepkg.Directory:
			v.Files = append(v.Files, file{Path: entry.InstallPath})
		case in.Backend.ListDirectories && entry.Owned:
			v.Files = append(v.Files, file{Path: entry.InstallPath, Directory: true})
		}
	}

	return v
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"debdesc": DebianDescription,
		"rpmpath": RPMPath,
		"rpmtext": RPMText,
	}
}

// DebianDescription formats an extended description: every line is indented
// by one space and empty lines become " .".
func DebianDescription(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			line = "."
		}

		lines[i] = " " + line
	}

	return strings.Join(lines, "\n")
}

// RPMPath quotes a %files path and escapes macro characters.
func RPMPath(p string) string {
	return `"` + RPMText(p) + `"`
}

// RPMText escapes macro characters in free text.
func RPMText(text string) string {
	return strings.ReplaceAll(text, "%", "%%")
}

// compactControl removes empty lines; a control paragraph must not contain any.
func compactControl(text string) string {
	lines := strings.Split(text, "\n")

	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n") + "\n"
}
