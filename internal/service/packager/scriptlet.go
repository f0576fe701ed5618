package packager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/oshokin/appdir-native-packages/internal/domain/nativepkg"
	"github.com/oshokin/appdir-native-packages/internal/logger"
)

// errEmptyScriptlet is returned for scriptlet files without content.
var errEmptyScriptlet = errors.New("scriptlet is empty")

// LoadScriptlets reads the configured rpm scriptlets in manifest order.
// Shell scriptlets are parsed so syntax errors surface before rpmbuild runs.
func LoadScriptlets(ctx context.Context, paths map[string]string) ([]nativepkg.Scriptlet, error) {
	var scriptlets []nativepkg.Scriptlet

	for _, scriptletType := range nativepkg.ScriptletTypes() {
		path, ok := paths[scriptletType]
		if !ok || path == "" {
			continue
		}

		scriptlet, err := loadScriptlet(scriptletType, path)
		if err != nil {
			return nil, fmt.Errorf("load %s scriptlet %s: %w", scriptletType, path, err)
		}

		logger.InfoKV(ctx, "Found scriptlet", "type", scriptletType, "path", path)

		scriptlets = append(scriptlets, *scriptlet)
	}

	return scriptlets, nil
}

func loadScriptlet(scriptletType, path string) (*nativepkg.Scriptlet, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	body := strings.TrimRight(string(data), "\n")
	if strings.TrimSpace(body) == "" {
		return nil, errEmptyScriptlet
	}

	interpreter := Shebang(body)

	if variant, ok := shellVariant(interpreter); ok {
		parser := syntax.NewParser(syntax.Variant(variant))
		if _, err = parser.Parse(strings.NewReader(body), path); err != nil {
			return nil, err
		}
	}

	return &nativepkg.Scriptlet{Type: scriptletType, Interpreter: interpreter, Body: body}, nil
}

// Shebang returns the interpreter named on the first line of script, if any.
func Shebang(script string) string {
	firstLine, _, _ := strings.Cut(script, "\n")
	if !strings.HasPrefix(firstLine, "#!") {
		return ""
	}

	return strings.TrimSpace(firstLine[2:])
}

// shellVariant maps an interpreter to a shell dialect the parser understands.
// Scripts without a shebang run under /bin/sh.
func shellVariant(interpreter string) (syntax.LangVariant, bool) {
	fields := strings.Fields(interpreter)
	if len(fields) == 0 {
		return syntax.LangPOSIX, true
	}

	program := filepath.Base(fields[0])
	if program == "env" && len(fields) > 1 {
		program = filepath.Base(fields[1])
	}

	switch program {
	case "sh", "dash":
		return syntax.LangPOSIX, true
	case "bash":
		return syntax.LangBash, true
	case "mksh":
		return syntax.LangMirBSDKorn, true
	default:
		return 0, false
	}
}
