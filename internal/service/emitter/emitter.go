package emitter

import (
	"bytes"
	"context"
	"crypto"
	"crypto/sha512"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/dustin/go-humanize"

	"github.com/oshokin/appdir-native-packages/internal/domain/nativepkg"
	"github.com/oshokin/appdir-native-packages/internal/logger"
)

const (
	// DefaultFileMode is the mode of emitted packages.
	DefaultFileMode = 0o644

	// DefaultChecksumFunction verifies the placed package against the staged artifact.
	DefaultChecksumFunction = crypto.SHA512

	namePlaceholder = "{name}"
)

// Filename returns the canonical file name for a package built with backend.
// {name} is the filename prefix when set, otherwise the package name;
// every other {key} is the metadata value of key.
func Filename(backend nativepkg.Backend, meta nativepkg.Metadata) string {
	name := meta.Get(nativepkg.KeyFilenamePrefix)
	if name == "" {
		name = meta.Get(nativepkg.KeyPackageName)
	}

	pairs := []string{namePlaceholder, safe(name)}
	for _, key := range nativepkg.Vocabulary() {
		pairs = append(pairs, "{"+key+"}", safe(meta.Get(key)))
	}

	return strings.NewReplacer(pairs...).Replace(backend.FilenamePattern)
}

// Check fails with ErrOutputCollision when dest exists and may not be replaced.
func Check(dest string, overwrite bool) error {
	info, err := os.Lstat(dest)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("stat %s: %w", dest, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", nativepkg.ErrOutputCollision, dest)
	}

	if !overwrite {
		return fmt.Errorf("%w: %s already exists", nativepkg.ErrOutputCollision, dest)
	}

	return nil
}

// Emit places artifact at dest and returns the final path.
// The content is verified against the artifact's SHA-512 checksum; on failure
// dest keeps its previous content, or does not exist when it did not before.
func Emit(ctx context.Context, artifact, dest string, overwrite bool) (string, error) {
	dest, err := filepath.Abs(dest)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dest, err)
	}

	if err = Check(dest, overwrite); err != nil {
		return "", err
	}

	data, err := os.ReadFile(artifact)
	if err != nil {
		return "", fmt.Errorf("read artifact: %w", err)
	}

	if err = os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	created, err := ensureTarget(dest)
	if err != nil {
		return "", err
	}

	checksum := sha512.Sum512(data)

	err = goupdate.Apply(bytes.NewReader(data), goupdate.Options{
		TargetPath: dest,
		TargetMode: DefaultFileMode,
		Checksum:   checksum[:],
		Hash:       DefaultChecksumFunction,
	})
	if err != nil {
		if created {
			_ = os.Remove(dest)
		}

		return "", fmt.Errorf("place package: %w", err)
	}

	logger.InfoKV(ctx, "Package written", "path", dest, "size", humanize.IBytes(uint64(len(data))))

	return dest, nil
}

// ensureTarget creates an empty placeholder, the updater only replaces existing files.
func ensureTarget(dest string) (bool, error) {
	file, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, DefaultFileMode)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("create %s: %w", dest, err)
	}

	return true, file.Close()
}

func safe(value string) string {
	return strings.ReplaceAll(value, "/", "_")
}
