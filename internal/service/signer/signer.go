package signer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/oshokin/appdir-native-packages/internal/config"
	"github.com/oshokin/appdir-native-packages/internal/domain/nativepkg"
	"github.com/oshokin/appdir-native-packages/internal/logger"
)

// Default executables.
const (
	DpkgSig = "dpkg-sig"
	RPMSign = "rpmsign"
	GPG     = "gpg"
)

// errNoSecretKey is returned when no key is configured and the keyring holds no secret key.
var errNoSecretKey = errors.New("no secret key available")

// Signer signs package files.
type Signer struct {
	tools config.Tools
}

// New returns a signer using the given executables.
func New(tools config.Tools) *Signer {
	return &Signer{tools: tools}
}

// Sign signs the package at path in place. An empty key lets the tool choose,
// except for rpmsign which needs an identity: the first secret key is used.
func (s *Signer) Sign(ctx context.Context, kind nativepkg.Kind, path, key string) error {
	var command []string

	switch kind {
	case nativepkg.Debian:
		command = []string{orDefault(s.tools.DpkgSig, DpkgSig), "--sign=builder"}
		if key != "" {
			command = append(command, "-k", key)
		}

		command = append(command, path)
	case nativepkg.RPM:
		if key == "" {
			var err error

			if key, err = s.DefaultKey(ctx); err != nil {
				return err
			}
		}

		command = []string{orDefault(s.tools.RPMSign, RPMSign), "--resign", path, "-D", "_gpg_name " + key}
	default:
		return fmt.Errorf("%w: %s", nativepkg.ErrUnknownBackend, kind)
	}

	logger.InfoKV(ctx, "Signing package", "path", path, "key", key)

	if _, err := run(ctx, command); err != nil {
		return err
	}

	return nil
}

// DefaultKey returns the key id of the first secret key in the keyring.
func (s *Signer) DefaultKey(ctx context.Context) (string, error) {
	output, err := run(ctx, []string{orDefault(s.tools.GPG, GPG), "--batch", "--list-secret-keys", "--with-colons"})
	if err != nil {
		return "", err
	}

	if key := firstSecretKey(output); key != "" {
		logger.DebugKV(ctx, "Using first secret key", "key", key)

		return key, nil
	}

	return "", fmt.Errorf("%w: %w", nativepkg.ErrSigning, errNoSecretKey)
}

// firstSecretKey parses gpg --with-colons output; field 5 of a "sec" record is the key id.
func firstSecretKey(output []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ":")
		if len(fields) > 4 && fields[0] == "sec" && fields[4] != "" {
			return fields[4]
		}
	}

	return ""
}

func run(ctx context.Context, command []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, command[0], command[1:]...) //nolint:gosec // Command is built from configuration.

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w\n%s",
			nativepkg.ErrSigning, strings.Join(command, " "), err, strings.TrimSpace(string(output)))
	}

	return output, nil
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}

	return fallback
}
