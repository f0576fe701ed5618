package signer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/appdir-native-packages/internal/config"
	"github.com/oshokin/appdir-native-packages/internal/domain/nativepkg"
	"github.com/oshokin/appdir-native-packages/internal/testutil"
)

// recorder is a fake tool appending its arguments to a log file next to the package.
const recorder = `for arg in "$@"; do printf '%s\n' "$arg"; done > "$(dirname "$0")/args"
`

const gpgListing = `sec:u:4096:1:ABCDEF0123456789:1700000000:::u:::scESC:::+:::23::0:
fpr:::::::::0123456789ABCDEF0123456789ABCDEF01234567:
uid:u::::1700000000::HASH::Builder <builder@example.org>::::::::::0:
sec:u:4096:1:FEDCBA9876543210:1700000000:::u:::scESC:::+:::23::0:
`

func readArgs(t *testing.T, tool string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(filepath.Dir(tool), "args"))
	require.NoError(t, err)

	return string(data)
}

// TestSign_Debian passes the key to dpkg-sig.
func TestSign_Debian(t *testing.T) {
	t.Parallel()

	tool := testutil.FakeTool(t, "dpkg-sig", recorder)
	s := New(config.Tools{DpkgSig: tool})

	require.NoError(t, s.Sign(context.Background(), nativepkg.Debian, "/tmp/demo.deb", "KEY"))
	require.Equal(t, "--sign=builder\n-k\nKEY\n/tmp/demo.deb\n", readArgs(t, tool))
}

// TestSign_RPMDefaultKey picks the first secret key when none is configured.
func TestSign_RPMDefaultKey(t *testing.T) {
	t.Parallel()

	tool := testutil.FakeTool(t, "rpmsign", recorder)
	gpg := testutil.FakeTool(t, "gpg", "cat <<'LISTING'\n"+gpgListing+"LISTING\n")
	s := New(config.Tools{RPMSign: tool, GPG: gpg})

	require.NoError(t, s.Sign(context.Background(), nativepkg.RPM, "/tmp/demo.rpm", ""))
	require.Equal(t, "--resign\n/tmp/demo.rpm\n-D\n_gpg_name ABCDEF0123456789\n", readArgs(t, tool))
}

// TestSign_RPMNoKey fails when the keyring is empty.
func TestSign_RPMNoKey(t *testing.T) {
	t.Parallel()

	s := New(config.Tools{
		RPMSign: testutil.FakeTool(t, "rpmsign", recorder),
		GPG:     testutil.FakeTool(t, "gpg", "exit 0\n"),
	})

	err := s.Sign(context.Background(), nativepkg.RPM, "/tmp/demo.rpm", "")
	require.ErrorIs(t, err, nativepkg.ErrSigning)
}

// TestSign_Failure wraps tool failures with the captured output.
func TestSign_Failure(t *testing.T) {
	t.Parallel()

	s := New(config.Tools{DpkgSig: testutil.FakeTool(t, "dpkg-sig", "echo 'no secret key' >&2\nexit 1\n")})

	err := s.Sign(context.Background(), nativepkg.Debian, "/tmp/demo.deb", "")
	require.ErrorIs(t, err, nativepkg.ErrSigning)
	require.Contains(t, err.Error(), "no secret key")
}
