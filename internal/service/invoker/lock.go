package invoker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/appdir-native-packages/internal/domain/nativepkg"
)

// LockFilename is the marker claiming a staging directory.
const LockFilename = ".ldnp.lock"

// Lock is a claimed staging directory.
type Lock struct {
	path string
}

// AcquireLock claims dir for the current process.
// A marker left by a process that no longer runs is reclaimed.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}

	path := filepath.Join(dir, LockFilename)

	for range 2 {
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, err = file.WriteString(strconv.Itoa(os.Getpid()))
			if closeErr := file.Close(); err == nil {
				err = closeErr
			}

			if err != nil {
				return nil, fmt.Errorf("write staging lock: %w", err)
			}

			return &Lock{path: path}, nil
		}

		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create staging lock: %w", err)
		}

		if pid, alive := lockOwner(path); alive {
			return nil, fmt.Errorf("%w: %s is locked by process %d", nativepkg.ErrStagingInUse, dir, pid)
		}

		if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale staging lock: %w", err)
		}
	}

	return nil, fmt.Errorf("%w: %s", nativepkg.ErrStagingInUse, dir)
}

// Release removes the marker.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("release staging lock: %w", err)
	}

	return nil
}

// lockOwner reads the PID from the marker and reports whether it still runs.
func lockOwner(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}

	process, err := ps.FindProcess(pid)
	if err != nil || process == nil {
		return pid, false
	}

	return pid, true
}
