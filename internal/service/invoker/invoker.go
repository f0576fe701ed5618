package invoker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/oshokin/appdir-native-packages/internal/config"
	"github.com/oshokin/appdir-native-packages/internal/domain/nativepkg"
	"github.com/oshokin/appdir-native-packages/internal/logger"
)

const (
	manifestPermissions = 0o644
	outputTailSize      = 4096
)

// errManifestNotSet is returned when a request carries no manifest.
var errManifestNotSet = errors.New("manifest is not set")

// Request describes one backend build.
type Request struct {
	// Backend selects the packaging tool.
	Backend nativepkg.Backend
	// Manifest is the rendered control or spec file.
	Manifest *nativepkg.Manifest
	// Files is the payload, generated entries included.
	Files nativepkg.FileList
	// Metadata is the resolved metadata; the architecture is passed to rpmbuild.
	Metadata nativepkg.Metadata
	// StagingDir is the exclusively owned working directory.
	StagingDir string
	// ArtifactName is the file name the backend must produce.
	ArtifactName string
	// DebianExtraFiles are copied next to the Debian control file.
	DebianExtraFiles []string
}

// InvocationError is returned when the backend cannot be started or exits non-zero.
type InvocationError struct {
	// Command is the full command line.
	Command []string
	// Output is the combined stdout and stderr.
	Output []byte
	// Err is the underlying exec error.
	Err error
}

// Error implements error.
func (e *InvocationError) Error() string {
	msg := fmt.Sprintf("%s: %s: %v", nativepkg.ErrBackendInvocation, strings.Join(e.Command, " "), e.Err)

	if output := strings.TrimSpace(string(tail(e.Output))); output != "" {
		msg += "\n" + output
	}

	return msg
}

// Unwrap exposes both the sentinel and the exec error.
func (e *InvocationError) Unwrap() []error {
	return []error{nativepkg.ErrBackendInvocation, e.Err}
}

// Invoker runs the native packaging tools.
type Invoker struct {
	tools config.Tools
}

// New returns an invoker using the given executables.
func New(tools config.Tools) *Invoker {
	return &Invoker{tools: tools}
}

// Build stages the payload and runs the backend.
func (i *Invoker) Build(ctx context.Context, req Request) (*nativepkg.BuildResult, error) {
	if req.Manifest == nil {
		return nil, errManifestNotSet
	}

	stagingDir, err := filepath.Abs(req.StagingDir)
	if err != nil {
		return nil, fmt.Errorf("resolve staging directory: %w", err)
	}

	req.StagingDir = stagingDir

	lock, err := AcquireLock(req.StagingDir)
	if err != nil {
		return nil, err
	}

	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			logger.WarnKV(ctx, "Unable to release staging lock", "error", releaseErr)
		}
	}()

	root, outDir, err := i.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	artifact := filepath.Join(outDir, req.ArtifactName)
	command := i.command(req, root, outDir)

	logger.InfoKV(ctx, "Running backend", "command", strings.Join(command, " "))

	cmd := exec.CommandContext(ctx, command[0], command[1:]...) //nolint:gosec // Command is built from configuration.
	cmd.Dir = req.StagingDir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err = cmd.Run(); err != nil {
		return nil, &InvocationError{Command: command, Output: output.Bytes(), Err: err}
	}

	logger.DebugKV(ctx, "Backend finished", "output", output.String())

	info, err := os.Stat(artifact)
	if err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s exited successfully but did not produce %s",
			nativepkg.ErrBackendSilentFailure, command[0], artifact)
	}

	return &nativepkg.BuildResult{ArtifactPath: artifact, Output: output.Bytes()}, nil
}

// prepare clears the previous run's leftovers and stages payload and manifest.
func (i *Invoker) prepare(ctx context.Context, req Request) (string, string, error) {
	root := filepath.Join(req.StagingDir, RootDirName)
	outDir := filepath.Join(req.StagingDir, OutputDirName)

	for _, dir := range []string{root, outDir, filepath.Join(req.StagingDir, RPMTopDirName)} {
		if err := os.RemoveAll(dir); err != nil {
			return "", "", fmt.Errorf("clean staging directory: %w", err)
		}
	}

	for _, dir := range []string{root, outDir} {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return "", "", fmt.Errorf("create staging directory: %w", err)
		}
	}

	if err := stage(root, req.Files); err != nil {
		return "", "", err
	}

	logger.DebugKV(ctx, "Staged payload", "root", root, "entries", len(req.Files))

	manifestPath := filepath.Join(req.StagingDir, req.Manifest.Name)

	if req.Backend.Kind == nativepkg.Debian {
		debianDir := filepath.Join(root, DebianDirName)
		if err := os.MkdirAll(debianDir, dirPermissions); err != nil {
			return "", "", fmt.Errorf("create control directory: %w", err)
		}

		if err := copyInto(debianDir, req.DebianExtraFiles); err != nil {
			return "", "", fmt.Errorf("copy extra control files: %w", err)
		}

		manifestPath = filepath.Join(debianDir, req.Manifest.Name)
	}

	if err := os.WriteFile(manifestPath, []byte(req.Manifest.Text), manifestPermissions); err != nil {
		return "", "", fmt.Errorf("write manifest: %w", err)
	}

	return root, outDir, nil
}

func (i *Invoker) command(req Request, root, outDir string) []string {
	executable := i.tools.Command(req.Backend.Kind)

	switch req.Backend.Kind {
	case nativepkg.RPM:
		return []string{
			executable,
			"--define", "_builddir " + req.StagingDir,
			"--define", "_topdir " + filepath.Join(req.StagingDir, RPMTopDirName),
			"--define", "_rpmdir " + outDir,
			"--define", "_rpmfilename " + req.ArtifactName,
			"--define", "_install_root " + root,
			"--define", "_build_id_links none",
			"-bb",
			"--target", req.Metadata.Get(nativepkg.KeyArchitecture),
			req.Manifest.Name,
		}
	default:
		return []string{
			executable,
			"-Zxz",
			"--root-owner-group",
			"-b", root,
			filepath.Join(outDir, req.ArtifactName),
		}
	}
}

func tail(output []byte) []byte {
	if len(output) <= outputTailSize {
		return output
	}

	return output[len(output)-outputTailSize:]
}
