package packager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/oshokin/appdir-native-packages/internal/config"
	"github.com/oshokin/appdir-native-packages/internal/domain/nativepkg"
	"github.com/oshokin/appdir-native-packages/internal/logger"
	"github.com/oshokin/appdir-native-packages/internal/repository/appdir"
	"github.com/oshokin/appdir-native-packages/internal/service/emitter"
	"github.com/oshokin/appdir-native-packages/internal/service/integration"
	"github.com/oshokin/appdir-native-packages/internal/service/invoker"
	"github.com/oshokin/appdir-native-packages/internal/service/renderer"
	"github.com/oshokin/appdir-native-packages/internal/service/resolver"
	"github.com/oshokin/appdir-native-packages/internal/service/signer"
	"github.com/oshokin/appdir-native-packages/internal/service/surveyor"
)

// Stage names prefixed to pipeline errors.
const (
	StageResolve   = "resolve metadata"
	StageSurvey    = "survey appdir"
	StageIntegrate = "plan desktop integration"
	StageRender    = "render manifest"
	StageInvoke    = "invoke backend"
	StageSign      = "sign package"
	StageEmit      = "emit package"
)

// packager holds the state shared by all builds of one run.
// It is unexported; callers should use Run.
type packager struct {
	// cfg is the validated configuration.
	cfg *config.Config
	// dir is the AppDir being packaged.
	dir *appdir.AppDir
	// facts are read once from the AppDir.
	facts nativepkg.Metadata
	// scriptlets are loaded once and used for rpm builds.
	scriptlets []nativepkg.Scriptlet
	renderer   *renderer.Renderer
	invoker    *invoker.Invoker
	signer     *signer.Signer
}

// Run builds every requested package and returns the emitted paths in build order.
func Run(ctx context.Context, cfg *config.Config) ([]string, error) {
	ctx = logger.WithName(ctx, "packager")

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	pkg, err := newPackager(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize packager: %w", err)
	}

	kinds, err := cfg.Kinds()
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(kinds))

	for _, kind := range kinds {
		path, err := pkg.build(ctx, kind)
		if err != nil {
			return paths, fmt.Errorf("build %s: %w", kind, err)
		}

		paths = append(paths, path)
	}

	logger.InfoKV(ctx, "Packaging completed successfully", "packages", len(paths))

	return paths, nil
}

func newPackager(ctx context.Context, cfg *config.Config) (*packager, error) {
	dir, err := appdir.Open(cfg.AppDir)
	if err != nil {
		return nil, err
	}

	facts, err := dir.Facts()
	if err != nil {
		return nil, fmt.Errorf("read appdir facts: %w", err)
	}

	scriptlets, err := LoadScriptlets(ctx, cfg.RPMScriptlets)
	if err != nil {
		return nil, err
	}

	return &packager{
		cfg:        cfg,
		dir:        dir,
		facts:      facts,
		scriptlets: scriptlets,
		renderer:   renderer.Default(),
		invoker:    invoker.New(cfg.Tools),
		signer:     signer.New(cfg.Tools),
	}, nil
}

// build runs the pipeline for one backend.
func (p *packager) build(ctx context.Context, kind nativepkg.Kind) (string, error) {
	backend := kind.Backend()
	ctx = logger.WithName(ctx, backend.Name)

	meta, err := resolver.Resolve(ctx, backend, p.cfg.HostArch, resolver.Sources{
		Overrides:   p.cfg.Metadata,
		Environment: p.cfg.Environment,
		Facts:       p.facts,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", StageResolve, err)
	}

	logger.DebugKV(ctx, "Resolved metadata", "metadata", meta.String())

	prefix := nativepkg.InstallPrefix(meta.Get(nativepkg.KeyPackageName))

	survey, err := surveyor.Run(p.dir.Path(), prefix, surveyor.Options{Directories: backend.ListDirectories})
	if err != nil {
		return "", fmt.Errorf("%s: %w", StageSurvey, err)
	}

	logger.InfoKV(ctx, "Surveyed AppDir",
		"entries", len(survey.Files),
		"installed_size", humanize.IBytes(uint64(survey.InstalledSize)), //nolint:gosec // Sizes are never negative.
		"block_size", survey.BlockSize)

	generated, err := integration.Plan(ctx, p.dir, prefix)
	if err != nil {
		return "", fmt.Errorf("%s: %w", StageIntegrate, err)
	}

	files := survey.Files.Merge(generated)

	name := emitter.Filename(backend, meta)
	dest := filepath.Join(p.cfg.OutputDir, name)

	// Fail before the expensive backend run when the output is taken.
	if err = emitter.Check(dest, p.cfg.Overwrite); err != nil {
		return "", fmt.Errorf("%s: %w", StageEmit, err)
	}

	input := renderer.Input{
		Backend:       backend,
		Metadata:      meta,
		Files:         files,
		InstalledSize: survey.InstalledSize,
	}

	if kind == nativepkg.RPM {
		input.Scriptlets = p.scriptlets
	}

	manifest, err := p.renderer.Render(input)
	if err != nil {
		return "", fmt.Errorf("%s: %w", StageRender, err)
	}

	logger.DebugKV(ctx, "Rendered manifest", "name", manifest.Name, "text", manifest.Text)

	stagingDir, cleanup, err := p.stagingDir(ctx, backend)
	if err != nil {
		return "", fmt.Errorf("%s: %w", StageInvoke, err)
	}
	defer cleanup()

	result, err := p.invoker.Build(ctx, invoker.Request{
		Backend:          backend,
		Manifest:         manifest,
		Files:            files,
		Metadata:         meta,
		StagingDir:       stagingDir,
		ArtifactName:     name,
		DebianExtraFiles: p.cfg.DebianExtraFiles,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", StageInvoke, err)
	}

	if p.cfg.Sign {
		if err = p.signer.Sign(ctx, kind, result.ArtifactPath, p.cfg.GPGKey); err != nil {
			return "", fmt.Errorf("%s: %w", StageSign, err)
		}
	}

	path, err := emitter.Emit(ctx, result.ArtifactPath, dest, p.cfg.Overwrite)
	if err != nil {
		return "", fmt.Errorf("%s: %w", StageEmit, err)
	}

	return path, nil
}

// stagingDir returns the backend's staging directory and a cleanup function.
// Temporary directories are removed unless KeepStaging is set.
func (p *packager) stagingDir(ctx context.Context, backend nativepkg.Backend) (string, func(), error) {
	if p.cfg.StagingDir != "" {
		return filepath.Join(p.cfg.StagingDir, backend.Name), func() {}, nil
	}

	dir, err := os.MkdirTemp("", "ldnp-"+backend.Name+"-")
	if err != nil {
		return "", nil, fmt.Errorf("create staging directory: %w", err)
	}

	if p.cfg.KeepStaging {
		logger.InfoKV(ctx, "Keeping staging directory", "path", dir)

		return dir, func() {}, nil
	}

	return dir, func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.WarnKV(ctx, "Unable to remove staging directory", "path", dir, "error", err)
		}
	}, nil
}
