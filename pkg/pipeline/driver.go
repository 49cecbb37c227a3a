package pipeline

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/arthur-debert/mlbuild/pkg/artifacts"
	"github.com/arthur-debert/mlbuild/pkg/config"
	"github.com/arthur-debert/mlbuild/pkg/errors"
	"github.com/arthur-debert/mlbuild/pkg/filesystem"
	"github.com/arthur-debert/mlbuild/pkg/logging"
	"github.com/arthur-debert/mlbuild/pkg/objfile"
	"github.com/arthur-debert/mlbuild/pkg/rules"
	"github.com/arthur-debert/mlbuild/pkg/sources"
	"github.com/arthur-debert/mlbuild/pkg/stage"
	"github.com/arthur-debert/mlbuild/pkg/types"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Driver sequences the stages of a build
type Driver struct {
	fs        afero.Fs
	toolchain *stage.Toolchain
	exts      config.Extensions
	logger    zerolog.Logger
}

// NewDriver creates a driver working on fsys
func NewDriver(fsys afero.Fs, toolchain *stage.Toolchain, exts config.Extensions) *Driver {
	return &Driver{
		fs:        fsys,
		toolchain: toolchain,
		exts:      exts,
		logger:    logging.GetLogger("pipeline"),
	}
}

// Build runs the whole pipeline and returns the run's result. On failure
// no later stage has started.
func (d *Driver) Build(ctx context.Context, roots []string, excludes *rules.Set, opts Options) (*Result, error) {
	start := time.Now()
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}

	res := &Result{BuildDir: opts.BuildDir, Output: opts.Output}
	d.logger.Info().
		Strs("roots", roots).
		Str("output", opts.Output).
		Str("buildDir", opts.BuildDir).
		Int("jobs", opts.Jobs).
		Msg("Starting build")

	if opts.Run && !filesystem.Exists(d.fs, opts.ROM) {
		return nil, errors.Newf(errors.ErrFileAccess, "ROM not found: %s", opts.ROM).
			WithDetail("path", opts.ROM)
	}

	if err := d.prepareBuildDir(roots, opts); err != nil {
		return nil, err
	}

	// Resolve and plan
	stageStart := time.Now()
	resolved, err := sources.NewResolver(d.fs, d.exts).Collect(roots, excludes, opts.IncludePreAssembled)
	if err != nil {
		return nil, err
	}
	res.Sources = resolved.Sources
	for _, w := range resolved.Warnings {
		res.Warnings = append(res.Warnings, w.Message)
	}

	plan, err := artifacts.PlanOutputs(res.Sources, opts.BuildDir, d.exts)
	if err != nil {
		return nil, err
	}
	res.Plan = plan.Entries()
	res.timed("plan", plan.Len(), stageStart)

	res.Units = make([]Unit, len(res.Plan))
	for i, entry := range res.Plan {
		res.Units[i] = Unit{Source: entry.Source, Assembly: entry.Output}
	}

	// Every output directory exists before any worker writes
	if err := d.createOutputDirs(res.Units, opts); err != nil {
		return nil, err
	}

	if err := d.runUnits(ctx, "produce", res, opts, d.produce); err != nil {
		return nil, err
	}
	if err := d.runUnits(ctx, "assemble", res, opts, d.assemble); err != nil {
		return nil, err
	}

	objects := make([]string, 0, len(res.Units))
	for _, u := range res.Units {
		objects = append(objects, u.Object)
	}
	res.LinkInputs = artifacts.Dedupe(objects)

	stageStart = time.Now()
	done := logging.LogOperationStart(d.logger, "link")
	if err := d.removeStale(opts.Output); err != nil {
		return nil, err
	}
	if _, err := d.toolchain.Link(ctx, opts.Output, res.LinkInputs); err != nil {
		return nil, err
	}
	if !filesystem.Exists(d.fs, opts.Output) {
		return nil, missingOutput(stage.StageLink, opts.Output)
	}
	done()
	res.timed("link", 1, stageStart)

	if opts.Run {
		stageStart = time.Now()
		out, err := d.run(ctx, opts)
		if err != nil {
			return nil, err
		}
		res.RunOutput = out
		res.timed("run", 1, stageStart)
	}

	res.Duration = time.Since(start)
	d.logger.Info().
		Str("output", opts.Output).
		Int("objects", len(res.LinkInputs)).
		Dur("duration", res.Duration).
		Msg("Build complete")
	return res, nil
}

// prepareBuildDir cleans or creates the build directory. Cleaning refuses
// to remove a directory that holds one of the roots.
func (d *Driver) prepareBuildDir(roots []string, opts Options) error {
	if !opts.Clean {
		return filesystem.EnsureDir(d.fs, opts.BuildDir)
	}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			continue
		}
		if isWithin(abs, opts.BuildDir) {
			return errors.Newf(errors.ErrInvalidInput,
				"refusing to clean %s: it contains source root %s", opts.BuildDir, root).
				WithDetail("path", opts.BuildDir).
				WithDetail("root", root)
		}
	}
	d.logger.Info().Str("buildDir", opts.BuildDir).Msg("Cleaning build directory")
	return filesystem.ResetDir(d.fs, opts.BuildDir)
}

func (d *Driver) createOutputDirs(units []Unit, opts Options) error {
	dirs := []string{filepath.Dir(opts.Output)}
	for _, u := range units {
		dirs = append(dirs, filepath.Dir(u.Assembly))
	}
	for _, dir := range artifacts.Dedupe(dirs) {
		if err := filesystem.EnsureDir(d.fs, dir); err != nil {
			return err
		}
	}
	return nil
}

type unitFunc func(ctx context.Context, u *Unit, opts Options) error

// runUnits applies fn to every unit with at most opts.Jobs in flight.
// Units already running are allowed to finish after a failure, units not
// yet started are skipped, and the failure of the earliest unit wins.
func (d *Driver) runUnits(ctx context.Context, name string, res *Result, opts Options, fn unitFunc) error {
	start := time.Now()
	done := logging.LogOperationStart(d.logger, name)

	errs := make([]error, len(res.Units))
	var failed atomic.Bool

	// a slot is taken before the failure check, so a unit only starts if
	// no unit finished with an error before a slot was free for it
	slots := make(chan struct{}, opts.Jobs)
	var g errgroup.Group
	for i := range res.Units {
		slots <- struct{}{}
		if failed.Load() {
			<-slots
			d.logger.Debug().Str("stage", name).
				Int("skipped", len(res.Units)-i).
				Msg("Skipping units after failure")
			break
		}
		i := i
		g.Go(func() error {
			defer func() { <-slots }()
			if err := fn(ctx, &res.Units[i], opts); err != nil {
				errs[i] = err
				failed.Store(true)
			}
			return nil
		})
	}
	_ = g.Wait()

	var first error
	for i, err := range errs {
		if err == nil {
			continue
		}
		if first == nil {
			first = err
			continue
		}
		d.logger.Error().Err(err).
			Str("stage", name).
			Str("source", res.Units[i].Source.AbsolutePath).
			Msg("Additional failure in stage")
	}
	if first != nil {
		return first
	}

	done()
	res.timed(name, len(res.Units), start)
	return nil
}

// produce writes the unit's assembly file
func (d *Driver) produce(ctx context.Context, u *Unit, opts Options) error {
	if !opts.Clean && filesystem.Exists(d.fs, u.Assembly) {
		d.logger.Debug().Str("path", u.Assembly).Msg("Overwriting existing artifact")
	}

	switch u.Source.Kind {
	case types.HighLevel:
		if err := d.removeStale(u.Assembly); err != nil {
			return err
		}
		if _, err := d.toolchain.Compile(ctx, u.Source.AbsolutePath, u.Assembly, opts.Entry); err != nil {
			return err
		}
		if !filesystem.Exists(d.fs, u.Assembly) {
			return missingOutput(stage.StageCompile, u.Assembly)
		}
	case types.PreAssembled:
		if filesystem.SameFile(d.fs, u.Source.AbsolutePath, u.Assembly) {
			return nil
		}
		if err := filesystem.CopyFile(d.fs, u.Source.AbsolutePath, u.Assembly); err != nil {
			return errors.Wrapf(err, errors.ErrStageFailed, "copy stage failed for %s", u.Source.AbsolutePath).
				WithDetail("stage", string(stage.StageCopy)).
				WithDetail("path", u.Source.AbsolutePath).
				WithDetail("output", u.Assembly)
		}
		u.Copied = true
	default:
		return errors.Newf(errors.ErrInternal, "unhandled source kind %s", u.Source.Kind).
			WithDetail("path", u.Source.AbsolutePath)
	}
	return nil
}

// assemble turns the unit's assembly file into an image and an object
func (d *Driver) assemble(ctx context.Context, u *Unit, opts Options) error {
	derived := artifacts.Derive(u.Assembly, d.exts)
	if err := d.removeStale(derived.Binary, derived.Object); err != nil {
		return err
	}
	if _, err := d.toolchain.Assemble(ctx, derived.Assembly, derived.Binary, derived.Object); err != nil {
		return err
	}
	if !filesystem.Exists(d.fs, derived.Object) {
		return missingOutput(stage.StageAssemble, derived.Object)
	}
	if opts.Verify {
		if err := d.verify(derived.Object); err != nil {
			return err
		}
	}
	u.Binary = derived.Binary
	u.Object = derived.Object
	return nil
}

// verify checks an object the way the linker will read it
func (d *Driver) verify(path string) error {
	obj, err := objfile.ReadFile(d.fs, path)
	if err == nil {
		err = obj.Validate()
	}
	if err != nil {
		return errors.Wrapf(err, errors.ErrStageFailed, "assemble stage produced an invalid object %s", path).
			WithDetail("stage", string(stage.StageAssemble)).
			WithDetail("path", path)
	}
	return nil
}

// run boots the linked image. A ROM given as assembly is assembled into
// the build directory first.
func (d *Driver) run(ctx context.Context, opts Options) (string, error) {
	rom := opts.ROM
	if filepath.Ext(rom) == d.exts.PreAssembled {
		image := filepath.Join(opts.BuildDir, artifacts.ReplaceExt(filepath.Base(rom), d.exts.Binary))
		if err := d.removeStale(image); err != nil {
			return "", err
		}
		if _, err := d.toolchain.Assemble(ctx, rom, image, ""); err != nil {
			return "", err
		}
		if !filesystem.Exists(d.fs, image) {
			return "", missingOutput(stage.StageAssemble, image)
		}
		rom = image
	}

	res, err := d.toolchain.Run(ctx, rom, opts.Output)
	if err != nil {
		return "", err
	}
	return string(res.Stdout), nil
}

// removeStale deletes outputs left by an earlier build so the existence
// check after a stage only passes for files the stage wrote
func (d *Driver) removeStale(paths ...string) error {
	for _, path := range paths {
		if err := filesystem.RemoveIfExists(d.fs, path); err != nil {
			return err
		}
	}
	return nil
}

func missingOutput(name stage.Name, path string) error {
	return errors.Newf(errors.ErrStageFailed, "%s stage reported success but did not write %s", name, path).
		WithDetail("stage", string(name)).
		WithDetail("output", path)
}
