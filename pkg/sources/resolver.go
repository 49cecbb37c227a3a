package sources

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/arthur-debert/mlbuild/pkg/config"
	"github.com/arthur-debert/mlbuild/pkg/errors"
	"github.com/arthur-debert/mlbuild/pkg/filesystem"
	"github.com/arthur-debert/mlbuild/pkg/logging"
	"github.com/arthur-debert/mlbuild/pkg/rules"
	"github.com/arthur-debert/mlbuild/pkg/types"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// Result is the outcome of a successful resolution
type Result struct {
	Sources  []types.SourceDescriptor
	Warnings []*errors.MlbuildError
}

// Resolver walks roots and classifies the files it finds
type Resolver struct {
	fs     afero.Fs
	exts   config.Extensions
	logger zerolog.Logger
}

// NewResolver creates a resolver over fsys using the given extensions
func NewResolver(fsys afero.Fs, exts config.Extensions) *Resolver {
	return &Resolver{
		fs:     fsys,
		exts:   exts,
		logger: logging.GetLogger("sources.resolver"),
	}
}

// Collect resolves every root into source descriptors. It fails if a root
// does not exist or if nothing buildable was found.
func (r *Resolver) Collect(roots []string, excludes *rules.Set, includePreAssembled bool) (*Result, error) {
	r.logger.Debug().
		Strs("roots", roots).
		Strs("excludes", excludes.Rules()).
		Bool("includePreAssembled", includePreAssembled).
		Msg("Collecting sources")

	result := &Result{}
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrInvalidInput, "cannot resolve root path").
				WithDetail("root", root)
		}

		info, err := r.fs.Stat(abs)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Newf(errors.ErrRootNotFound, "source root does not exist: %s", root).
					WithDetail("root", root).
					WithDetail("path", abs)
			}
			return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot access source root").
				WithDetail("root", root).
				WithDetail("path", abs)
		}

		if info.IsDir() {
			// the walk does not descend into a root that is itself a link
			if abs, err = filesystem.ResolveLinks(r.fs, abs); err != nil {
				return nil, err
			}
			if err := r.collectDir(abs, excludes, includePreAssembled, result); err != nil {
				return nil, err
			}
			continue
		}

		r.collectFile(abs, includePreAssembled, result)
	}

	if len(result.Sources) == 0 {
		return nil, errors.New(errors.ErrNoSources, "no sources found").
			WithDetail("roots", roots).
			WithDetail("excludes", excludes.Rules())
	}

	r.logger.Info().
		Int("sources", len(result.Sources)).
		Int("warnings", len(result.Warnings)).
		Msg("Collected sources")

	return result, nil
}

// collectFile handles a root that is a single file. The relative path is
// the file name.
func (r *Resolver) collectFile(abs string, includePreAssembled bool, result *Result) {
	name := filepath.Base(abs)
	kind, warning := r.classify(abs, includePreAssembled)
	if warning != nil {
		r.logger.Warn().Str("path", abs).Msg(warning.Message)
		result.Warnings = append(result.Warnings, warning)
		return
	}
	result.Sources = append(result.Sources, types.SourceDescriptor{
		AbsolutePath: abs,
		RelativePath: name,
		Kind:         kind,
	})
}

// collectDir walks a directory root top-down, pruning excluded directories
func (r *Resolver) collectDir(root string, excludes *rules.Set, includePreAssembled bool, result *Result) error {
	var found []types.SourceDescriptor

	err := afero.Walk(r.fs, root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return errors.Wrap(walkErr, errors.ErrFileAccess, "cannot read source tree").
				WithDetail("root", root).
				WithDetail("path", path)
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return errors.Wrap(err, errors.ErrInternal, "cannot relativize path").
				WithDetail("root", root).
				WithDetail("path", path)
		}
		rel = rules.Normalize(filepath.ToSlash(rel))

		if info.IsDir() {
			if excludes.Excludes(rel) {
				r.logger.Debug().Str("dir", rel).Msg("Pruning excluded directory")
				return filepath.SkipDir
			}
			return nil
		}

		if excludes.Excludes(rel) {
			r.logger.Trace().Str("file", rel).Msg("Skipping excluded file")
			return nil
		}

		kind, warning := r.classify(path, includePreAssembled)
		if warning != nil {
			r.logger.Debug().Str("file", rel).Msg(warning.Message)
			result.Warnings = append(result.Warnings, warning)
			return nil
		}

		found = append(found, types.SourceDescriptor{
			AbsolutePath: path,
			RelativePath: rel,
			Kind:         kind,
		})
		return nil
	})
	if err != nil {
		return err
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].RelativePath < found[j].RelativePath
	})

	r.logger.Debug().Str("root", root).Int("count", len(found)).Msg("Walked source root")
	result.Sources = append(result.Sources, found...)
	return nil
}

// classify decides the kind of a file, or returns the warning explaining
// why it is skipped
func (r *Resolver) classify(path string, includePreAssembled bool) (types.SourceKind, *errors.MlbuildError) {
	ext := filepath.Ext(path)
	switch {
	case ext != "" && ext == r.exts.HighLevel:
		return types.HighLevel, nil
	case ext != "" && ext == r.exts.PreAssembled:
		if includePreAssembled {
			return types.PreAssembled, nil
		}
		return 0, errors.Newf(errors.ErrUnsupportedSource,
			"skipping pre-assembled source (pre-assembled sources not enabled): %s", path).
			WithDetail("path", path)
	default:
		return 0, errors.Newf(errors.ErrUnsupportedSource, "skipping unsupported file: %s", path).
			WithDetail("path", path)
	}
}
