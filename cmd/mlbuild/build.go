package mlbuild

import (
	"time"

	"github.com/arthur-debert/mlbuild/pkg/errors"
	"github.com/arthur-debert/mlbuild/pkg/logging"
	"github.com/arthur-debert/mlbuild/pkg/pipeline"
	"github.com/arthur-debert/mlbuild/pkg/rules"
	"github.com/arthur-debert/mlbuild/pkg/stage"
	"github.com/arthur-debert/mlbuild/pkg/ui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type buildOptions struct {
	out                 string
	buildDir            string
	excludes            []string
	entry               string
	includePreAssembled bool
	clean               bool
	jobs                int
	run                 bool
	rom                 string
	format              string
}

func newBuildCmd(deps Deps, global *globalOptions) *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:     "build <source|dir>...",
		Short:   MsgBuildShort,
		Long:    MsgBuildLong,
		Example: MsgBuildExample,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ui.ParseFormat(opts.format)
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("jobs") && opts.jobs < 1 {
				return errors.New(errors.ErrInvalidInput, MsgErrNegativeJobs)
			}
			cfg, err := loadConfig(global, opts.overrides(cmd.Flags()))
			if err != nil {
				return err
			}

			defer logging.LogDuration(time.Now(), "build")

			excludes := rules.NewSet(cfg.Build.Excludes, opts.excludes)
			log.Debug().
				Strs("roots", args).
				Strs("excludes", excludes.Rules()).
				Msg("Build requested")

			toolchain := stage.NewToolchain(deps.NewRunner(cfg), cfg.Toolchain)
			driver := pipeline.NewDriver(deps.Fs, toolchain, cfg.Extensions)

			res, err := driver.Build(cmd.Context(), args, excludes, pipeline.Options{
				Output:              opts.out,
				BuildDir:            opts.buildDir,
				Entry:               opts.entry,
				IncludePreAssembled: opts.includePreAssembled,
				Clean:               opts.clean,
				Jobs:                cfg.Build.Jobs,
				Verify:              cfg.Build.Verify,
				Run:                 opts.run,
				ROM:                 cfg.Run.ROM,
			})
			if err != nil {
				return err
			}

			renderer, err := ui.NewRenderer(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return renderer.RenderBuild(res)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.out, "out", "o", "", MsgFlagOut)
	flags.StringVar(&opts.buildDir, "build-dir", "", MsgFlagBuildDir)
	flags.StringArrayVar(&opts.excludes, "exclude", nil, MsgFlagExclude)
	flags.StringVar(&opts.entry, "entry", "", MsgFlagEntry)
	flags.BoolVar(&opts.includePreAssembled, "include-preassembled", false, MsgFlagIncludePreassembled)
	flags.BoolVar(&opts.clean, "clean", false, MsgFlagClean)
	flags.IntVarP(&opts.jobs, "jobs", "j", 0, MsgFlagJobs)
	flags.BoolVar(&opts.run, "run", false, MsgFlagRun)
	flags.StringVar(&opts.rom, "rom", "", MsgFlagROM)
	flags.StringVar(&opts.format, "format", "auto", MsgFlagFormat)
	_ = cmd.MarkFlagRequired("out")

	return cmd
}

// overrides returns the config keys set by flags given on the command line
func (o *buildOptions) overrides(flags *pflag.FlagSet) map[string]interface{} {
	overrides := map[string]interface{}{}
	flags.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "jobs":
			overrides["build.jobs"] = o.jobs
		case "rom":
			overrides["run.rom"] = o.rom
		}
	})
	return overrides
}
