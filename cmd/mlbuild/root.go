package mlbuild

import (
	"fmt"

	"github.com/arthur-debert/mlbuild/internal/version"
	"github.com/arthur-debert/mlbuild/pkg/config"
	"github.com/arthur-debert/mlbuild/pkg/filesystem"
	"github.com/arthur-debert/mlbuild/pkg/logging"
	"github.com/arthur-debert/mlbuild/pkg/stage"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// Deps are the outside-world collaborators of the commands
type Deps struct {
	// Fs is the filesystem builds read and write
	Fs afero.Fs
	// NewRunner creates the process runner for a loaded configuration
	NewRunner func(cfg *config.Config) stage.Runner
}

// DefaultDeps runs real processes against the OS filesystem
func DefaultDeps() Deps {
	return Deps{
		Fs: filesystem.NewOS(),
		NewRunner: func(cfg *config.Config) stage.Runner {
			return stage.NewExecRunner(cfg.Build.Timeout)
		},
	}
}

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	verbosity  int
	configFile string
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithDeps(DefaultDeps())
}

// NewRootCmdWithDeps creates the root command over the given collaborators
func NewRootCmdWithDeps(deps Deps) *cobra.Command {
	initTemplateFormatting()

	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:     "mlbuild",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(opts.verbosity)
			log.Info().
				Str("command", cmd.Name()).
				Str("cmdline", logging.CommandLine(cmd.CommandPath(), args)).
				Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	rootCmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", MsgFlagConfig)

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "COMMANDS:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "misc",
		Title: "MISC:",
	})

	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	rootCmd.AddCommand(newBuildCmd(deps, opts))
	rootCmd.AddCommand(newInspectCmd(deps))
	rootCmd.AddCommand(newConfigCmd(opts))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(newManCmd())

	return rootCmd
}

// loadConfig reads the layered configuration for the current directory
func loadConfig(opts *globalOptions, overrides map[string]interface{}) (*config.Config, error) {
	return config.Load(config.LoadOptions{
		ConfigFile: opts.configFile,
		Overrides:  overrides,
	})
}
