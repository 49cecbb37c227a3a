package mlbuild

import (
	"github.com/arthur-debert/mlbuild/pkg/errors"
	"github.com/arthur-debert/mlbuild/pkg/logging"
	"github.com/arthur-debert/mlbuild/pkg/objfile"
	"github.com/arthur-debert/mlbuild/pkg/ui"
	"github.com/spf13/cobra"
)

func newInspectCmd(deps Deps) *cobra.Command {
	var (
		maxBytes int
		format   string
	)

	cmd := &cobra.Command{
		Use:     "inspect <object>...",
		Short:   MsgInspectShort,
		Long:    MsgInspectLong,
		GroupID: "core",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxBytes < 0 {
				return errors.New(errors.ErrInvalidInput, MsgErrNegativeBytes)
			}
			f, err := ui.ParseFormat(format)
			if err != nil {
				return err
			}
			// auto means the plain viewer layout here
			if f == ui.FormatAuto {
				f = ui.FormatText
			}

			reports := make([]*objfile.Report, 0, len(args))
			failed := 0
			for _, path := range args {
				report := objfile.InspectFile(deps.Fs, path, maxBytes)
				if report.Failed() {
					failed++
					logger := logging.WithFields(map[string]interface{}{"path": path})
					logger.Warn().Err(report.Err()).Msg("Cannot inspect object")
				}
				reports = append(reports, report)
			}

			renderer, err := ui.NewRenderer(f, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := renderer.RenderInspection(reports); err != nil {
				return err
			}

			if failed > 0 {
				return errors.Newf(errors.ErrFormatRecord, MsgErrInspectFailed, failed, len(reports)).
					WithDetail("failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxBytes, "max-bytes", objfile.DefaultMaxBytes, MsgFlagMaxBytes)
	cmd.Flags().StringVar(&format, "format", "text", MsgFlagFormat)

	return cmd
}
