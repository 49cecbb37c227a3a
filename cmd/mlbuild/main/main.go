package main

import (
	"os"

	"github.com/arthur-debert/mlbuild/cmd/mlbuild"
	"github.com/arthur-debert/mlbuild/pkg/logging"
)

func main() {
	rootCmd := mlbuild.NewRootCmd()
	err := rootCmd.Execute()
	logging.Close()
	if err != nil {
		mlbuild.ReportError(os.Stderr, err)
		os.Exit(mlbuild.ExitCode(err))
	}
}
