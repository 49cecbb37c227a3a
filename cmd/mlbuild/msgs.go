package mlbuild

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "Build ml toolchain sources into a linked image"
	MsgBuildShort      = "Compile, assemble and link sources"
	MsgInspectShort    = "Show the contents of object files"
	MsgConfigShort     = "Print the default or effective configuration"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"
	MsgManShort        = "Generate the man page"

	// Status messages
	MsgVersionFormat = "mlbuild version %s\n  commit: %s\n  built:  %s\n"

	// Error messages
	MsgErrInspectFailed = "%d of %d object file(s) could not be inspected"
	MsgErrNegativeBytes = "--max-bytes must not be negative"
	MsgErrNegativeJobs  = "--jobs must be at least 1"

	// Flag descriptions
	MsgFlagVerbose             = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig              = "Read this config file instead of .mlbuild.toml"
	MsgFlagOut                 = "Path of the linked output image (required)"
	MsgFlagBuildDir            = "Directory for intermediate files (default: the output's directory)"
	MsgFlagExclude             = "Exclude a relative path or a path segment (repeatable)"
	MsgFlagEntry               = "Entry function bound to the program start symbol"
	MsgFlagIncludePreassembled = "Accept pre-assembled sources found in directories"
	MsgFlagClean               = "Remove the build directory before building"
	MsgFlagJobs                = "Number of sources compiled or assembled at once (default from config)"
	MsgFlagRun                 = "Boot the linked image in the emulator"
	MsgFlagROM                 = "ROM image (or ROM assembly source) for --run"
	MsgFlagFormat              = "Output format: auto, term, text, json or yaml"
	MsgFlagMaxBytes            = "Maximum bytes shown in the text and data previews"
	MsgFlagEffective           = "Print the effective configuration instead of the defaults"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/build-long.txt
	msgBuildLongRaw string
	MsgBuildLong    = strings.TrimSpace(msgBuildLongRaw)

	//go:embed msgs/build-example.txt
	msgBuildExampleRaw string
	MsgBuildExample    = strings.TrimRight(msgBuildExampleRaw, "\n")

	//go:embed msgs/inspect-long.txt
	msgInspectLongRaw string
	MsgInspectLong    = strings.TrimSpace(msgInspectLongRaw)

	//go:embed msgs/config-long.txt
	msgConfigLongRaw string
	MsgConfigLong    = strings.TrimSpace(msgConfigLongRaw)

	//go:embed msgs/completion-long.txt
	msgCompletionLongRaw string
	MsgCompletionLong    = strings.TrimSpace(msgCompletionLongRaw)

	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	MsgUsageTemplate    = strings.TrimSpace(msgUsageTemplateRaw)
)
