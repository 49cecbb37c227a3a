package config

import (
	"strings"

	"github.com/arthur-debert/mlbuild/pkg/errors"
	toml "github.com/pelletier/go-toml/v2"
)

// GenerateConfigContent generates the configuration file content with commented values
func GenerateConfigContent() string {
	return commentOutConfigValues(string(defaultConfig))
}

// commentOutConfigValues takes the TOML content and comments out all non-comment, non-blank lines
// that contain configuration values (assignments)
func commentOutConfigValues(content string) string {
	lines := strings.Split(content, "\n")
	var result []string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			result = append(result, line)
			continue
		}

		// Keep section headers (e.g., [build]) as-is
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			result = append(result, line)
			continue
		}

		result = append(result, "# "+line)
	}

	return strings.Join(result, "\n")
}

// fileView mirrors Config with TOML-friendly field types
type fileView struct {
	Toolchain struct {
		Compiler  string `toml:"compiler"`
		Assembler string `toml:"assembler"`
		Linker    string `toml:"linker"`
		Emulator  string `toml:"emulator"`
		WorkDir   string `toml:"workdir"`
	} `toml:"toolchain"`
	Extensions struct {
		HighLevel    string `toml:"highlevel"`
		PreAssembled string `toml:"preassembled"`
		Object       string `toml:"object"`
		Binary       string `toml:"binary"`
	} `toml:"extensions"`
	Build struct {
		Excludes []string `toml:"excludes"`
		Jobs     int      `toml:"jobs"`
		Timeout  string   `toml:"timeout"`
		Verify   bool     `toml:"verify"`
	} `toml:"build"`
	Run struct {
		ROM string `toml:"rom"`
	} `toml:"run"`
}

// GenerateTOML renders the effective configuration as a loadable TOML document
func GenerateTOML(cfg *Config) (string, error) {
	var v fileView
	v.Toolchain.Compiler = cfg.Toolchain.Compiler
	v.Toolchain.Assembler = cfg.Toolchain.Assembler
	v.Toolchain.Linker = cfg.Toolchain.Linker
	v.Toolchain.Emulator = cfg.Toolchain.Emulator
	v.Toolchain.WorkDir = cfg.Toolchain.WorkDir
	v.Extensions.HighLevel = cfg.Extensions.HighLevel
	v.Extensions.PreAssembled = cfg.Extensions.PreAssembled
	v.Extensions.Object = cfg.Extensions.Object
	v.Extensions.Binary = cfg.Extensions.Binary
	v.Build.Excludes = cfg.Build.Excludes
	if v.Build.Excludes == nil {
		v.Build.Excludes = []string{}
	}
	v.Build.Jobs = cfg.Build.Jobs
	v.Build.Timeout = cfg.Build.Timeout.String()
	v.Build.Verify = cfg.Build.Verify
	v.Run.ROM = cfg.Run.ROM

	data, err := toml.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrInternal, "failed to render configuration")
	}
	return string(data), nil
}
