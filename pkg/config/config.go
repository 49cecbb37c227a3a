package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/arthur-debert/mlbuild/pkg/errors"
)

// Config is the effective configuration for one mlbuild invocation
type Config struct {
	Toolchain  Toolchain  `koanf:"toolchain"`
	Extensions Extensions `koanf:"extensions"`
	Build      Build      `koanf:"build"`
	Run        Run        `koanf:"run"`
}

// Toolchain locates the external stage executables
type Toolchain struct {
	Compiler  string `koanf:"compiler"`
	Assembler string `koanf:"assembler"`
	Linker    string `koanf:"linker"`
	Emulator  string `koanf:"emulator"`
	WorkDir   string `koanf:"workdir"`
}

// Extensions maps file kinds to their extensions
type Extensions struct {
	HighLevel    string `koanf:"highlevel"`
	PreAssembled string `koanf:"preassembled"`
	Object       string `koanf:"object"`
	Binary       string `koanf:"binary"`
}

// Build holds pipeline tuning
type Build struct {
	Excludes []string      `koanf:"excludes"`
	Jobs     int           `koanf:"jobs"`
	Timeout  time.Duration `koanf:"timeout"`
	Verify   bool          `koanf:"verify"`
}

// Run configures the optional emulator stage
type Run struct {
	ROM string `koanf:"rom"`
}

// Validate checks that the configuration can drive a build
func (c *Config) Validate() error {
	tools := map[string]string{
		"toolchain.compiler":  c.Toolchain.Compiler,
		"toolchain.assembler": c.Toolchain.Assembler,
		"toolchain.linker":    c.Toolchain.Linker,
	}
	for key, value := range tools {
		if strings.TrimSpace(value) == "" {
			return errors.Newf(errors.ErrConfigValid, "%s must not be empty", key).
				WithDetail("key", key)
		}
	}

	exts := []struct {
		key   string
		value string
	}{
		{"extensions.highlevel", c.Extensions.HighLevel},
		{"extensions.preassembled", c.Extensions.PreAssembled},
		{"extensions.object", c.Extensions.Object},
		{"extensions.binary", c.Extensions.Binary},
	}
	seen := make(map[string]string)
	for _, ext := range exts {
		if len(ext.value) < 2 || !strings.HasPrefix(ext.value, ".") || strings.ContainsAny(ext.value, `/\`) {
			return errors.Newf(errors.ErrConfigValid, "%s must look like \".ext\", got %q", ext.key, ext.value).
				WithDetail("key", ext.key)
		}
		if other, ok := seen[ext.value]; ok {
			return errors.Newf(errors.ErrConfigValid, "%s and %s share extension %q", other, ext.key, ext.value).
				WithDetail("key", ext.key)
		}
		seen[ext.value] = ext.key
	}

	if c.Build.Jobs < 1 {
		return errors.Newf(errors.ErrConfigValid, "build.jobs must be at least 1, got %d", c.Build.Jobs).
			WithDetail("key", "build.jobs")
	}
	if c.Build.Timeout <= 0 {
		return errors.Newf(errors.ErrConfigValid, "build.timeout must be positive, got %s", c.Build.Timeout).
			WithDetail("key", "build.timeout")
	}
	return nil
}

// String renders a one-line summary for debug logs
func (c *Config) String() string {
	return fmt.Sprintf("compiler=%s assembler=%s linker=%s jobs=%d timeout=%s",
		c.Toolchain.Compiler, c.Toolchain.Assembler, c.Toolchain.Linker, c.Build.Jobs, c.Build.Timeout)
}
