package stage

import (
	"context"
	"strings"

	"github.com/arthur-debert/mlbuild/pkg/config"
	"github.com/arthur-debert/mlbuild/pkg/errors"
	"github.com/arthur-debert/mlbuild/pkg/logging"
	"github.com/rs/zerolog"
)

// DiagnosticMarker is the substring tools put on their diagnostic lines
const DiagnosticMarker = "error:"

// Toolchain knows how to invoke each external tool
type Toolchain struct {
	runner Runner
	tools  config.Toolchain
	logger zerolog.Logger
}

// NewToolchain binds the configured tools to a runner
func NewToolchain(runner Runner, tools config.Toolchain) *Toolchain {
	return &Toolchain{
		runner: runner,
		tools:  tools,
		logger: logging.GetLogger("stage.toolchain"),
	}
}

// CompileCommand builds the compiler invocation. The entry point, when
// given, is passed before the positional arguments.
func (t *Toolchain) CompileCommand(src, out, entry string) Command {
	var args []string
	if entry != "" {
		args = append(args, "-entry", entry)
	}
	args = append(args, src, out)
	return t.command(StageCompile, t.tools.Compiler, args)
}

// AssembleCommand builds the assembler invocation. An empty object path
// produces a plain image without an object artifact.
func (t *Toolchain) AssembleCommand(asm, bin, obj string) Command {
	args := []string{asm, bin}
	if obj != "" {
		args = append(args, "--obj", obj)
	}
	return t.command(StageAssemble, t.tools.Assembler, args)
}

// LinkCommand builds the linker invocation; objects keep their order
func (t *Toolchain) LinkCommand(out string, objects []string) Command {
	args := make([]string, 0, len(objects)+1)
	args = append(args, out)
	args = append(args, objects...)
	return t.command(StageLink, t.tools.Linker, args)
}

// RunCommand builds the emulator invocation
func (t *Toolchain) RunCommand(rom, image string) Command {
	return t.command(StageRun, t.tools.Emulator, []string{"--rom", rom, "--ram", image})
}

func (t *Toolchain) command(stage Name, tool string, args []string) Command {
	return Command{Stage: stage, Path: tool, Args: args, Dir: t.tools.WorkDir}
}

// Compile translates a high-level source into assembly
func (t *Toolchain) Compile(ctx context.Context, src, out, entry string) (*Result, error) {
	return t.Invoke(ctx, t.CompileCommand(src, out, entry))
}

// Assemble produces the pre-link image and the object artifact
func (t *Toolchain) Assemble(ctx context.Context, asm, bin, obj string) (*Result, error) {
	return t.Invoke(ctx, t.AssembleCommand(asm, bin, obj))
}

// Link combines objects, in priority order, into the final image
func (t *Toolchain) Link(ctx context.Context, out string, objects []string) (*Result, error) {
	if len(objects) == 0 {
		return nil, errors.New(errors.ErrStageFailed, "link stage has no object inputs").
			WithDetail("stage", string(StageLink)).
			WithDetail("output", out)
	}
	return t.Invoke(ctx, t.LinkCommand(out, objects))
}

// Run boots the emulator with image loaded as RAM
func (t *Toolchain) Run(ctx context.Context, rom, image string) (*Result, error) {
	return t.Invoke(ctx, t.RunCommand(rom, image))
}

// Invoke runs c and turns a non-zero exit into a stage failure
func (t *Toolchain) Invoke(ctx context.Context, c Command) (*Result, error) {
	t.logger.Info().Str("stage", string(c.Stage)).Msg("+ " + c.String())

	res, err := t.runner.Run(ctx, c)
	if err != nil {
		return res, err
	}
	if res.ExitCode != 0 {
		stderr := string(res.Stderr)
		t.logger.Error().
			Str("stage", string(c.Stage)).
			Str("command", c.String()).
			Int("exit_code", res.ExitCode).
			Str("stdout", string(res.Stdout)).
			Str("stderr", stderr).
			Msg("Stage failed")

		return res, withCommand(errors.Newf(errors.ErrStageFailed,
			"%s stage failed with exit code %d: %s", c.Stage, res.ExitCode, c), c, res).
			WithDetail("diagnostics", Diagnostics(stderr))
	}
	return res, nil
}

// Diagnostics picks the diagnostic lines out of tool output
func Diagnostics(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		if strings.Contains(line, DiagnosticMarker) {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	return lines
}
