package stage

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/arthur-debert/mlbuild/pkg/errors"
	"github.com/arthur-debert/mlbuild/pkg/logging"
	"github.com/rs/zerolog"
)

// Name identifies a pipeline stage
type Name string

const (
	StageCompile  Name = "compile"
	StageCopy     Name = "copy"
	StageAssemble Name = "assemble"
	StageLink     Name = "link"
	StageRun      Name = "run"
)

// Command is one invocation of an external tool
type Command struct {
	Stage Name
	Path  string
	Args  []string
	// Dir is the working directory, empty for the current one
	Dir string
}

// String renders the command line, quoting arguments that need it
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	for _, p := range append([]string{c.Path}, c.Args...) {
		if p == "" || strings.ContainsAny(p, " \t\n\"'\\") {
			p = strconv.Quote(p)
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

// Result is what a finished process left behind
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Runner executes a command. A process that ran to completion is reported
// through Result, whatever its exit code; the error is reserved for
// processes that could not be started or did not finish.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExecRunner runs commands as child processes
type ExecRunner struct {
	// Timeout bounds every invocation; zero means no limit
	Timeout time.Duration
	logger  zerolog.Logger
}

// NewExecRunner creates a runner with a per-invocation timeout
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{
		Timeout: timeout,
		logger:  logging.GetLogger("stage.runner"),
	}
}

// Run implements Runner
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	if c.Path == "" {
		return nil, errors.New(errors.ErrInvalidInput, "stage command requires a program").
			WithDetail("stage", string(c.Stage))
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.LogCommand(string(c.Stage), c.Path, c.Args)
	start := time.Now()
	err := cmd.Run()
	res := &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		code := errors.ErrStageFailed
		msg := "%s stage was cancelled: %s"
		if stderrors.Is(ctxErr, context.DeadlineExceeded) {
			code = errors.ErrStageTimeout
			msg = "%s stage timed out: %s"
		}
		return res, withCommand(errors.Wrapf(ctxErr, code, msg, c.Stage, c), c, res)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if !stderrors.As(err, &exitErr) {
			return nil, withCommand(errors.Wrapf(err, errors.ErrStageStart,
				"%s stage could not start: %s", c.Stage, c), c, nil)
		}
		res.ExitCode = exitErr.ExitCode()
	}

	r.logger.Debug().
		Str("stage", string(c.Stage)).
		Int("exit_code", res.ExitCode).
		Dur("duration", res.Duration).
		Msg("Stage process finished")
	return res, nil
}

// withCommand attaches the invocation context every stage error must carry
func withCommand(err *errors.MlbuildError, c Command, res *Result) *errors.MlbuildError {
	err.WithDetail("stage", string(c.Stage)).
		WithDetail("command", c.String())
	if res != nil {
		err.WithDetail("exit_code", res.ExitCode).
			WithDetail("stdout", string(res.Stdout)).
			WithDetail("stderr", string(res.Stderr))
	}
	return err
}
