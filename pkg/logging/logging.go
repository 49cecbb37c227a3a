package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls where log output goes
type Options struct {
	// Verbosity is the number of -v flags: 0 warn, 1 info, 2 debug, 3+ trace
	Verbosity int
	// Console receives human-readable output (default: stderr)
	Console io.Writer
	// LogFile is appended to in JSON form (default: the XDG state log)
	LogFile string
}

var (
	fileMu sync.Mutex
	file   *os.File
)

// SetupLogger configures the global logger based on verbosity level
// It sets up dual output to both console and a log file
func SetupLogger(verbosity int) {
	Setup(Options{Verbosity: verbosity})
}

// Setup configures the global logger. Calling it again replaces the
// previous configuration and closes the previous log file.
func Setup(opts Options) {
	zerolog.SetGlobalLevel(levelFor(opts.Verbosity))

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	consoleWriter := zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: time.Kitchen,
		NoColor:    !isTerminal(console),
	}

	logPath := opts.LogFile
	if logPath == "" {
		logPath = getLogFilePath()
	}
	handle, err := setupLogFile(logPath)
	swapLogFile(handle)

	writers := []io.Writer{consoleWriter}
	if handle != nil {
		writers = append(writers, handle)
	}

	// builds from several shells share one log file
	log.Logger = zerolog.New(io.MultiWriter(writers...)).With().
		Timestamp().
		Int("pid", os.Getpid()).
		Logger()

	if err != nil {
		log.Warn().Err(err).Str("path", logPath).Msg("Failed to create log file, logging to console only")
	}

	if opts.Verbosity >= 2 {
		log.Logger = log.Logger.With().Caller().Logger()
	}

	log.Debug().Int("verbosity", opts.Verbosity).Str("logFile", logPath).Msg("Logger initialized")
}

// Close releases the log file. Logging keeps going to the console.
func Close() {
	swapLogFile(nil)
}

func swapLogFile(next *os.File) {
	fileMu.Lock()
	defer fileMu.Unlock()
	if file != nil {
		_ = file.Close()
	}
	file = next
}

func levelFor(verbosity int) zerolog.Level {
	switch verbosity {
	case 0:
		return zerolog.WarnLevel
	case 1:
		return zerolog.InfoLevel
	case 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// GetLogger returns a contextualized logger with the given name
func GetLogger(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// WithFields returns a logger with additional fields
func WithFields(fields map[string]interface{}) zerolog.Logger {
	logger := log.Logger
	for k, v := range fields {
		logger = logger.With().Interface(k, v).Logger()
	}
	return logger
}

// getLogFilePath returns the path to the log file
// XDG_STATE_HOME wins when set, otherwise the platform state directory is used
func getLogFilePath() string {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		stateHome = xdg.StateHome
	}
	if stateHome == "" {
		return "mlbuild.log"
	}
	return filepath.Join(stateHome, "mlbuild", "mlbuild.log")
}

// setupLogFile creates the log file and its parent directories
func setupLogFile(logPath string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// LogCommand logs the external tool a build stage is about to run
func LogCommand(stage, cmd string, args []string) {
	log.Debug().
		Str("stage", stage).
		Str("command", cmd).
		Strs("args", args).
		Str("cmdline", CommandLine(cmd, args)).
		Msg("Executing command")
}

// CommandLine renders a command and its arguments the way a shell echo would
func CommandLine(cmd string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, cmd)
	parts = append(parts, args...)
	return strings.Join(parts, " ")
}

// LogDuration logs the duration of an operation
func LogDuration(start time.Time, operation string) {
	log.Debug().
		Str("operation", operation).
		Dur("duration", time.Since(start)).
		Msg("Operation completed")
}

// LogOperationStart logs the start of an operation and returns a function to log its completion
func LogOperationStart(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().
		Str("operation", operation).
		Msg("Operation started")

	return func() {
		logger.Debug().
			Str("operation", operation).
			Dur("duration", time.Since(start)).
			Msg("Operation completed")
	}
}
