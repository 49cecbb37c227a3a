package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/arthur-debert/mlbuild/pkg/objfile"
	"github.com/arthur-debert/mlbuild/pkg/stage"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/mock"
)

// MockRunner is a testify mock of stage.Runner
type MockRunner struct {
	mock.Mock
}

// Run records the call and returns the configured result
func (m *MockRunner) Run(ctx context.Context, cmd stage.Command) (*stage.Result, error) {
	args := m.Called(ctx, cmd)
	res, _ := args.Get(0).(*stage.Result)
	return res, args.Error(1)
}

// FailMarker makes FakeRunner reject an input file that contains it, the
// way a real tool reports a diagnostic
const FailMarker = "error:"

// FakeRunner stands in for the external toolchain. It reads and writes
// files on an afero filesystem so a whole build can run in memory:
// compiling copies the source into the assembly file, assembling writes a
// pre-link image and a real encoded object, linking concatenates the text
// of every object and running echoes the image size.
type FakeRunner struct {
	Fs afero.Fs
	// Delay is slept before each invocation
	Delay time.Duration
	// RunFunc, when set, replaces the default behaviour for every command
	RunFunc func(ctx context.Context, cmd stage.Command) (*stage.Result, error)

	mu          sync.Mutex
	commands    []stage.Command
	inflight    int
	maxInflight int
}

// NewFakeRunner creates a fake toolchain over fsys
func NewFakeRunner(fsys afero.Fs) *FakeRunner {
	return &FakeRunner{Fs: fsys}
}

// Commands returns every command seen so far, in call order
func (f *FakeRunner) Commands() []stage.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stage.Command, len(f.commands))
	copy(out, f.commands)
	return out
}

// StageCommands returns the commands of one stage, in call order
func (f *FakeRunner) StageCommands(name stage.Name) []stage.Command {
	var out []stage.Command
	for _, c := range f.Commands() {
		if c.Stage == name {
			out = append(out, c)
		}
	}
	return out
}

// MaxConcurrent is the highest number of overlapping invocations seen
func (f *FakeRunner) MaxConcurrent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxInflight
}

// Run implements stage.Runner
func (f *FakeRunner) Run(ctx context.Context, cmd stage.Command) (*stage.Result, error) {
	f.mu.Lock()
	f.commands = append(f.commands, cmd)
	f.inflight++
	if f.inflight > f.maxInflight {
		f.maxInflight = f.inflight
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()

	if f.Delay > 0 {
		time.Sleep(f.Delay)
	}
	if f.RunFunc != nil {
		return f.RunFunc(ctx, cmd)
	}
	return f.Default(cmd), nil
}

// Default performs the built-in behaviour for cmd
func (f *FakeRunner) Default(cmd stage.Command) *stage.Result {
	switch cmd.Stage {
	case stage.StageCompile:
		return f.compile(cmd.Args)
	case stage.StageAssemble:
		return f.assemble(cmd.Args)
	case stage.StageLink:
		return f.link(cmd.Args)
	case stage.StageRun:
		return f.run(cmd.Args)
	default:
		return failure(fmt.Sprintf("unknown stage %q", cmd.Stage))
	}
}

func (f *FakeRunner) compile(args []string) *stage.Result {
	entry := ""
	if len(args) >= 2 && args[0] == "-entry" {
		entry, args = args[1], args[2:]
	}
	if len(args) != 2 {
		return failure("usage: compiler [-entry NAME] SRC OUT")
	}
	src, out := args[0], args[1]

	body, res := f.readInput(src)
	if res != nil {
		return res
	}
	header := "; compiled from " + src + "\n"
	if entry != "" {
		header += "; entry " + entry + "\n"
	}
	return f.write(out, []byte(header+body))
}

func (f *FakeRunner) assemble(args []string) *stage.Result {
	obj := ""
	if len(args) == 4 && args[2] == "--obj" {
		obj = args[3]
		args = args[:2]
	}
	if len(args) != 2 {
		return failure("usage: assembler ASM BIN [--obj OBJ]")
	}
	asm, bin := args[0], args[1]

	body, res := f.readInput(asm)
	if res != nil {
		return res
	}
	if res := f.write(bin, []byte(body)); res.ExitCode != 0 {
		return res
	}
	if obj == "" {
		return &stage.Result{}
	}

	name := strings.TrimSuffix(filepath.Base(asm), filepath.Ext(asm))
	if len(name) > objfile.MaxNameLen {
		name = name[:objfile.MaxNameLen]
	}
	object := &objfile.Object{
		Text:    []byte(body),
		Symbols: []objfile.Symbol{{Name: name, Type: objfile.SymbolDefined, Section: objfile.SectionText}},
	}
	if err := objfile.WriteFile(f.Fs, obj, object); err != nil {
		return failure(err.Error())
	}
	return &stage.Result{}
}

func (f *FakeRunner) link(args []string) *stage.Result {
	if len(args) < 2 {
		return failure("usage: linker OUT OBJ...")
	}
	var image []byte
	for _, path := range args[1:] {
		obj, err := objfile.ReadFile(f.Fs, path)
		if err != nil {
			return failure(err.Error())
		}
		image = append(image, obj.Text...)
	}
	return f.write(args[0], image)
}

func (f *FakeRunner) run(args []string) *stage.Result {
	if len(args) != 4 || args[0] != "--rom" || args[2] != "--ram" {
		return failure("usage: emulator --rom ROM --ram IMAGE")
	}
	image, err := afero.ReadFile(f.Fs, args[3])
	if err != nil {
		return failure(err.Error())
	}
	return &stage.Result{Stdout: []byte(fmt.Sprintf("loaded %d bytes\n", len(image)))}
}

func (f *FakeRunner) readInput(path string) (string, *stage.Result) {
	b, err := afero.ReadFile(f.Fs, path)
	if err != nil {
		return "", failure(err.Error())
	}
	for _, line := range strings.Split(string(b), "\n") {
		if strings.Contains(line, FailMarker) {
			return "", failure(path + ": " + strings.TrimSpace(line))
		}
	}
	return string(b), nil
}

func (f *FakeRunner) write(path string, b []byte) *stage.Result {
	if err := afero.WriteFile(f.Fs, path, b, 0644); err != nil {
		return failure(err.Error())
	}
	return &stage.Result{}
}

func failure(msg string) *stage.Result {
	return &stage.Result{Stderr: []byte(msg + "\n"), ExitCode: 1}
}
