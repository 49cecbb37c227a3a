package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arthur-debert/mlbuild/pkg/config"
	"github.com/arthur-debert/mlbuild/pkg/errors"
	"github.com/arthur-debert/mlbuild/pkg/objfile"
	"github.com/arthur-debert/mlbuild/pkg/rules"
	"github.com/arthur-debert/mlbuild/pkg/stage"
	"github.com/arthur-debert/mlbuild/pkg/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newDriver(t *testing.T, files map[string]string) (*Driver, *testutil.FakeRunner, afero.Fs) {
	t.Helper()
	fsys := testutil.NewMemTree(t, files)
	runner := testutil.NewFakeRunner(fsys)
	cfg := config.Default()
	return NewDriver(fsys, stage.NewToolchain(runner, cfg.Toolchain), cfg.Extensions), runner, fsys
}

func noExcludes() *rules.Set {
	return rules.NewSet(nil)
}

func filesWithExt(t *testing.T, fsys afero.Fs, dir, ext string) []string {
	t.Helper()
	var out []string
	err := afero.Walk(fsys, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ext {
			out = append(out, path)
		}
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestBuild_SingleSource(t *testing.T) {
	d, runner, fsys := newDriver(t, map[string]string{
		"/proj/src/main.ml": "fn main() {}\n",
	})

	res, err := d.Build(context.Background(), []string{"/proj/src"}, noExcludes(), Options{
		Output: "/proj/out/prog.mbin",
	})
	require.NoError(t, err)

	assert.Equal(t, "/proj/out", res.BuildDir)
	assert.Equal(t, "/proj/out/prog.mbin", res.Output)
	assert.Len(t, filesWithExt(t, fsys, "/proj/out", ".masm"), 1)
	assert.Len(t, filesWithExt(t, fsys, "/proj/out", ".mobj"), 1)
	assert.Contains(t, testutil.ReadFile(t, fsys, "/proj/out/main.masm"), "fn main() {}")

	assert.Len(t, runner.StageCommands(stage.StageCompile), 1)
	assert.Len(t, runner.StageCommands(stage.StageAssemble), 1)
	links := runner.StageCommands(stage.StageLink)
	require.Len(t, links, 1)
	assert.Equal(t, []string{"/proj/out/prog.mbin", "/proj/out/main.mobj"}, links[0].Args)

	assert.Equal(t, []string{"/proj/out/main.mobj"}, res.LinkInputs)
	require.Len(t, res.Units, 1)
	assert.Equal(t, "/proj/out/main.mbin", res.Units[0].Binary)
	assert.Contains(t, testutil.ReadFile(t, fsys, "/proj/out/prog.mbin"), "fn main() {}")
}

func TestBuild_StageOrder(t *testing.T) {
	d, runner, _ := newDriver(t, map[string]string{
		"/proj/src/a.ml": "a\n",
		"/proj/src/b.ml": "b\n",
	})

	_, err := d.Build(context.Background(), []string{"/proj/src"}, noExcludes(), Options{
		Output: "/proj/out/prog.mbin",
	})
	require.NoError(t, err)

	var stages []stage.Name
	for _, c := range runner.Commands() {
		stages = append(stages, c.Stage)
	}
	assert.Equal(t, []stage.Name{
		stage.StageCompile, stage.StageCompile,
		stage.StageAssemble, stage.StageAssemble,
		stage.StageLink,
	}, stages)
}

func TestBuild_EntryForwarded(t *testing.T) {
	d, runner, _ := newDriver(t, map[string]string{
		"/proj/src/kernel.ml": "fn kmain() {}\n",
	})

	_, err := d.Build(context.Background(), []string{"/proj/src"}, noExcludes(), Options{
		Output: "/proj/out/k.mbin",
		Entry:  "kmain",
	})
	require.NoError(t, err)

	compiles := runner.StageCommands(stage.StageCompile)
	require.Len(t, compiles, 1)
	assert.Equal(t, []string{"-entry", "kmain", "/proj/src/kernel.ml", "/proj/out/kernel.masm"}, compiles[0].Args)
}

func TestBuild_CollisionBeforeAnyStage(t *testing.T) {
	d, runner, _ := newDriver(t, map[string]string{
		"/proj/src/x.ml":   "x\n",
		"/proj/src/x.masm": "x\n",
	})

	_, err := d.Build(context.Background(), []string{"/proj/src"}, noExcludes(), Options{
		Output:              "/proj/out/prog.mbin",
		IncludePreAssembled: true,
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCollision))
	assert.Equal(t, "/proj/out/x.masm", errors.GetErrorDetails(err)["output"])
	assert.Empty(t, runner.Commands())
}

func TestBuild_ExcludedOnlyRoot(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 10; i++ {
		files[fmt.Sprintf("/proj/src/gen/unit%d.ml", i)] = "u\n"
	}
	d, runner, _ := newDriver(t, files)

	_, err := d.Build(context.Background(), []string{"/proj/src"}, rules.NewSet([]string{"gen"}), Options{
		Output: "/proj/out/prog.mbin",
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNoSources))
	assert.Equal(t, errors.CategoryResolution, errors.GetCategory(err))
	assert.Empty(t, runner.Commands())
}

func TestBuild_PreAssembledSources(t *testing.T) {
	t.Run("copied into the build directory", func(t *testing.T) {
		d, runner, fsys := newDriver(t, map[string]string{
			"/proj/asm/boot.masm": "boot:\n",
		})

		res, err := d.Build(context.Background(), []string{"/proj/asm/boot.masm"}, noExcludes(), Options{
			Output:              "/proj/out/prog.mbin",
			IncludePreAssembled: true,
		})
		require.NoError(t, err)

		assert.Equal(t, "boot:\n", testutil.ReadFile(t, fsys, "/proj/out/boot.masm"))
		assert.True(t, res.Units[0].Copied)
		assert.Empty(t, runner.StageCommands(stage.StageCompile))
	})

	t.Run("not copied onto itself", func(t *testing.T) {
		d, _, fsys := newDriver(t, map[string]string{
			"/proj/asm/boot.masm": "boot:\n",
		})

		res, err := d.Build(context.Background(), []string{"/proj/asm"}, noExcludes(), Options{
			Output:              "/proj/asm/prog.mbin",
			IncludePreAssembled: true,
		})
		require.NoError(t, err)

		assert.False(t, res.Units[0].Copied)
		assert.Equal(t, "boot:\n", testutil.ReadFile(t, fsys, "/proj/asm/boot.masm"))
	})
}

func TestBuild_LinkOrderFollowsRoots(t *testing.T) {
	d, runner, _ := newDriver(t, map[string]string{
		"/proj/asm/stub.masm":   "stub:\n",
		"/proj/lib/helper.masm": "helper:\n",
		"/proj/src/main.ml":     "main\n",
	})

	res, err := d.Build(context.Background(),
		[]string{"/proj/asm/stub.masm", "/proj/lib", "/proj/src"}, noExcludes(), Options{
			Output:              "/proj/out/k.mbin",
			IncludePreAssembled: true,
		})
	require.NoError(t, err)

	want := []string{"/proj/out/stub.mobj", "/proj/out/helper.mobj", "/proj/out/main.mobj"}
	assert.Equal(t, want, res.LinkInputs)
	links := runner.StageCommands(stage.StageLink)
	require.Len(t, links, 1)
	assert.Equal(t, append([]string{"/proj/out/k.mbin"}, want...), links[0].Args)
}

func TestBuild_CompileFailureStopsPipeline(t *testing.T) {
	d, runner, fsys := newDriver(t, map[string]string{
		"/proj/src/a.ml": "ok\n",
		"/proj/src/b.ml": "error: unexpected token\n",
	})

	_, err := d.Build(context.Background(), []string{"/proj/src"}, noExcludes(), Options{
		Output: "/proj/out/prog.mbin",
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrStageFailed))

	details := errors.GetErrorDetails(err)
	assert.Equal(t, "compile", details["stage"])
	assert.Equal(t, "mlc /proj/src/b.ml /proj/out/b.masm", details["command"])
	assert.Equal(t, 1, details["exit_code"])
	assert.Contains(t, details["stderr"], "unexpected token")

	assert.Empty(t, runner.StageCommands(stage.StageAssemble))
	assert.Empty(t, runner.StageCommands(stage.StageLink))
	testutil.AssertMissing(t, fsys, "/proj/out/prog.mbin")
}

func TestBuild_AssembleFailureStopsLink(t *testing.T) {
	d, runner, _ := newDriver(t, map[string]string{
		"/proj/src/bad.masm": "error: bad mnemonic\n",
	})

	_, err := d.Build(context.Background(), []string{"/proj/src"}, noExcludes(), Options{
		Output:              "/proj/out/prog.mbin",
		IncludePreAssembled: true,
	})
	require.Error(t, err)
	assert.Equal(t, "assemble", errors.GetErrorDetails(err)["stage"])
	assert.Empty(t, runner.StageCommands(stage.StageLink))
}

func TestBuild_Parallel(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 8; i++ {
		files[fmt.Sprintf("/proj/src/u%d.ml", i)] = "u\n"
	}
	d, runner, _ := newDriver(t, files)
	runner.Delay = 20 * time.Millisecond

	res, err := d.Build(context.Background(), []string{"/proj/src"}, noExcludes(), Options{
		Output: "/proj/out/prog.mbin",
		Jobs:   4,
	})
	require.NoError(t, err)

	assert.Greater(t, runner.MaxConcurrent(), 1)
	assert.LessOrEqual(t, runner.MaxConcurrent(), 4)

	var want []string
	for i := 0; i < 8; i++ {
		want = append(want, fmt.Sprintf("/proj/out/u%d.mobj", i))
	}
	assert.Equal(t, want, res.LinkInputs, "link order does not depend on completion order")
}

func TestBuild_ParallelFailureReportsEarliestUnit(t *testing.T) {
	d, runner, _ := newDriver(t, map[string]string{
		"/proj/src/a.ml": "ok\n",
		"/proj/src/b.ml": "error: first\n",
		"/proj/src/c.ml": "ok\n",
		"/proj/src/d.ml": "error: second\n",
	})

	_, err := d.Build(context.Background(), []string{"/proj/src"}, noExcludes(), Options{
		Output: "/proj/out/prog.mbin",
		Jobs:   4,
	})
	require.Error(t, err)
	assert.Contains(t, errors.GetErrorDetails(err)["command"], "/proj/src/b.ml")
	assert.Empty(t, runner.StageCommands(stage.StageAssemble))
}

func TestBuild_ParallelFailureKeepsLaunchedUnits(t *testing.T) {
	d, runner, _ := newDriver(t, map[string]string{
		"/proj/src/a.ml": "ok\n",
		"/proj/src/b.ml": "error: first\n",
		"/proj/src/c.ml": "ok\n",
		"/proj/src/d.ml": "error: second\n",
	})
	// d fails before b is allowed to run
	dFailed := make(chan struct{})
	runner.RunFunc = func(ctx context.Context, c stage.Command) (*stage.Result, error) {
		if c.Stage == stage.StageCompile {
			switch filepath.Base(c.Args[0]) {
			case "d.ml":
				res := runner.Default(c)
				close(dFailed)
				return res, nil
			case "b.ml":
				select {
				case <-dFailed:
				case <-time.After(5 * time.Second):
				}
			}
		}
		return runner.Default(c), nil
	}

	_, err := d.Build(context.Background(), []string{"/proj/src"}, noExcludes(), Options{
		Output: "/proj/out/prog.mbin",
		Jobs:   4,
	})
	require.Error(t, err)
	assert.Contains(t, errors.GetErrorDetails(err)["command"], "/proj/src/b.ml")
	assert.Len(t, runner.StageCommands(stage.StageCompile), 4)
}

func TestBuild_SequentialFailureSkipsRemainingUnits(t *testing.T) {
	d, runner, _ := newDriver(t, map[string]string{
		"/proj/src/a.ml": "error: broken\n",
		"/proj/src/b.ml": "ok\n",
		"/proj/src/c.ml": "ok\n",
	})

	_, err := d.Build(context.Background(), []string{"/proj/src"}, noExcludes(), Options{
		Output: "/proj/out/prog.mbin",
		Jobs:   1,
	})
	require.Error(t, err)
	assert.Len(t, runner.StageCommands(stage.StageCompile), 1)
}

func TestBuild_VerifyRejectsBadObject(t *testing.T) {
	d, runner, fsys := newDriver(t, map[string]string{
		"/proj/src/a.ml": "a\n",
	})
	runner.RunFunc = func(ctx context.Context, c stage.Command) (*stage.Result, error) {
		res := runner.Default(c)
		if c.Stage == stage.StageAssemble {
			err := objfile.WriteFile(fsys, c.Args[3], &objfile.Object{
				Symbols: []objfile.Symbol{{Name: "a", Type: 7}},
			})
			if err != nil {
				return nil, err
			}
		}
		return res, nil
	}

	_, err := d.Build(context.Background(), []string{"/proj/src"}, noExcludes(), Options{
		Output: "/proj/out/prog.mbin",
		Verify: true,
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrStageFailed))
	assert.Contains(t, err.Error(), "invalid object")
	assert.Empty(t, runner.StageCommands(stage.StageLink))
}

func TestBuild_MissingOutputIsFailure(t *testing.T) {
	d, runner, _ := newDriver(t, map[string]string{
		"/proj/src/a.ml": "a\n",
	})
	runner.RunFunc = func(ctx context.Context, c stage.Command) (*stage.Result, error) {
		return &stage.Result{}, nil
	}

	_, err := d.Build(context.Background(), []string{"/proj/src"}, noExcludes(), Options{
		Output: "/proj/out/prog.mbin",
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrStageFailed))
	assert.Equal(t, "compile", errors.GetErrorDetails(err)["stage"])
}

func TestBuild_StaleOutputIsNotSuccess(t *testing.T) {
	d, runner, fsys := newDriver(t, map[string]string{
		"/proj/src/a.ml":      "a\n",
		"/proj/out/prog.mbin": "image from an earlier run",
	})
	runner.RunFunc = func(ctx context.Context, c stage.Command) (*stage.Result, error) {
		if c.Stage == stage.StageLink {
			return &stage.Result{}, nil
		}
		return runner.Default(c), nil
	}

	_, err := d.Build(context.Background(), []string{"/proj/src"}, noExcludes(), Options{
		Output: "/proj/out/prog.mbin",
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrStageFailed))
	assert.Equal(t, "link", errors.GetErrorDetails(err)["stage"])
	testutil.AssertMissing(t, fsys, "/proj/out/prog.mbin")
}

func TestBuild_Clean(t *testing.T) {
	t.Run("removes stale artifacts", func(t *testing.T) {
		d, _, fsys := newDriver(t, map[string]string{
			"/proj/src/a.ml":       "a\n",
			"/proj/out/stale.mobj": "old",
		})

		_, err := d.Build(context.Background(), []string{"/proj/src"}, noExcludes(), Options{
			Output: "/proj/out/prog.mbin",
			Clean:  true,
		})
		require.NoError(t, err)
		testutil.AssertMissing(t, fsys, "/proj/out/stale.mobj")
	})

	t.Run("refuses to remove sources", func(t *testing.T) {
		d, runner, fsys := newDriver(t, map[string]string{
			"/proj/src/a.ml": "a\n",
		})

		_, err := d.Build(context.Background(), []string{"/proj/src"}, noExcludes(), Options{
			Output: "/proj/prog.mbin",
			Clean:  true,
		})
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
		assert.Equal(t, "a\n", testutil.ReadFile(t, fsys, "/proj/src/a.ml"))
		assert.Empty(t, runner.Commands())
	})
}

func TestBuild_Run(t *testing.T) {
	d, runner, fsys := newDriver(t, map[string]string{
		"/proj/src/main.ml":   "main\n",
		"/proj/rom/boot.masm": "rom\n",
	})

	res, err := d.Build(context.Background(), []string{"/proj/src"}, noExcludes(), Options{
		Output: "/proj/out/k.mbin",
		Run:    true,
		ROM:    "/proj/rom/boot.masm",
	})
	require.NoError(t, err)

	assembles := runner.StageCommands(stage.StageAssemble)
	require.Len(t, assembles, 2)
	assert.Equal(t, []string{"/proj/rom/boot.masm", "/proj/out/boot.mbin"}, assembles[1].Args)
	assert.Equal(t, "rom\n", testutil.ReadFile(t, fsys, "/proj/out/boot.mbin"))

	runs := runner.StageCommands(stage.StageRun)
	require.Len(t, runs, 1)
	assert.Equal(t, []string{"--rom", "/proj/out/boot.mbin", "--ram", "/proj/out/k.mbin"}, runs[0].Args)
	assert.Contains(t, res.RunOutput, "loaded")
}

func TestBuild_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		code errors.ErrorCode
	}{
		{"missing output", Options{}, errors.ErrInvalidInput},
		{"run without rom", Options{Output: "/proj/out/k.mbin", Run: true}, errors.ErrInvalidInput},
		{"rom does not exist", Options{Output: "/proj/out/k.mbin", Run: true, ROM: "/nope.mbin"}, errors.ErrFileAccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, runner, _ := newDriver(t, map[string]string{"/proj/src/a.ml": "a\n"})
			_, err := d.Build(context.Background(), []string{"/proj/src"}, noExcludes(), tt.opts)
			assert.True(t, errors.IsErrorCode(err, tt.code), "got %v", err)
			assert.Empty(t, runner.Commands())
		})
	}
}

func TestBuild_WarningsReported(t *testing.T) {
	d, _, _ := newDriver(t, map[string]string{
		"/proj/src/a.ml":      "a\n",
		"/proj/src/README.md": "docs",
	})

	res, err := d.Build(context.Background(), []string{"/proj/src"}, noExcludes(), Options{
		Output: "/proj/out/prog.mbin",
	})
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 1)
	assert.Len(t, res.Sources, 1)
}

func TestIsWithin(t *testing.T) {
	assert.True(t, isWithin("/a/b", "/a/b"))
	assert.True(t, isWithin("/a/b/c", "/a/b"))
	assert.False(t, isWithin("/a/bc", "/a/b"))
	assert.False(t, isWithin("/a", "/a/b"))
	assert.False(t, isWithin("/x/..y", "/a"))
}

func TestBuild_RunnerStartFailure(t *testing.T) {
	fsys := testutil.NewMemTree(t, map[string]string{
		"/proj/src/a.ml": "fn a\n",
	})
	runner := &testutil.MockRunner{}
	runner.On("Run", mock.Anything, mock.MatchedBy(func(c stage.Command) bool {
		return c.Stage == stage.StageCompile
	})).Return(nil, errors.New(errors.ErrStageStart, "cannot start compiler"))

	cfg := config.Default()
	d := NewDriver(fsys, stage.NewToolchain(runner, cfg.Toolchain), cfg.Extensions)

	_, err := d.Build(context.Background(), []string{"/proj/src"}, noExcludes(), Options{
		Output: "/proj/out/prog.mbin",
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrStageStart))
	runner.AssertNumberOfCalls(t, "Run", 1)
	testutil.AssertMissing(t, fsys, "/proj/out/prog.mbin")
}
