package mlbuild

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/arthur-debert/mlbuild/pkg/config"
	"github.com/arthur-debert/mlbuild/pkg/objfile"
	"github.com/arthur-debert/mlbuild/pkg/stage"
	"github.com/arthur-debert/mlbuild/pkg/testutil"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps user config and log files out of the real home
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")
}

func execute(t *testing.T, runner *testutil.FakeRunner, args ...string) (string, error) {
	t.Helper()
	deps := Deps{
		Fs:        runner.Fs,
		NewRunner: func(*config.Config) stage.Runner { return runner },
	}
	cmd := NewRootCmdWithDeps(deps)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Help(t *testing.T) {
	isolate(t)
	out, err := execute(t, testutil.NewFakeRunner(afero.NewOsFs()), "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "build")
	assert.Contains(t, out, "inspect")
	assert.Contains(t, out, "COMMANDS:")
}

func TestRootCmd_NoCommand(t *testing.T) {
	isolate(t)
	_, err := execute(t, testutil.NewFakeRunner(afero.NewOsFs()))
	assert.Error(t, err)
}

func TestBuildCmd(t *testing.T) {
	isolate(t)
	root := testutil.NewDiskTree(t, map[string]string{
		"src/a.ml":   "fn a\n",
		"src/b.ml":   "fn b\n",
		"lib/c.masm": "c:\n",
	})
	runner := testutil.NewFakeRunner(afero.NewOsFs())
	output := filepath.Join(root, "out", "prog.mbin")

	out, err := execute(t, runner, "build",
		filepath.Join(root, "src"), filepath.Join(root, "lib", "c.masm"),
		"--include-preassembled", "--out", output, "--format", "text")
	require.NoError(t, err)

	assert.Contains(t, out, "Linked output: "+output)
	assert.Contains(t, out, "sources")
	assert.Contains(t, out, "3 (2 ")

	image := testutil.ReadFile(t, runner.Fs, output)
	assert.True(t, strings.Index(image, "fn a") < strings.Index(image, "fn b"))
	assert.True(t, strings.Index(image, "fn b") < strings.Index(image, "c:"))
	assert.Len(t, runner.StageCommands(stage.StageLink), 1)
}

func TestBuildCmd_JSON(t *testing.T) {
	isolate(t)
	root := testutil.NewDiskTree(t, map[string]string{
		"src/main.ml": "fn main\n",
	})
	runner := testutil.NewFakeRunner(afero.NewOsFs())
	output := filepath.Join(root, "out", "prog.mbin")

	out, err := execute(t, runner, "build", filepath.Join(root, "src"),
		"--out", output, "--entry", "main", "--format", "json")
	require.NoError(t, err)

	var res struct {
		Output     string   `json:"output"`
		LinkInputs []string `json:"link_inputs"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, output, res.Output)
	assert.Equal(t, []string{filepath.Join(root, "out", "main.mobj")}, res.LinkInputs)

	compiles := runner.StageCommands(stage.StageCompile)
	require.Len(t, compiles, 1)
	assert.Equal(t, []string{"-entry", "main"}, compiles[0].Args[:2])
}

func TestBuildCmd_RequiresOut(t *testing.T) {
	isolate(t)
	root := testutil.NewDiskTree(t, map[string]string{"a.ml": "x\n"})
	_, err := execute(t, testutil.NewFakeRunner(afero.NewOsFs()), "build", root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out")
}

func TestBuildCmd_ExitCodes(t *testing.T) {
	isolate(t)

	tests := []struct {
		name  string
		files map[string]string
		roots []string
		extra []string
		want  int
	}{
		{
			name:  "missing root",
			files: map[string]string{"a.ml": "x\n"},
			roots: []string{"nope"},
			want:  ExitResolution,
		},
		{
			name:  "everything excluded",
			files: map[string]string{"gen/a.ml": "x\n"},
			roots: []string{"."},
			extra: []string{"--exclude", "gen"},
			want:  ExitResolution,
		},
		{
			name: "output collision",
			files: map[string]string{
				"x/a.ml":   "x\n",
				"x/a.masm": "y\n",
			},
			roots: []string{"x"},
			extra: []string{"--include-preassembled"},
			want:  ExitCollision,
		},
		{
			name:  "compile failure",
			files: map[string]string{"a.ml": "error: broken\n"},
			roots: []string{"."},
			want:  ExitStage,
		},
		{
			name:  "bad jobs",
			files: map[string]string{"a.ml": "x\n"},
			roots: []string{"."},
			extra: []string{"--jobs", "0"},
			want:  ExitFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := testutil.NewDiskTree(t, tt.files)
			args := []string{"build", "--out", filepath.Join(t.TempDir(), "prog.mbin")}
			for _, r := range tt.roots {
				args = append(args, filepath.Join(root, r))
			}
			args = append(args, tt.extra...)

			_, err := execute(t, testutil.NewFakeRunner(afero.NewOsFs()), args...)
			require.Error(t, err)
			assert.Equal(t, tt.want, ExitCode(err))
		})
	}
}

func TestInspectCmd(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	good := filepath.Join(dir, "a.mobj")
	obj := &objfile.Object{
		Text:    []byte{0x01, 0x02},
		Symbols: []objfile.Symbol{{Name: "main", Type: objfile.SymbolDefined, Section: objfile.SectionText}},
	}
	require.NoError(t, objfile.WriteFile(afero.NewOsFs(), good, obj))

	out, err := execute(t, testutil.NewFakeRunner(afero.NewOsFs()), "inspect", good)
	require.NoError(t, err)
	assert.Contains(t, out, "== "+good+" ==")
	assert.Contains(t, out, "main")

	bad := filepath.Join(dir, "bad.mobj")
	require.NoError(t, afero.WriteFile(afero.NewOsFs(), bad, []byte("garbage"), 0644))

	out, err = execute(t, testutil.NewFakeRunner(afero.NewOsFs()), "inspect", bad, good)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, ExitCode(err))
	assert.Contains(t, out, "["+bad+"] ERROR:")
	assert.Contains(t, out, "== "+good+" ==")
}

func TestInspectCmd_NegativeMaxBytes(t *testing.T) {
	isolate(t)
	_, err := execute(t, testutil.NewFakeRunner(afero.NewOsFs()), "inspect", "--max-bytes", "-1", "x.mobj")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max-bytes")
}

func TestConfigCmd(t *testing.T) {
	isolate(t)
	out, err := execute(t, testutil.NewFakeRunner(afero.NewOsFs()), "config")
	require.NoError(t, err)
	assert.Contains(t, out, "[toolchain]")

	out, err = execute(t, testutil.NewFakeRunner(afero.NewOsFs()), "config", "--effective")
	require.NoError(t, err)
	assert.Contains(t, out, "compiler")
}

func TestVersionCmd(t *testing.T) {
	isolate(t)
	out, err := execute(t, testutil.NewFakeRunner(afero.NewOsFs()), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "mlbuild version")
}
