package ui

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/arthur-debert/mlbuild/pkg/objfile"
	"github.com/arthur-debert/mlbuild/pkg/pipeline"
	"github.com/arthur-debert/mlbuild/pkg/types"
)

// outputKeys are details printed as blocks after the other details
var outputKeys = map[string]bool{"stdout": true, "stderr": true, "diagnostics": true}

type textRenderer struct {
	out   io.Writer
	style painter
}

func (r *textRenderer) RenderBuild(res *pipeline.Result) error {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", r.style.paint(SuccessStyle, "Linked output:"), r.style.paint(PathStyle, res.Output))

	highLevel, preAssembled := 0, 0
	for _, src := range res.Sources {
		switch src.Kind {
		case types.HighLevel:
			highLevel++
		case types.PreAssembled:
			preAssembled++
		}
	}
	r.row(&b, "sources", fmt.Sprintf("%d (%d %s, %d %s)", len(res.Sources),
		highLevel, types.HighLevel, preAssembled, types.PreAssembled))
	r.row(&b, "objects", fmt.Sprintf("%d", len(res.LinkInputs)))
	r.row(&b, "build dir", res.BuildDir)
	r.row(&b, "time", res.Duration.Round(time.Millisecond).String())

	if len(res.Warnings) > 0 {
		fmt.Fprintf(&b, "%s\n", r.style.paint(WarningStyle, fmt.Sprintf("%d warning(s):", len(res.Warnings))))
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}

	if res.RunOutput != "" {
		fmt.Fprintf(&b, "%s\n", r.style.paint(HeadingStyle, "Emulator output:"))
		b.WriteString(r.block(res.RunOutput))
	}

	_, err := io.WriteString(r.out, b.String())
	return err
}

func (r *textRenderer) row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "  %s %s\n", r.style.paint(MutedStyle, fmt.Sprintf("%-10s", label)), value)
}

func (r *textRenderer) RenderInspection(reports []*objfile.Report) error {
	for _, report := range reports {
		var buf bytes.Buffer
		if err := objfile.WriteText(&buf, report); err != nil {
			return err
		}
		text := buf.String()
		if r.style {
			text = r.styleReport(report, text)
		}
		if _, err := io.WriteString(r.out, text); err != nil {
			return err
		}
	}
	return nil
}

// styleReport highlights the title or error line of a rendered report
func (r *textRenderer) styleReport(report *objfile.Report, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		switch {
		case report.Failed() && strings.HasPrefix(line, "["):
			lines[i] = ErrorStyle.Render(line)
		case strings.HasPrefix(line, "== "):
			lines[i] = HeadingStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func (r *textRenderer) RenderError(err error) error {
	view := NewErrorView(err)
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", r.style.paint(ErrorStyle, "Error:"), view.Message)

	keys := make([]string, 0, len(view.Details))
	for k := range view.Details {
		if !outputKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		r.row(&b, k, fmt.Sprint(view.Details[k]))
	}

	for _, k := range []string{"stdout", "stderr"} {
		if s, ok := view.Details[k].(string); ok && strings.TrimSpace(s) != "" {
			fmt.Fprintf(&b, "  %s\n", r.style.paint(MutedStyle, k+":"))
			b.WriteString(r.block(s))
		}
	}

	_, werr := io.WriteString(r.out, b.String())
	return werr
}

// block indents captured output, framing it when styling is on
func (r *textRenderer) block(s string) string {
	s = strings.TrimRight(s, "\n")
	if r.style {
		return indent(OutputStyle.Render(s), "  ") + "\n"
	}
	return indent(s, "    ") + "\n"
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

func (r *textRenderer) RenderMessage(msg string) error {
	_, err := fmt.Fprintln(r.out, msg)
	return err
}
