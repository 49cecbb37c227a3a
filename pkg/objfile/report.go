package objfile

import (
	"fmt"
	"io"
	"strings"

	"github.com/arthur-debert/mlbuild/pkg/errors"
	"github.com/spf13/afero"
)

// PreviewWidth is the number of bytes per hex preview line
const PreviewWidth = 16

// DefaultMaxBytes bounds the text and data previews
const DefaultMaxBytes = 64

// SymbolView is the display form of a symbol
type SymbolView struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Section string `json:"section" yaml:"section"`
	Offset  uint32 `json:"offset" yaml:"offset"`
}

// RelocationView is the display form of a relocation
type RelocationView struct {
	Offset uint32 `json:"offset" yaml:"offset"`
	Symbol string `json:"symbol" yaml:"symbol"`
	Type   string `json:"type" yaml:"type"`
}

// Report is what inspection found in one file. A report either carries an
// error or the decoded contents, never both.
type Report struct {
	Path        string           `json:"path" yaml:"path"`
	Error       string           `json:"error,omitempty" yaml:"error,omitempty"`
	Header      *Header          `json:"header,omitempty" yaml:"header,omitempty"`
	Text        []string         `json:"text_preview,omitempty" yaml:"text_preview,omitempty"`
	Data        []string         `json:"data_preview,omitempty" yaml:"data_preview,omitempty"`
	Symbols     []SymbolView     `json:"symbols,omitempty" yaml:"symbols,omitempty"`
	Relocations []RelocationView `json:"relocations,omitempty" yaml:"relocations,omitempty"`

	err error
}

// Failed reports whether the file could not be decoded
func (r *Report) Failed() bool {
	return r.err != nil
}

// Err returns the decode or read error, if any
func (r *Report) Err() error {
	return r.err
}

// Inspect decodes b and builds its report
func Inspect(path string, b []byte, maxBytes int) *Report {
	r := &Report{Path: path}
	obj, err := Decode(b)
	if err != nil {
		r.fail(err)
		return r
	}

	h := obj.Header()
	r.Header = &h
	r.Text = HexPreview(obj.Text, maxBytes)
	r.Data = HexPreview(obj.Data, maxBytes)
	for _, sym := range obj.Symbols {
		r.Symbols = append(r.Symbols, SymbolView{
			Name:    displayName(sym.Name),
			Type:    sym.Type.String(),
			Section: sym.Section.String(),
			Offset:  sym.Offset,
		})
	}
	for _, rel := range obj.Relocations {
		r.Relocations = append(r.Relocations, RelocationView{
			Offset: rel.Offset,
			Symbol: displayName(rel.Symbol),
			Type:   rel.Type.String(),
		})
	}
	return r
}

func displayName(name string) string {
	return strings.ToValidUTF8(name, "\uFFFD")
}

// InspectFile reads path from fsys and inspects it. Read failures end up
// in the report like decode failures do.
func InspectFile(fsys afero.Fs, path string, maxBytes int) *Report {
	b, err := afero.ReadFile(fsys, path)
	if err != nil {
		r := &Report{Path: path}
		r.fail(errors.Wrapf(err, errors.ErrFileAccess, "cannot read %s", path).
			WithDetail("path", path))
		return r
	}
	return Inspect(path, b, maxBytes)
}

func (r *Report) fail(err error) {
	r.err = err
	r.Error = err.Error()
}

// HexPreview renders at most maxBytes of buf, PreviewWidth bytes per line,
// and notes how many bytes were left out.
func HexPreview(buf []byte, maxBytes int) []string {
	if maxBytes < 0 {
		maxBytes = 0
	}
	shown := buf
	if len(shown) > maxBytes {
		shown = shown[:maxBytes]
	}

	var lines []string
	for i := 0; i < len(shown); i += PreviewWidth {
		end := min(i+PreviewWidth, len(shown))
		hex := make([]string, 0, end-i)
		for _, b := range shown[i:end] {
			hex = append(hex, fmt.Sprintf("%02X", b))
		}
		lines = append(lines, fmt.Sprintf("%08X: %s", i, strings.Join(hex, " ")))
	}
	if len(buf) > maxBytes {
		lines = append(lines, fmt.Sprintf("... (%d more bytes)", len(buf)-maxBytes))
	}
	return lines
}

// WriteText prints r in the plain viewer layout
func WriteText(w io.Writer, r *Report) error {
	var b strings.Builder
	if r.Failed() {
		fmt.Fprintf(&b, "[%s] ERROR: %s\n", r.Path, r.Error)
		_, err := io.WriteString(w, b.String())
		return err
	}

	h := r.Header
	fmt.Fprintf(&b, "\n== %s ==\n", r.Path)
	fmt.Fprintf(&b, "Header: magic OK, text=%d bytes, data=%d bytes, symbols=%d, relocs=%d\n",
		h.TextSize, h.DataSize, h.SymbolCount, h.RelocationCount)

	writePreview(&b, "Text", h.TextSize, r.Text)
	writePreview(&b, "Data", h.DataSize, r.Data)

	b.WriteString("Symbols:\n")
	if len(r.Symbols) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, sym := range r.Symbols {
		name := sym.Name
		if name == "" {
			name = "<unnamed>"
		}
		fmt.Fprintf(&b, "  - %s: %s, section=%s, offset=0x%08X\n", name, sym.Type, sym.Section, sym.Offset)
	}

	b.WriteString("Relocations:\n")
	if len(r.Relocations) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, rel := range r.Relocations {
		fmt.Fprintf(&b, "  - offset=0x%08X, symbol='%s', type=%s\n", rel.Offset, rel.Symbol, rel.Type)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writePreview(b *strings.Builder, label string, size uint32, lines []string) {
	if size == 0 {
		fmt.Fprintf(b, "%s: (empty)\n", label)
		return
	}
	fmt.Fprintf(b, "%s preview:\n", label)
	for _, line := range lines {
		fmt.Fprintf(b, "  %s\n", line)
	}
}
