package objfile

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/arthur-debert/mlbuild/pkg/errors"
)

// Section names used in format error details
const (
	PartHeader      = "header"
	PartText        = "text"
	PartData        = "data"
	PartSymbols     = "symbols"
	PartRelocations = "relocations"
)

var le = binary.LittleEndian

// Encode serializes o. Names that do not fit a name field are rejected
// rather than truncated.
func Encode(o *Object) ([]byte, error) {
	buf := make([]byte, 0, o.Size())

	h := o.Header()
	for _, v := range []uint32{h.Magic, h.TextSize, h.DataSize, h.SymbolCount, h.RelocationCount} {
		buf = le.AppendUint32(buf, v)
	}
	buf = append(buf, o.Text...)
	buf = append(buf, o.Data...)

	for i, sym := range o.Symbols {
		name, err := encodeName(sym.Name, PartSymbols, i)
		if err != nil {
			return nil, err
		}
		buf = append(buf, name...)
		buf = le.AppendUint32(buf, uint32(sym.Type))
		buf = le.AppendUint32(buf, uint32(sym.Section))
		buf = le.AppendUint32(buf, sym.Offset)
	}

	for i, rel := range o.Relocations {
		name, err := encodeName(rel.Symbol, PartRelocations, i)
		if err != nil {
			return nil, err
		}
		buf = le.AppendUint32(buf, rel.Offset)
		buf = append(buf, name...)
		buf = le.AppendUint32(buf, uint32(rel.Type))
	}

	return buf, nil
}

func encodeName(name, part string, index int) ([]byte, error) {
	if err := checkName(name, part, index); err != nil {
		return nil, err
	}
	field := make([]byte, NameSize)
	copy(field, name)
	return field, nil
}

// checkName rejects names that cannot be stored NUL-terminated in a name
// field. A decoded field with no NUL comes back NameSize bytes long and
// fails here.
func checkName(name, part string, index int) error {
	if len(name) > MaxNameLen {
		return errors.Newf(errors.ErrFormatRecord,
			"%s[%d]: name %q is %d bytes, limit is %d", part, index, name, len(name), MaxNameLen).
			WithDetail("section", part).
			WithDetail("index", index)
	}
	if strings.IndexByte(name, 0) >= 0 {
		return errors.Newf(errors.ErrFormatRecord,
			"%s[%d]: name contains a NUL byte", part, index).
			WithDetail("section", part).
			WithDetail("index", index)
	}
	return nil
}

// decoder walks the buffer front to back, failing on the first short read
type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) take(n int, part string) ([]byte, error) {
	if n < 0 || len(d.buf)-d.pos < n {
		return nil, errors.Newf(errors.ErrFormatTruncated,
			"truncated %s: need %d bytes at offset %d, have %d", part, n, d.pos, len(d.buf)-d.pos).
			WithDetail("section", part).
			WithDetail("offset", d.pos)
	}
	out := d.buf[d.pos : d.pos+n]
	d.pos += n
	return out, nil
}

// DecodeHeader reads and checks the fixed header
func DecodeHeader(b []byte) (Header, error) {
	d := &decoder{buf: b}
	return d.header()
}

func (d *decoder) header() (Header, error) {
	raw, err := d.take(HeaderSize, PartHeader)
	if err != nil {
		return Header{}, err
	}
	h := Header{
		Magic:           le.Uint32(raw[0:]),
		TextSize:        le.Uint32(raw[4:]),
		DataSize:        le.Uint32(raw[8:]),
		SymbolCount:     le.Uint32(raw[12:]),
		RelocationCount: le.Uint32(raw[16:]),
	}
	if h.Magic != Magic {
		return h, errors.Newf(errors.ErrFormatMagic,
			"bad magic 0x%08X (expected 0x%08X)", h.Magic, Magic).
			WithDetail("section", PartHeader)
	}
	return h, nil
}

// Decode parses an encoded object. The header counts are trusted only as
// far as the buffer backs them; bytes after the relocation table are
// ignored.
func Decode(b []byte) (*Object, error) {
	d := &decoder{buf: b}
	h, err := d.header()
	if err != nil {
		return nil, err
	}

	o := &Object{}
	if o.Text, err = d.bytes(int(h.TextSize), PartText); err != nil {
		return nil, err
	}
	if o.Data, err = d.bytes(int(h.DataSize), PartData); err != nil {
		return nil, err
	}

	if h.SymbolCount > 0 {
		raw, err := d.take(int(h.SymbolCount)*SymbolSize, PartSymbols)
		if err != nil {
			return nil, err
		}
		o.Symbols = make([]Symbol, h.SymbolCount)
		for i := range o.Symbols {
			rec := raw[i*SymbolSize : (i+1)*SymbolSize]
			o.Symbols[i] = Symbol{
				Name:    decodeName(rec[:NameSize]),
				Type:    SymbolType(le.Uint32(rec[NameSize:])),
				Section: Section(le.Uint32(rec[NameSize+4:])),
				Offset:  le.Uint32(rec[NameSize+8:]),
			}
		}
	}

	if h.RelocationCount > 0 {
		raw, err := d.take(int(h.RelocationCount)*RelocationSize, PartRelocations)
		if err != nil {
			return nil, err
		}
		o.Relocations = make([]Relocation, h.RelocationCount)
		for i := range o.Relocations {
			rec := raw[i*RelocationSize : (i+1)*RelocationSize]
			o.Relocations[i] = Relocation{
				Offset: le.Uint32(rec[0:]),
				Symbol: decodeName(rec[4 : 4+NameSize]),
				Type:   RelocationType(le.Uint32(rec[4+NameSize:])),
			}
		}
	}

	return o, nil
}

// bytes copies n bytes out of the buffer; an empty section is nil
func (d *decoder) bytes(n int, part string) ([]byte, error) {
	raw, err := d.take(n, part)
	if err != nil || n == 0 {
		return nil, err
	}
	return bytes.Clone(raw), nil
}

// decodeName keeps the raw bytes up to the first NUL, or the whole field
// when it is not terminated
func decodeName(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}
	return string(field)
}

// Validate applies the checks a linker needs: names must fit their field
// with a terminator, every code must be known, defined symbols must point
// into their section and relocations must point into text.
func (o *Object) Validate() error {
	for i, sym := range o.Symbols {
		if err := checkName(sym.Name, PartSymbols, i); err != nil {
			return err
		}
		switch {
		case !sym.Type.Known():
			return recordError(PartSymbols, i, "symbol %q has type %s", sym.Name, sym.Type)
		case !sym.Section.Known():
			return recordError(PartSymbols, i, "symbol %q has section %s", sym.Name, sym.Section)
		}
		if sym.Type != SymbolDefined {
			continue
		}
		size := len(o.Text)
		if sym.Section == SectionData {
			size = len(o.Data)
		}
		if int(sym.Offset) > size {
			return recordError(PartSymbols, i, "symbol %q offset 0x%08X is outside %s (%d bytes)",
				sym.Name, sym.Offset, sym.Section, size)
		}
	}
	for i, rel := range o.Relocations {
		if err := checkName(rel.Symbol, PartRelocations, i); err != nil {
			return err
		}
		if !rel.Type.Known() {
			return recordError(PartRelocations, i, "relocation against %q has type %s", rel.Symbol, rel.Type)
		}
		if int(rel.Offset) >= len(o.Text) {
			return recordError(PartRelocations, i, "relocation offset 0x%08X is outside text (%d bytes)",
				rel.Offset, len(o.Text))
		}
	}
	return nil
}

func recordError(part string, index int, format string, args ...interface{}) error {
	return errors.Newf(errors.ErrFormatRecord, "%s[%d]: "+format, append([]interface{}{part, index}, args...)...).
		WithDetail("section", part).
		WithDetail("index", index)
}
