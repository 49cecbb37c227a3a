package objfile

import "fmt"

// Magic identifies an object artifact ("LNK1")
const Magic uint32 = 0x4C4E4B31

const (
	// NameSize is the on-disk width of a symbol name field
	NameSize = 64
	// MaxNameLen leaves room for the terminating NUL
	MaxNameLen = NameSize - 1

	HeaderSize     = 5 * 4
	SymbolSize     = NameSize + 3*4
	RelocationSize = 4 + NameSize + 4
)

// SymbolType tells whether a symbol is defined in this object
type SymbolType uint32

const (
	SymbolUndefined SymbolType = 0
	SymbolDefined   SymbolType = 1
)

func (t SymbolType) String() string {
	switch t {
	case SymbolUndefined:
		return "UNDEFINED"
	case SymbolDefined:
		return "DEFINED"
	default:
		return unknown(uint32(t))
	}
}

// Known reports whether the code is part of the format
func (t SymbolType) Known() bool {
	return t == SymbolUndefined || t == SymbolDefined
}

// Section is the section a symbol offset refers to
type Section uint32

const (
	SectionText Section = 0
	SectionData Section = 1
)

func (s Section) String() string {
	switch s {
	case SectionText:
		return "TEXT"
	case SectionData:
		return "DATA"
	default:
		return unknown(uint32(s))
	}
}

func (s Section) Known() bool {
	return s == SectionText || s == SectionData
}

// RelocationType selects how the linker patches a text offset
type RelocationType uint32

const (
	RelocationAbsolute RelocationType = 0
	RelocationRelative RelocationType = 1
)

func (t RelocationType) String() string {
	switch t {
	case RelocationAbsolute:
		return "ABSOLUTE"
	case RelocationRelative:
		return "RELATIVE"
	default:
		return unknown(uint32(t))
	}
}

func (t RelocationType) Known() bool {
	return t == RelocationAbsolute || t == RelocationRelative
}

func unknown(code uint32) string {
	return fmt.Sprintf("UNKNOWN(%d)", code)
}

// Symbol is one entry of the symbol table
type Symbol struct {
	Name    string
	Type    SymbolType
	Section Section
	Offset  uint32
}

// Relocation marks a text offset that refers to a symbol
type Relocation struct {
	Offset uint32
	Symbol string
	Type   RelocationType
}

// Header is the fixed prefix of an encoded object
type Header struct {
	Magic           uint32 `json:"magic" yaml:"magic"`
	TextSize        uint32 `json:"text_size" yaml:"text_size"`
	DataSize        uint32 `json:"data_size" yaml:"data_size"`
	SymbolCount     uint32 `json:"symbol_count" yaml:"symbol_count"`
	RelocationCount uint32 `json:"relocation_count" yaml:"relocation_count"`
}

// Object is a decoded object artifact. An empty section is nil after
// decoding; the encoding does not distinguish nil from empty.
type Object struct {
	Text        []byte
	Data        []byte
	Symbols     []Symbol
	Relocations []Relocation
}

// Header computes the header that Encode writes for o
func (o *Object) Header() Header {
	return Header{
		Magic:           Magic,
		TextSize:        uint32(len(o.Text)),
		DataSize:        uint32(len(o.Data)),
		SymbolCount:     uint32(len(o.Symbols)),
		RelocationCount: uint32(len(o.Relocations)),
	}
}

// Size is the encoded length of o in bytes
func (o *Object) Size() int {
	return HeaderSize + len(o.Text) + len(o.Data) +
		len(o.Symbols)*SymbolSize + len(o.Relocations)*RelocationSize
}
