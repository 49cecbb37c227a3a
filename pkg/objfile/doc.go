// Package objfile reads and writes relocatable object artifacts.
//
// An object is a little-endian header followed by the text bytes, the data
// bytes, the symbol table and the relocation table, in that order:
//
//	header      magic, textSize, dataSize, symbolCount, relocationCount (u32 each)
//	text        textSize bytes
//	data        dataSize bytes
//	symbols     symbolCount x { name[64], type u32, section u32, offset u32 }
//	relocations relocationCount x { offset u32, symbol[64], type u32 }
//
// Names are NUL padded and at most 63 bytes long. Decode keeps unknown
// type and section codes so that inspection keeps working on newer
// objects; Validate rejects them for consumers that need every code to be
// understood.
package objfile
