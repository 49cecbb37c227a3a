package types

import "fmt"

// SourceKind is the closed set of inputs the pipeline knows how to build.
// It is decided once, at discovery time.
type SourceKind int

const (
	// HighLevel sources go through the compiler stage
	HighLevel SourceKind = iota
	// PreAssembled sources are already assembly and are copied into the build dir
	PreAssembled
)

// String returns the string representation of the kind
func (k SourceKind) String() string {
	switch k {
	case HighLevel:
		return "high-level"
	case PreAssembled:
		return "pre-assembled"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// MarshalText lets reports render kinds by name
func (k SourceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// SourceDescriptor is one discovered input file. It is never mutated after
// the resolver creates it.
type SourceDescriptor struct {
	// AbsolutePath is the resolved location of the file
	AbsolutePath string `json:"absolutePath" yaml:"absolutePath"`

	// RelativePath is relative to the root it was found under, slash
	// separated, with no leading or trailing slash
	RelativePath string `json:"relativePath" yaml:"relativePath"`

	// Kind decides which stage produces the assembly file
	Kind SourceKind `json:"kind" yaml:"kind"`
}

// String returns a short description used in logs and errors
func (s SourceDescriptor) String() string {
	return fmt.Sprintf("%s (%s)", s.AbsolutePath, s.Kind)
}
