// Package stage runs the external toolchain programs.
//
// Every tool is an opaque process: arguments go in, an exit status and the
// two output streams come out. A Runner performs one invocation; the
// Toolchain knows the argument conventions of the compiler, assembler,
// linker and emulator and turns a non-zero exit into a stage failure that
// carries the exact command line and everything the tool printed.
package stage
