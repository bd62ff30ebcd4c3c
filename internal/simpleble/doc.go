// Package simpleble binds the SimpleBLE-C shared library without cgo.
//
// Native is the raw entry point table; Open provides the purego-backed
// implementation and tests substitute their own. Lib, Adapter and Peripheral
// wrap it with Go types: every string and buffer the library allocates is
// copied and freed before a call returns, every handle is released exactly
// once, and every callback closure is kept in a registry keyed by the
// userdata token native code echoes back.
package simpleble
