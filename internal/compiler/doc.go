// Package compiler loads declarative choreography programs from disk.
//
// Programs are authored either as versioned JSON documents or as CUE
// files. CUE sources are unified with the embedded #Program schema before
// decoding, so shape errors surface with CUE's own positions instead of
// cryptic decode failures. Both paths produce a choreo.Program that still
// goes through registry validation; the compiler checks shape, the
// registry checks semantics (continuation placement, easing names,
// when-predicate syntax).
package compiler
