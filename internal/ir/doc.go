// Package ir provides the instruction and value types shared by the ritual
// parser, the dispatcher and the collaborators.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Value is sealed: Null, String, Int, Float, Bool, Array, Object
//   - Instruction params are never nil and preserve source order
//   - Instructions are immutable once constructed
//   - Kind is a closed set so handler tables can be indexed, not keyed by string
package ir
