// Package ritual holds named ritual templates and renders their
// placeholders.
//
// A template is plain ritual text containing $name placeholders. Render
// replaces each placeholder with the compact JSON form of its parameter
// before the text reaches the parser. The built-in catalog ships as CUE
// (rituals.cue) and is compiled by the compiler package.
package ritual
