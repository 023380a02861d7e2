package ir

import "fmt"

// Kind is the closed set of instruction families that have a dedicated
// pattern rule. Categories reached only through the generic rule map to
// KindGeneric.
type Kind int

const (
	KindGeneric Kind = iota
	KindSummon
	KindManifest
	KindBind
	KindContext
	KindDetect
	KindEnforce
	KindPause
	KindRedirect
	KindCMP

	// NumKinds sizes lookup tables indexed by Kind.
	NumKinds
)

var kindNames = [NumKinds]string{
	KindGeneric:  "generic",
	KindSummon:   "summon",
	KindManifest: "manifest",
	KindBind:     "bind",
	KindContext:  "context",
	KindDetect:   "detect",
	KindEnforce:  "enforce",
	KindPause:    "pause",
	KindRedirect: "redirect",
	KindCMP:      "cmp",
}

// String returns the category name of the kind.
func (k Kind) String() string {
	if k < 0 || k >= NumKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// KindOf maps a category name to its Kind.
// Unknown categories map to KindGeneric.
func KindOf(category string) Kind {
	for k := KindSummon; k < NumKinds; k++ {
		if kindNames[k] == category {
			return k
		}
	}
	return KindGeneric
}

// Instruction is one parsed ritual line.
//
// Instructions are built once by the parser and never mutated afterwards;
// accessors return copies of the slices they hold.
type Instruction struct {
	category string
	command  string
	target   string
	params   []Value
	children []Instruction
}

// NewInstruction creates an instruction node.
// An empty command defaults to the category; nil params become an empty slice.
// Returns an error if category is empty.
func NewInstruction(category, command, target string, params []Value) (Instruction, error) {
	if category == "" {
		return Instruction{}, fmt.Errorf("instruction category must not be empty")
	}
	if command == "" {
		command = category
	}
	p := make([]Value, len(params))
	copy(p, params)
	return Instruction{
		category: category,
		command:  command,
		target:   target,
		params:   p,
	}, nil
}

// MustInstruction is like NewInstruction but panics on error.
// Intended for tests and static tables.
func MustInstruction(category, command, target string, params ...Value) Instruction {
	in, err := NewInstruction(category, command, target, params)
	if err != nil {
		panic(err)
	}
	return in
}

// Category returns the instruction family name.
func (in Instruction) Category() string { return in.category }

// Command returns the operation within the category.
func (in Instruction) Command() string { return in.command }

// Target returns the operation captured by a specific rule, or "".
func (in Instruction) Target() string { return in.target }

// Kind returns the closed-set kind of the category.
func (in Instruction) Kind() Kind { return KindOf(in.category) }

// Params returns a copy of the ordered parameters. Never nil.
func (in Instruction) Params() []Value {
	p := make([]Value, len(in.params))
	copy(p, in.params)
	return p
}

// Param returns the parameter at index i, or Null when absent.
func (in Instruction) Param(i int) Value {
	if i < 0 || i >= len(in.params) {
		return Null{}
	}
	return in.params[i]
}

// NumParams returns the number of parameters.
func (in Instruction) NumParams() int { return len(in.params) }

// Children returns nested instructions. No current grammar populates them.
func (in Instruction) Children() []Instruction {
	if len(in.children) == 0 {
		return nil
	}
	c := make([]Instruction, len(in.children))
	copy(c, in.children)
	return c
}

// ToValue renders the instruction as an Object for JSON output.
// Target and children appear only when present.
func (in Instruction) ToValue() Object {
	obj := NewObject(
		O("type", String(in.category)),
		O("command", String(in.command)),
		O("params", Array(in.Params())),
	)
	if in.target != "" {
		obj["target"] = String(in.target)
	}
	if len(in.children) > 0 {
		children := make(Array, len(in.children))
		for i, c := range in.children {
			children[i] = c.ToValue()
		}
		obj["children"] = children
	}
	return obj
}

// MarshalJSON implements json.Marshaler.
func (in Instruction) MarshalJSON() ([]byte, error) {
	return MarshalValue(in.ToValue())
}

// Program is an ordered instruction sequence in source line order.
type Program []Instruction

// ToValue renders the program as an Array of instruction objects.
func (p Program) ToValue() Array {
	arr := make(Array, len(p))
	for i, in := range p {
		arr[i] = in.ToValue()
	}
	return arr
}
