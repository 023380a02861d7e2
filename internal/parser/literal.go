package parser

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/codecraft/internal/ir"
)

// ParseArgs converts the raw text inside an invocation's parentheses into an
// ordered list of typed values. It never fails: anything that does not parse
// as a literal is kept verbatim as a string.
//
// Text that starts with '{' or '[' is first parsed as one structured literal.
// Otherwise the text is split on every comma. The split does not track
// bracket or quote depth, so a collection literal given alongside other
// arguments is broken apart at its inner commas.
func ParseArgs(raw string) []ir.Value {
	text := strings.TrimSpace(raw)
	if text == "" {
		return []ir.Value{}
	}

	if text[0] == '{' || text[0] == '[' {
		if v, ok := parseStructured(text); ok {
			return []ir.Value{v}
		}
	}

	tokens := strings.Split(text, ",")
	values := make([]ir.Value, len(tokens))
	for i, tok := range tokens {
		values[i] = parseToken(strings.TrimSpace(tok))
	}
	return values
}

// parseToken types a single comma-separated token.
func parseToken(tok string) ir.Value {
	if isQuoted(tok) {
		return ir.String(tok[1 : len(tok)-1])
	}
	if v, err := ir.DecodeJSON([]byte(tok)); err == nil {
		return v
	}
	return ir.String(tok)
}

// isQuoted reports whether tok is wrapped in one matching pair of single or
// double quotes.
func isQuoted(tok string) bool {
	if len(tok) < 2 {
		return false
	}
	first, last := tok[0], tok[len(tok)-1]
	return first == last && (first == '\'' || first == '"')
}

// parseStructured parses an object or array literal. Strict JSON is tried
// first; a YAML flow collection is accepted as a fallback so that rituals
// may use single-quoted strings and bare keys, e.g. ['Claude', 'ACE'] or
// {status: 'OK'}.
func parseStructured(text string) (ir.Value, bool) {
	if v, err := ir.DecodeJSON([]byte(text)); err == nil {
		return v, true
	}

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		return nil, false
	}
	if !isFlowCollection(&node) {
		return nil, false
	}

	var raw any
	if err := node.Decode(&raw); err != nil {
		return nil, false
	}
	v, err := ir.FromGo(raw)
	if err != nil {
		return nil, false
	}
	return v, true
}

// isFlowCollection accepts a document holding exactly one flow-style mapping
// or sequence. Block YAML and scalars are rejected.
func isFlowCollection(doc *yaml.Node) bool {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 {
		return false
	}
	n := doc.Content[0]
	if n.Style&yaml.FlowStyle == 0 {
		return false
	}
	return n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode
}
