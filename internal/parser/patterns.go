package parser

import (
	"regexp"

	"github.com/roach88/codecraft/internal/ir"
)

// RuleForm distinguishes how a rule captures the pieces of a line.
type RuleForm int

const (
	// FormMarker matches ::category.word(args) for one fixed category.
	FormMarker RuleForm = iota + 1
	// FormFixed matches a fixed marker with no operation word, e.g.
	// ::pause_deliberation() or ::redirect_focus(args).
	FormFixed
	// FormGeneric matches ::category.command(args) for any category.
	FormGeneric
)

// Rule associates a category with a line pattern.
type Rule struct {
	Category string
	Form     RuleForm
	Pattern  *regexp.Regexp
}

// Match holds the raw pieces extracted from a matched line.
type Match struct {
	Category  string
	Operation string // "" when the rule captures no operation word
	Args      string // raw text inside the parentheses, untrimmed
	HasArgs   bool   // false for zero-argument markers
	Generic   bool
}

// Table is an ordered list of rules. The first matching rule wins.
// Tables are read-only after construction and safe for concurrent use.
type Table struct {
	rules []Rule
}

// markerCategories are the categories bound to a ::category.word(args) rule,
// in priority order.
var markerCategories = []string{
	ir.KindSummon.String(),
	ir.KindManifest.String(),
	ir.KindBind.String(),
	ir.KindContext.String(),
	ir.KindDetect.String(),
	ir.KindEnforce.String(),
}

// DefaultTable returns the built-in rule table: the marker rules, the
// ::pause_deliberation() and ::redirect_focus(args) fixed markers, the cmp
// marker, then the generic fallback.
func DefaultTable() *Table {
	rules := make([]Rule, 0, len(markerCategories)+4)
	for _, category := range markerCategories {
		rules = append(rules, markerRule(category))
	}
	rules = append(rules,
		Rule{
			Category: ir.KindPause.String(),
			Form:     FormFixed,
			Pattern:  regexp.MustCompile(`::pause_deliberation\(\)`),
		},
		Rule{
			Category: ir.KindRedirect.String(),
			Form:     FormFixed,
			Pattern:  regexp.MustCompile(`::redirect_focus\((.*?)\)`),
		},
		markerRule(ir.KindCMP.String()),
		Rule{
			Form:    FormGeneric,
			Pattern: regexp.MustCompile(`::(\w+)\.(\w+)\((.*?)\)`),
		},
	)
	return &Table{rules: rules}
}

// NewTable builds a table from explicit rules. A generic rule, if any,
// must come last to act as the fallback.
func NewTable(rules ...Rule) *Table {
	r := make([]Rule, len(rules))
	copy(r, rules)
	return &Table{rules: r}
}

func markerRule(category string) Rule {
	return Rule{
		Category: category,
		Form:     FormMarker,
		Pattern:  regexp.MustCompile(`::` + regexp.QuoteMeta(category) + `\.(\w+)\((.*?)\)`),
	}
}

// Rules returns a copy of the rules in priority order.
func (t *Table) Rules() []Rule {
	r := make([]Rule, len(t.rules))
	copy(r, t.rules)
	return r
}

// Match tries each rule in order against a trimmed line.
// Returns false when no rule applies.
func (t *Table) Match(line string) (Match, bool) {
	for _, rule := range t.rules {
		groups := rule.Pattern.FindStringSubmatch(line)
		if groups == nil {
			continue
		}
		return rule.extract(groups), true
	}
	return Match{}, false
}

func (r Rule) extract(groups []string) Match {
	switch r.Form {
	case FormGeneric:
		return Match{
			Category:  groups[1],
			Operation: groups[2],
			Args:      groups[3],
			HasArgs:   true,
			Generic:   true,
		}
	case FormFixed:
		m := Match{Category: r.Category}
		if len(groups) > 1 {
			m.Args = groups[1]
			m.HasArgs = true
		}
		return m
	default:
		return Match{
			Category:  r.Category,
			Operation: groups[1],
			Args:      groups[2],
			HasArgs:   true,
		}
	}
}
