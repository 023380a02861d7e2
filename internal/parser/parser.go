package parser

import (
	"log/slog"
	"strings"

	"github.com/roach88/codecraft/internal/ir"
	"github.com/roach88/codecraft/internal/logging"
)

// CommentPrefix marks a line that is ignored entirely.
const CommentPrefix = "//"

// Parser turns ritual text into an ordered instruction program.
// A Parser holds no per-call state and is safe for concurrent use.
type Parser struct {
	table  *Table
	logger *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithTable replaces the default rule table.
func WithTable(t *Table) Option {
	return func(p *Parser) {
		p.table = t
	}
}

// WithLogger sets the logger used for dropped-line diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		p.logger = l
	}
}

// New creates a Parser using DefaultTable unless overridden.
func New(opts ...Option) *Parser {
	p := &Parser{
		table:  DefaultTable(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse splits text into lines and builds one instruction per matched line.
//
// Blank lines and lines starting with "//" are skipped. Lines that match no
// rule are dropped without error. The returned program is never nil and
// keeps source line order.
func (p *Parser) Parse(text string) ir.Program {
	program := ir.Program{}

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, CommentPrefix) {
			continue
		}

		m, ok := p.table.Match(line)
		if !ok {
			p.logger.Debug("line matched no rule", "line", i+1)
			continue
		}

		in, err := build(m)
		if err != nil {
			p.logger.Debug("line dropped", "line", i+1, "error", err)
			continue
		}
		program = append(program, in)
	}

	return program
}

// build assembles an instruction from a rule match.
func build(m Match) (ir.Instruction, error) {
	params := []ir.Value{}
	if m.HasArgs && m.Args != "" {
		params = ParseArgs(m.Args)
	}

	var target string
	if !m.Generic {
		target = m.Operation
	}

	return ir.NewInstruction(m.Category, m.Operation, target, params)
}

// Parse parses text with the default rule table.
func Parse(text string) ir.Program {
	return New().Parse(text)
}
