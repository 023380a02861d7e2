package ritual

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/codecraft/internal/ir"
)

func TestRenderReplacesEveryOccurrence(t *testing.T) {
	text := "::cmp.log_event($event)\n::cmp.log_event($event)"

	got, err := Render(text, ir.Object{"event": ir.String("hello")})
	require.NoError(t, err)
	assert.Equal(t, "::cmp.log_event(\"hello\")\n::cmp.log_event(\"hello\")", got)
}

func TestRenderLongestKeyFirst(t *testing.T) {
	got, err := Render("$event $events", ir.Object{
		"event":  ir.Int(1),
		"events": ir.Strings("a", "b"),
	})
	require.NoError(t, err)
	assert.Equal(t, `1 ["a","b"]`, got)
}

func TestRenderStructuredValues(t *testing.T) {
	got, err := Render("::manifest.reality($payload)", ir.Object{
		"payload": ir.Object{"b": ir.Bool(true), "a": ir.Null{}},
	})
	require.NoError(t, err)
	assert.Equal(t, `::manifest.reality({"a":null,"b":true})`, got)
}

func TestRenderLeavesUnresolvedPlaceholders(t *testing.T) {
	text := "::cmp.log_event($event)"

	got, err := Render(text, ir.Object{"other": ir.String("x")})
	require.NoError(t, err)
	assert.Equal(t, text, got)

	got, err = Render(text, nil)
	require.NoError(t, err)
	assert.Equal(t, text, got)
}

func TestRenderDoesNotResubstitute(t *testing.T) {
	got, err := Render("$a", ir.Object{"a": ir.String("$b"), "b": ir.String("x")})
	require.NoError(t, err)
	assert.Equal(t, `"$b"`, got)

	got, err = Render("$a $b", ir.Object{"a": ir.String("$b"), "b": ir.Int(1)})
	require.NoError(t, err)
	assert.Equal(t, `"$b" 1`, got)

	got, err = Render("$b $a", ir.Object{"a": ir.String("$b"), "b": ir.Int(1)})
	require.NoError(t, err)
	assert.Equal(t, `1 "$b"`, got)
}

func TestRenderUnsupportedNumber(t *testing.T) {
	_, err := Render("$n", ir.Object{"n": ir.Float(math.NaN())})
	assert.Error(t, err)
}

func TestCatalogLookup(t *testing.T) {
	c, err := NewCatalog(
		Template{Name: "first", Text: "::bind.eternal()"},
		Template{Name: "second", Text: "::pause_deliberation()"},
	)
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []string{"first", "second"}, c.Names())

	tmpl, err := c.Lookup("second")
	require.NoError(t, err)
	assert.Equal(t, "::pause_deliberation()", tmpl.Text)

	_, err = c.Lookup("missing")
	require.ErrorIs(t, err, ErrUnknownRitual)
	assert.Contains(t, err.Error(), "missing")
}

func TestCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog(Template{Name: "x"}, Template{Name: "x"})
	assert.Error(t, err)
}

func TestCatalogTemplatesIsCopy(t *testing.T) {
	c, err := NewCatalog(Template{Name: "x", Text: "a"})
	require.NoError(t, err)

	ts := c.Templates()
	ts[0].Text = "mutated"

	tmpl, err := c.Lookup("x")
	require.NoError(t, err)
	assert.Equal(t, "a", tmpl.Text)
}

func TestBuiltinSourceEmbedded(t *testing.T) {
	assert.Contains(t, string(BuiltinSource), "memory_archive")
}

func TestRenderKeepsParamTextAsGiven(t *testing.T) {
	got, err := Render("::cmp.log_event($note)", ir.Object{"note": ir.String("cafe\u0301")})
	require.NoError(t, err)
	assert.Equal(t, "::cmp.log_event(\"cafe\u0301\")", got)
}
