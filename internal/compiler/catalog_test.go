package compiler

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/codecraft/internal/ritual"
)

func TestCompileTemplateBasic(t *testing.T) {
	v := cuecontext.New().CompileString(`
		ritual: greet: {
			description: "Say hello"
			text: "::summon.council('ACE')"
		}
	`)
	require.NoError(t, v.Err())

	tmpl, err := CompileTemplate(v.LookupPath(cue.ParsePath("ritual.greet")))
	require.NoError(t, err)
	assert.Equal(t, ritual.Template{
		Name:        "greet",
		Description: "Say hello",
		Text:        "::summon.council('ACE')",
	}, tmpl)
}

func TestCompileTemplateMissingText(t *testing.T) {
	v := cuecontext.New().CompileString(`
		ritual: empty: {
			description: "no text"
		}
	`)

	_, err := CompileTemplate(v.LookupPath(cue.ParsePath("ritual.empty")))
	require.Error(t, err)

	var compileErr *CompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, "text", compileErr.Field)
	assert.Contains(t, compileErr.Message, "required")
}

func TestCompileTemplateTextNotString(t *testing.T) {
	v := cuecontext.New().CompileString(`
		ritual: wrong: text: 42
	`)

	_, err := CompileTemplate(v.LookupPath(cue.ParsePath("ritual.wrong")))
	assert.Error(t, err)
}

func TestCompileCatalogPreservesOrder(t *testing.T) {
	templates, err := CompileSource("order.cue", []byte(`
		ritual: zeta: text: "::bind.eternal()"
		ritual: alpha: text: "::pause_deliberation()"
	`))
	require.NoError(t, err)

	require.Len(t, templates, 2)
	assert.Equal(t, "zeta", templates[0].Name)
	assert.Equal(t, "alpha", templates[1].Name)
}

func TestCompileCatalogNoRituals(t *testing.T) {
	templates, err := CompileSource("empty.cue", []byte(`other: 1`))
	require.NoError(t, err)
	assert.Empty(t, templates)
}

func TestCompileSourceSyntaxError(t *testing.T) {
	_, err := CompileSource("broken.cue", []byte(`ritual: {`))
	require.Error(t, err)

	var compileErr *CompileError
	require.True(t, errors.As(err, &compileErr))
	assert.Equal(t, "cue", compileErr.Field)
	assert.Equal(t, "broken.cue", compileErr.Pos.Filename())
}

func TestBuiltin(t *testing.T) {
	c, err := Builtin()
	require.NoError(t, err)

	assert.Equal(t, []string{"brandy_gauntlet", "consciousness_check", "memory_archive"}, c.Names())

	archive, err := c.Lookup("memory_archive")
	require.NoError(t, err)
	assert.Equal(t, "::cmp.log_event($event)\n::cmp.archive()\n::cmp.remember_forever()", archive.Text)

	gauntlet, err := c.Lookup("brandy_gauntlet")
	require.NoError(t, err)
	assert.Contains(t, gauntlet.Text, "::summon.council(['Claude', 'ACE', 'MEGA'])")
	assert.Contains(t, gauntlet.Text, "\n  challenge: 'Show me code',\n")

	assert.Empty(t, Validate(c.Templates()))
}

func TestMustBuiltin(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Equal(t, 3, MustBuiltin().Len())
	})
}

func writeCUE(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0644))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "a.cue", `package rituals

ritual: first: text: "::bind.eternal()"
`)
	writeCUE(t, dir, "b.cue", `package rituals

ritual: second: {
	description: "pause"
	text: "::pause_deliberation()"
}
`)

	res, err := LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, res.FileCount)
	require.Len(t, res.Templates, 2)

	names := []string{res.Templates[0].Name, res.Templates[1].Name}
	assert.ElementsMatch(t, []string{"first", "second"}, names)
}

func TestLoadDirErrors(t *testing.T) {
	var loadErr *LoadError

	_, err := LoadDir(filepath.Join(t.TempDir(), "missing"))
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)

	_, err = LoadDir(t.TempDir())
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, ErrCodeNoFiles, loadErr.Code)

	file := filepath.Join(t.TempDir(), "x.cue")
	require.NoError(t, os.WriteFile(file, []byte("package x\n"), 0644))
	_, err = LoadDir(file)
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestLoadDirConflict(t *testing.T) {
	dir := t.TempDir()
	writeCUE(t, dir, "a.cue", "package rituals\n\nritual: x: text: \"one\"\n")
	writeCUE(t, dir, "b.cue", "package rituals\n\nritual: x: text: \"two\"\n")

	_, err := LoadDir(dir)
	assert.Error(t, err)
}
