package compiler

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/codecraft/internal/ritual"
)

// CompileTemplate parses a CUE value into a ritual.Template.
//
// The CUE value should be the ritual struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`ritual: greet: { text: "::summon.council('ACE')" }`)
//	tmpl, err := CompileTemplate(v.LookupPath(cue.ParsePath("ritual.greet")))
func CompileTemplate(v cue.Value) (ritual.Template, error) {
	if err := v.Err(); err != nil {
		return ritual.Template{}, formatCUEError(err)
	}

	var tmpl ritual.Template
	if sels := v.Path().Selectors(); len(sels) > 0 {
		tmpl.Name = sels[len(sels)-1].String()
	}

	textVal := v.LookupPath(cue.ParsePath("text"))
	if !textVal.Exists() {
		return ritual.Template{}, &CompileError{
			Field:   "text",
			Message: "text is required",
			Pos:     v.Pos(),
		}
	}
	text, err := textVal.String()
	if err != nil {
		return ritual.Template{}, formatCUEError(err)
	}
	tmpl.Text = text

	descVal := v.LookupPath(cue.ParsePath("description"))
	if descVal.Exists() {
		desc, err := descVal.String()
		if err != nil {
			return ritual.Template{}, formatCUEError(err)
		}
		tmpl.Description = desc
	}

	return tmpl, nil
}

// CompileCatalog compiles every field under "ritual" in declaration order.
// Returns the first compile error.
func CompileCatalog(v cue.Value) ([]ritual.Template, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	rituals := v.LookupPath(cue.ParsePath("ritual"))
	if !rituals.Exists() {
		return nil, nil
	}

	iter, err := rituals.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var templates []ritual.Template
	for iter.Next() {
		tmpl, err := CompileTemplate(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("ritual.%s: %w", iter.Label(), err)
		}
		templates = append(templates, tmpl)
	}
	return templates, nil
}

// CompileSource compiles a single CUE document holding a catalog.
func CompileSource(filename string, src []byte) ([]ritual.Template, error) {
	v := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	return CompileCatalog(v)
}

// Builtin compiles the catalog embedded in the ritual package.
func Builtin() (*ritual.Catalog, error) {
	templates, err := CompileSource(ritual.BuiltinFilename, ritual.BuiltinSource)
	if err != nil {
		return nil, fmt.Errorf("builtin catalog: %w", err)
	}
	return ritual.NewCatalog(templates...)
}

// MustBuiltin is like Builtin but panics on error.
func MustBuiltin() *ritual.Catalog {
	c, err := Builtin()
	if err != nil {
		panic(err)
	}
	return c
}

// LoadResult is a catalog directory loaded from disk.
type LoadResult struct {
	Templates []ritual.Template
	FileCount int
}

// LoadDir loads every .cue file in dir as one CUE instance and compiles
// its catalog. Templates are returned unvalidated; run Validate on them.
func LoadDir(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("rituals directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	templates, err := CompileCatalog(value)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Templates: templates, FileCount: len(files)}, nil
}

// FindCUEFiles returns the .cue files directly inside dir.
func FindCUEFiles(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, "*.cue"))
}

// Load error codes.
const (
	ErrCodeScanError   = "E002"
	ErrCodeNoFiles     = "E003"
	ErrCodeLoadFailed  = "E004"
	ErrCodeNotFound    = "E005"
	ErrCodeBuildFailed = "E006"
)

// LoadError reports a directory that could not be loaded.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CompileError represents a CUE compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
