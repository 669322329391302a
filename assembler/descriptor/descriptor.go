// Package descriptor reads deployment descriptors written in CUE or JSON
// into the info model. A descriptor is either a whole configuration
// (facilities plus applications) or a single application.
package descriptor

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"

	"github.com/strogmv/assembler/assembler/info"
)

//go:embed schema.cue
var schemaSource string

// Loader compiles descriptors against the embedded schema.
type Loader struct {
	ctx    *cue.Context
	schema cue.Value
}

func New() *Loader {
	ctx := cuecontext.New()
	return &Loader{ctx: ctx, schema: ctx.CompileString(schemaSource, cue.Filename("schema.cue"))}
}

// LoadConfiguration reads a configuration from a .cue or .json file, or
// from a directory holding one CUE package.
func (l *Loader) LoadConfiguration(path string) (*info.Configuration, error) {
	v, err := l.load(path)
	if err != nil {
		return nil, err
	}
	return l.configuration(v)
}

// LoadApp reads a single application from a file or CUE package directory.
func (l *Loader) LoadApp(path string) (*info.AppInfo, error) {
	v, err := l.load(path)
	if err != nil {
		return nil, err
	}
	return l.app(v)
}

// ReadConfiguration compiles a configuration from r; name is used in
// error positions.
func (l *Loader) ReadConfiguration(name string, r io.Reader) (*info.Configuration, error) {
	v, err := l.read(name, r)
	if err != nil {
		return nil, err
	}
	return l.configuration(v)
}

// ReadApp compiles a single application from r.
func (l *Loader) ReadApp(name string, r io.Reader) (*info.AppInfo, error) {
	v, err := l.read(name, r)
	if err != nil {
		return nil, err
	}
	return l.app(v)
}

// IsApp reports whether the descriptor at path is a single application
// rather than a whole configuration.
func (l *Loader) IsApp(path string) (bool, error) {
	v, err := l.load(path)
	if err != nil {
		return false, err
	}
	return v.LookupPath(cue.ParsePath("appId")).Exists(), nil
}

func (l *Loader) configuration(v cue.Value) (*info.Configuration, error) {
	v = v.Unify(l.schema.LookupPath(cue.ParsePath("#Configuration")))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("descriptor does not match configuration schema:\n%s", FormatError(err))
	}
	var cfg info.Configuration
	if err := v.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := info.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *Loader) app(v cue.Value) (*info.AppInfo, error) {
	v = v.Unify(l.schema.LookupPath(cue.ParsePath("#App")))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("descriptor does not match application schema:\n%s", FormatError(err))
	}
	var app info.AppInfo
	if err := v.Decode(&app); err != nil {
		return nil, fmt.Errorf("decode application: %w", err)
	}
	if err := info.ValidateApp(&app); err != nil {
		return nil, err
	}
	return &app, nil
}

func (l *Loader) load(path string) (cue.Value, error) {
	st, err := os.Stat(path)
	if err != nil {
		return cue.Value{}, err
	}
	if st.IsDir() {
		return l.loadDir(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return cue.Value{}, err
	}
	defer f.Close()
	return l.read(path, f)
}

func (l *Loader) read(name string, r io.Reader) (cue.Value, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return cue.Value{}, fmt.Errorf("read %s: %w", name, err)
	}
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".cue", ".json", "":
	default:
		return cue.Value{}, fmt.Errorf("%s: unsupported descriptor format %q", name, ext)
	}
	// JSON is valid CUE.
	v := l.ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile %s:\n%s", name, FormatError(err))
	}
	return v, nil
}

func (l *Loader) loadDir(path string) (cue.Value, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return cue.Value{}, err
	}
	bis := load.Instances([]string{"."}, &load.Config{
		Dir: absPath,
	})
	if len(bis) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE files found in %s", path)
	}
	if bis[0].Err != nil {
		return cue.Value{}, bis[0].Err
	}
	v := l.ctx.BuildInstance(bis[0])
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("build %s:\n%s", path, FormatError(err))
	}
	return v, nil
}

// FormatError lists every CUE error with the positions involved.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	var msg strings.Builder
	for _, e := range errors.Errors(err) {
		fmt.Fprintf(&msg, "  %v\n", e)
		positions := errors.Positions(e)
		if len(positions) > 1 {
			for i, p := range positions {
				fmt.Fprintf(&msg, "    %d. %s\n", i+1, p.String())
			}
		}
	}
	if msg.Len() == 0 {
		return err.Error()
	}
	return msg.String()
}
