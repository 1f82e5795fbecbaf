// Package templates loads command templates and fills in ${key} placeholders.
package templates

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/phospodka/reindexer/internal/failure"
	"github.com/phospodka/reindexer/internal/props"
)

const (
	// Dir is the template directory below the base path.
	Dir = "templates"
	// Ext is the template file extension.
	Ext = ".template"

	prefix = "${"
	suffix = "}"
)

var placeholderRe = regexp.MustCompile(`\$\{[^}]*\}`)

// Resolver loads named templates from <base>/templates and substitutes
// ${key} placeholders from a PropertySet.
type Resolver struct {
	base string
}

// NewResolver creates a resolver rooted at base.
func NewResolver(base string) *Resolver {
	return &Resolver{base: base}
}

// Path returns the file a template name is loaded from.
func (r *Resolver) Path(name string) string {
	return filepath.Join(r.base, Dir, name+Ext)
}

// Load returns the raw template text.
func (r *Resolver) Load(name string) (string, error) {
	data, err := os.ReadFile(r.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", failure.New(failure.TemplateNotFound, "%s", r.Path(name))
		}
		return "", fmt.Errorf("reading template %s: %w", name, err)
	}
	return string(data), nil
}

// Resolve loads a template and substitutes every placeholder whose key is
// present in p. Unknown placeholders are left untouched.
func (r *Resolver) Resolve(name string, p *props.PropertySet) (string, error) {
	text, err := r.Load(name)
	if err != nil {
		return "", err
	}
	return Substitute(text, p.Snapshot()), nil
}

// Substitute replaces ${key} with values[key] in a single pass; substituted
// values are never re-scanned.
func Substitute(text string, values map[string]string) string {
	if len(values) == 0 {
		return text
	}
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, prefix+k+suffix, v)
	}
	// Placeholders are delimited on both ends, so no old string is a prefix
	// of another and argument order does not matter.
	return strings.NewReplacer(pairs...).Replace(text)
}

// Unresolved lists the distinct placeholders remaining in text, sorted.
func Unresolved(text string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range placeholderRe.FindAllString(text, -1) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}
