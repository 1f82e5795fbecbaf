package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/phospodka/reindexer/internal/props"
)

// Properties file key namespaces.
const (
	// CorePrefix maps a core property name to the placeholder key templates use
	CorePrefix = "replacement.core."
	// DefPrefix defines a stable placeholder value
	DefPrefix = "replacement.def."

	commentChar = "#"
	separator   = "="
)

// PropertiesPath returns the properties file location below home.
func PropertiesPath(home string) string {
	return filepath.Join(home, "conf", "config.properties")
}

// ReadProperties parses key=value lines. Blank lines and lines starting
// with # are skipped; surrounding quotes are stripped from values and any
// further = characters stay part of the value.
func ReadProperties(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentChar) {
			continue
		}
		key, value, _ := strings.Cut(line, separator)
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("parsing properties: line %d has no key", lineNo)
		}
		out[key] = strings.Trim(strings.TrimSpace(value), `"`)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("parsing properties: %w", err)
	}
	return out, nil
}

// LoadProperties reads a properties file from disk.
func LoadProperties(path string) (map[string]string, error) {
	if warning := checkFilePermissions(path, "properties file"); warning != "" {
		fmt.Fprint(os.Stderr, warning)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading properties file: %w", err)
	}
	defer f.Close()

	return ReadProperties(f)
}

// SplitProperties separates the two key namespaces: core name mappings and
// stable values. Keys in neither namespace are ignored.
func SplitProperties(raw map[string]string) (map[string]string, props.KeyMap) {
	values := make(map[string]string)
	keys := make(props.KeyMap)
	for k, v := range raw {
		switch {
		case strings.HasPrefix(k, CorePrefix):
			keys[strings.TrimPrefix(k, CorePrefix)] = v
		case strings.HasPrefix(k, DefPrefix):
			values[strings.TrimPrefix(k, DefPrefix)] = v
		}
	}
	return values, keys
}

// LoadPropertySet builds the run's PropertySet from <home>/conf/config.properties
// and records the template search path under the "path" core key.
func LoadPropertySet(home string) (*props.PropertySet, error) {
	raw, err := LoadProperties(PropertiesPath(home))
	if err != nil {
		return nil, err
	}
	values, keys := SplitProperties(raw)
	p := props.New(values, keys)
	p.SetCore(props.Path, filepath.Join(home, "templates")+string(filepath.Separator))
	return p, nil
}
