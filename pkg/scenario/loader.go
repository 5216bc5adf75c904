package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// ErrEmptyFile is returned for a scenario file with no content.
var ErrEmptyFile = errors.New("scenario file is empty")

// fileContent is one decoded document: a single scenario or a list.
type fileContent struct {
	scenarios []Scenario
}

// UnmarshalYAML handles both the single scenario and the list form.
func (f *fileContent) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		return node.Decode(&f.scenarios)
	}
	var single Scenario
	if err := node.Decode(&single); err != nil {
		return err
	}
	f.scenarios = []Scenario{single}
	return nil
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnvVars expands ${VAR} and ${VAR:-default} from the environment.
// An unset or empty variable without a default expands to "".
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		sub := envVarPattern.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		if val := os.Getenv(sub[1]); val != "" {
			return val
		}
		if len(sub) >= 3 {
			return sub[2]
		}
		return ""
	})
}

// Parse decodes scenarios from YAML or JSON data. source names the data in
// errors and is recorded on every scenario.
func Parse(data []byte, source string) ([]Scenario, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%s: %w", source, ErrEmptyFile)
	}
	expanded := []byte(ExpandEnvVars(string(data)))

	var raw any
	if err := yaml.Unmarshal(expanded, &raw); err != nil {
		return nil, fmt.Errorf("%s: parsing YAML: %w", source, err)
	}
	doc, err := toJSONDocument(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	if err := ValidateDocument(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	var content fileContent
	if err := yaml.Unmarshal(expanded, &content); err != nil {
		return nil, fmt.Errorf("%s: decoding scenario: %w", source, err)
	}

	scenarios := content.scenarios
	for i := range scenarios {
		scenarios[i].Source = source
		if err := scenarios[i].Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
	}
	return scenarios, nil
}

// LoadFile loads the scenarios in one file.
func LoadFile(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		if os.IsPermission(err) {
			return nil, fmt.Errorf("permission denied: %s", path)
		}
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return Parse(data, path)
}

// Load loads scenarios from file paths and glob patterns, in argument order.
// Patterns support ** and {a,b} alternatives; their matches load in lexical order. A pattern
// that matches nothing is not an error.
func Load(patterns ...string) ([]Scenario, error) {
	var out []Scenario
	for _, pattern := range patterns {
		paths, err := Expand(pattern)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			scenarios, err := LoadFile(path)
			if err != nil {
				return nil, err
			}
			out = append(out, scenarios...)
		}
	}
	return out, nil
}

// Expand resolves a path or glob pattern to the files it names, sorted.
// A plain path is returned as is, whether or not it exists.
func Expand(pattern string) ([]string, error) {
	if !hasMeta(pattern) {
		return []string{pattern}, nil
	}
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("expanding glob pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// toJSONDocument converts decoded YAML into the value model the schema
// validator expects, with numbers as json.Number.
func toJSONDocument(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("document is not JSON compatible: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("document is not JSON compatible: %w", err)
	}
	return doc, nil
}
