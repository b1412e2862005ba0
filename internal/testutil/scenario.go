// Package testutil provides shared test helpers for minijs Go tests.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/tools/txtar"
	"gopkg.in/yaml.v3"
)

// ScenariosDir is the scenario directory relative to the module root.
const ScenariosDir = "testdata/scenarios"

// Scenario is one CLI conformance case stored as a txtar archive.
// The archive comment is a YAML header; the files are the program
// sources and config the command runs against.
//
//	args: [main.js]
//	exit: 0
//	stdout: "2\n"
//	-- main.js --
//	x = 1; x = x + 1; println x;
type Scenario struct {
	Name string `yaml:"-"`

	// Args is the CLI argument list. Entries naming an archive file are
	// rewritten to the materialised path and $WORK expands to the
	// materialised directory.
	Args  []string `yaml:"args"`
	Stdin string   `yaml:"stdin"`
	Exit  int      `yaml:"exit"`
	Tags  []string `yaml:"tags"`

	// Stdout is compared exactly when set.
	Stdout *string `yaml:"stdout"`

	// StdoutContains and StderrContains list required substrings.
	StdoutContains []string `yaml:"stdout_contains"`
	StderrContains []string `yaml:"stderr_contains"`

	// FileContains maps files under the work directory, after the run,
	// to required substrings.
	FileContains map[string][]string `yaml:"file_contains"`

	Files map[string][]byte `yaml:"-"`
}

// ParseScenario decodes a txtar archive into a Scenario.
func ParseScenario(name string, data []byte) (*Scenario, error) {
	ar := txtar.Parse(data)
	s := &Scenario{Name: name, Files: make(map[string][]byte, len(ar.Files))}

	dec := yaml.NewDecoder(bytes.NewReader(ar.Comment))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("scenario %s: header: %w", name, err)
	}
	if len(s.Args) == 0 {
		return nil, fmt.Errorf("scenario %s: header has no args", name)
	}
	for _, f := range ar.Files {
		if _, dup := s.Files[f.Name]; dup {
			return nil, fmt.Errorf("scenario %s: duplicate file %q", name, f.Name)
		}
		s.Files[f.Name] = f.Data
	}
	return s, nil
}

// LoadScenario reads and parses a single .txtar scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(strings.TrimSuffix(filepath.Base(path), ".txtar"), data)
}

// ListScenarios returns all .txtar files under root in name order.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".txtar") {
			paths = append(paths, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Materialize writes the scenario files into dir and returns Args with
// archive file names replaced by their paths under dir and $WORK by dir.
func (s *Scenario) Materialize(dir string) ([]string, error) {
	for name, data := range s.Files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, err
		}
	}

	args := make([]string, len(s.Args))
	for i, a := range s.Args {
		if _, ok := s.Files[a]; ok {
			a = filepath.Join(dir, filepath.FromSlash(a))
		}
		a = strings.ReplaceAll(a, "$WORK", dir)
		args[i] = a
	}
	return args, nil
}
