// Package replay drives an editing session from YAML edit scripts.
//
// A script is a list of steps. Each step is either a direct edit (add_node,
// add_edge, ...), a pointer gesture fed to the scene (press, move, release,
// click) or a history operation (undo, redo). Expect steps assert the map
// state so scripts double as regression fixtures.
package replay

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Benny93/conceptmap-go/internal/geometry"
)

// Step operations.
const (
	OpAddNode        = "add_node"
	OpAddEdge        = "add_edge"
	OpRemoveNode     = "remove_node"
	OpRemoveEdge     = "remove_edge"
	OpMoveNode       = "move_node"
	OpPress          = "press"
	OpMove           = "move"
	OpRelease        = "release"
	OpClick          = "click"
	OpSelect         = "select"
	OpSelectAll      = "select_all"
	OpClearSelection = "clear_selection"
	OpDelete         = "delete"
	OpUndo           = "undo"
	OpRedo           = "redo"
	OpMarkClean      = "mark_clean"
	OpExpect         = "expect"
)

var (
	// ErrUnknownOp is returned for steps whose op is not recognized.
	ErrUnknownOp = errors.New("unknown op")

	// ErrRejected is returned when the session refuses a direct edit.
	ErrRejected = errors.New("edit rejected")

	// ErrExpectation is returned when an expect step does not hold.
	ErrExpectation = errors.New("expectation failed")
)

// Script is a named sequence of steps.
type Script struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one scripted action. Which fields apply depends on Op.
type Step struct {
	Op string `yaml:"op"`

	// ID names the entity to create, remove, move or select. Nodes and
	// edges added without an ID get a generated one.
	ID     string          `yaml:"id,omitempty"`
	Text   string          `yaml:"text,omitempty"`
	Shape  geometry.Shape  `yaml:"shape,omitempty"`
	At     *geometry.Point `yaml:"at,omitempty"`
	Source string          `yaml:"source,omitempty"`
	Target string          `yaml:"target,omitempty"`
	Label  string          `yaml:"label,omitempty"`

	// Modifiers for press and click.
	Shift bool `yaml:"shift,omitempty"`
	Ctrl  bool `yaml:"ctrl,omitempty"`

	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the state an expect step checks. Nil fields are not
// checked.
type Expect struct {
	Nodes    *int     `yaml:"nodes,omitempty"`
	Edges    *int     `yaml:"edges,omitempty"`
	Has      []string `yaml:"has,omitempty"`
	Missing  []string `yaml:"missing,omitempty"`
	Selected []string `yaml:"selected,omitempty"`
	Modified *bool    `yaml:"modified,omitempty"`
}

// Parse decodes a script. Unknown fields are rejected.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var s Script
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return &s, nil
		}
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	return &s, nil
}

// Load reads and parses the script at path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	s, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}
