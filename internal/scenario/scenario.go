// Package scenario loads YAML scripts describing documents, views and a sequence of
// editor actions, and runs them through the real dispatcher.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is a parsed scenario.
type File struct {
	Name      string        `yaml:"name" json:"name,omitempty"`
	Documents []DocumentDef `yaml:"documents" json:"documents"`
	Views     []ViewDef     `yaml:"views" json:"views"`
	Steps     []Step        `yaml:"steps" json:"steps"`
}

// DocumentDef declares a document. Rows and Cols hold encoded placement specs; an
// empty entry means the default spec.
type DocumentDef struct {
	ID         string         `yaml:"id"`
	Rows       []string       `yaml:"rows"`
	Cols       []string       `yaml:"cols"`
	ReadOnly   bool           `yaml:"readOnly"`
	Components []ComponentDef `yaml:"components"`
}

// ComponentDef places a component before the first step. Exactly one of Class and
// Embed is set.
type ComponentDef struct {
	ID          string         `yaml:"id"`
	Class       string         `yaml:"class"`
	Embed       string         `yaml:"embed"`
	Placeholder bool           `yaml:"placeholder"`
	Col         int            `yaml:"col"`
	Row         int            `yaml:"row"`
	ColSpan     int            `yaml:"colSpan"`
	RowSpan     int            `yaml:"rowSpan"`
	Properties  map[string]any `yaml:"properties"`
}

type ViewDef struct {
	ID       string `yaml:"id"`
	Document string `yaml:"document"`
}

// Step is one action. Which fields apply depends on Op.
type Step struct {
	Op   string `yaml:"op"`
	View string `yaml:"view"`
	Doc  string `yaml:"doc"`

	Index int    `yaml:"index"`
	Spec  string `yaml:"spec"`
	Group int    `yaml:"group"`

	Component   string `yaml:"component"`
	Class       string `yaml:"class"`
	Embed       string `yaml:"embed"`
	Placeholder bool   `yaml:"placeholder"`
	To          string `yaml:"to"`
	Col         int    `yaml:"col"`
	Row         int    `yaml:"row"`
	ColSpan     int    `yaml:"colSpan"`
	RowSpan     int    `yaml:"rowSpan"`

	Property string `yaml:"property"`
	Value    any    `yaml:"value"`

	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`

	// ExpectError makes the step pass only if it fails with a message containing
	// this text.
	ExpectError string `yaml:"expectError"`
}

// Ops lists every supported step operation.
var Ops = []string{
	OpInsertRow, OpInsertColumn, OpDeleteRow, OpDeleteColumn,
	OpRowSpec, OpColumnSpec, OpGroupRow, OpGroupColumn,
	OpAdd, OpDelete, OpMove, OpConstrain, OpSet, OpEmbed,
	OpTrimRows, OpTrimColumns, OpComposite, OpUndo, OpRedo,
}

const (
	OpInsertRow    = "insert-row"
	OpInsertColumn = "insert-column"
	OpDeleteRow    = "delete-row"
	OpDeleteColumn = "delete-column"
	OpRowSpec      = "row-spec"
	OpColumnSpec   = "column-spec"
	OpGroupRow     = "group-row"
	OpGroupColumn  = "group-column"
	OpAdd          = "add"
	OpDelete       = "delete"
	OpMove         = "move"
	OpConstrain    = "constrain"
	OpSet          = "set"
	OpEmbed        = "embed"
	OpTrimRows     = "trim-rows"
	OpTrimColumns  = "trim-columns"
	OpComposite    = "composite"
	OpUndo         = "undo"
	OpRedo         = "redo"
)

func knownOp(op string) bool {
	for _, o := range Ops {
		if o == op {
			return true
		}
	}
	return false
}

// Load reads and validates a scenario file.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a scenario, rejecting unknown fields.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty scenario")
		}
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks references between documents, views and steps.
func (f *File) Validate() error {
	if len(f.Documents) == 0 {
		return errors.New("scenario declares no documents")
	}
	docs := map[string]bool{}
	for i, d := range f.Documents {
		id := strings.TrimSpace(d.ID)
		if id == "" {
			return fmt.Errorf("documents[%d]: id is required", i)
		}
		if docs[id] {
			return fmt.Errorf("documents[%d]: duplicate id %q", i, id)
		}
		docs[id] = true
	}
	for _, d := range f.Documents {
		for j, c := range d.Components {
			if (c.Class == "") == (c.Embed == "") {
				return fmt.Errorf("document %s components[%d]: set exactly one of class and embed", d.ID, j)
			}
			if c.Embed != "" && !docs[c.Embed] {
				return fmt.Errorf("document %s components[%d]: unknown document %q", d.ID, j, c.Embed)
			}
		}
	}
	views := map[string]bool{}
	for i, v := range f.Views {
		if strings.TrimSpace(v.ID) == "" {
			return fmt.Errorf("views[%d]: id is required", i)
		}
		if views[v.ID] {
			return fmt.Errorf("views[%d]: duplicate id %q", i, v.ID)
		}
		if !docs[v.Document] {
			return fmt.Errorf("view %s: unknown document %q", v.ID, v.Document)
		}
		views[v.ID] = true
	}
	if len(f.Views) == 0 && len(f.Steps) > 0 {
		return errors.New("scenario has steps but no views")
	}
	for i, s := range f.Steps {
		if err := validateStep(s, views, docs, false); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(s Step, views, docs map[string]bool, nested bool) error {
	if !knownOp(s.Op) {
		return fmt.Errorf("unknown op %q", s.Op)
	}
	if s.View != "" && !views[s.View] {
		return fmt.Errorf("%s: unknown view %q", s.Op, s.View)
	}
	for _, d := range []string{s.Doc, s.To, s.Embed} {
		if d != "" && !docs[d] {
			return fmt.Errorf("%s: unknown document %q", s.Op, d)
		}
	}
	switch s.Op {
	case OpUndo, OpRedo:
		if nested {
			return fmt.Errorf("%s cannot appear inside a composite", s.Op)
		}
		if s.View == "" {
			return fmt.Errorf("%s: view is required", s.Op)
		}
	case OpComposite:
		if len(s.Steps) == 0 {
			return errors.New("composite: steps are required")
		}
		for i, c := range s.Steps {
			if err := validateStep(c, views, docs, true); err != nil {
				return fmt.Errorf("composite steps[%d]: %w", i, err)
			}
		}
	case OpAdd:
		if s.Class == "" {
			return errors.New("add: class is required")
		}
	case OpEmbed:
		if s.Embed == "" {
			return errors.New("embed: embed is required")
		}
	case OpDelete, OpMove, OpConstrain:
		if s.Component == "" {
			return fmt.Errorf("%s: component is required", s.Op)
		}
	case OpSet:
		if s.Component == "" || s.Property == "" {
			return errors.New("set: component and property are required")
		}
	}
	return nil
}
