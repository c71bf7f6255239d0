// Package schema holds the expected exercise hierarchy an exam is graded
// against. The tree is built once from configuration and never carries
// document-derived data.
package schema

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrInvalidSchema is returned when the exercises configuration cannot be decoded.
var ErrInvalidSchema = errors.New("invalid exercise schema")

// IDSeparator joins ancestor names into an exercise ID.
const IDSeparator = "_"

const orderKey = "_order"

// Exercise is one expected, gradeable unit.
type Exercise struct {
	Name         string      `json:"name"`
	ID           string      `json:"id"`
	AtomicPoints float64     `json:"atomicPoints"`
	TotalPoints  float64     `json:"totalPoints"`
	SubExercises []*Exercise `json:"subExercises,omitempty"`
}

// Children implements Node.
func (e *Exercise) Children() []*Exercise {
	return e.SubExercises
}

// Clone returns a deep copy of the exercise and its descendants.
func (e *Exercise) Clone() *Exercise {
	c := *e
	c.SubExercises = CloneAll(e.SubExercises)
	return &c
}

// CloneAll deep-copies a list of exercises.
func CloneAll(exs []*Exercise) []*Exercise {
	if exs == nil {
		return nil
	}
	out := make([]*Exercise, len(exs))
	for i, ex := range exs {
		out[i] = ex.Clone()
	}
	return out
}

// Definitions is the raw exercises configuration. It accepts either a list of
// {name, atomicPoints, subExercises} objects or a mapping from name to either
// a number (atomic points) or an {atomicPoints, subExercises} object. A
// mapping may carry an `_order` list fixing the sibling order.
type Definitions struct {
	list    []listEntry
	entries map[string]mapEntry
	order   []string
	isMap   bool
}

type listEntry struct {
	Name         string      `yaml:"name"`
	AtomicPoints float64     `yaml:"atomicPoints"`
	SubExercises Definitions `yaml:"subExercises"`
}

type mapEntry struct {
	AtomicPoints float64
	SubExercises Definitions
}

type objectEntry struct {
	AtomicPoints float64     `yaml:"atomicPoints"`
	SubExercises Definitions `yaml:"subExercises"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Definitions) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var list []listEntry
		if err := value.Decode(&list); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSchema, err)
		}
		for i, e := range list {
			if e.Name == "" {
				return fmt.Errorf("%w: list entry %d has no name (line %d)", ErrInvalidSchema, i, value.Line)
			}
		}
		*d = Definitions{list: list}
		return nil
	case yaml.MappingNode:
		return d.decodeMapping(value)
	case yaml.ScalarNode:
		if value.Tag == "!!null" {
			*d = Definitions{}
			return nil
		}
	}
	return fmt.Errorf("%w: exercises must be a list or a mapping (line %d)", ErrInvalidSchema, value.Line)
}

func (d *Definitions) decodeMapping(value *yaml.Node) error {
	out := Definitions{isMap: true, entries: make(map[string]mapEntry)}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i].Value, value.Content[i+1]
		if key == orderKey {
			if val.Kind != yaml.SequenceNode {
				// a non-list _order is ignored
				continue
			}
			if err := val.Decode(&out.order); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrInvalidSchema, orderKey, err)
			}
			continue
		}
		if _, dup := out.entries[key]; dup {
			return fmt.Errorf("%w: exercise %q defined twice (line %d)", ErrInvalidSchema, key, val.Line)
		}
		switch val.Kind {
		case yaml.ScalarNode:
			points, err := strconv.ParseFloat(val.Value, 64)
			if err != nil {
				return fmt.Errorf("%w: points of %q: %v", ErrInvalidSchema, key, err)
			}
			out.entries[key] = mapEntry{AtomicPoints: points}
		case yaml.MappingNode:
			var obj objectEntry
			if err := val.Decode(&obj); err != nil {
				return fmt.Errorf("%w: exercise %q: %v", ErrInvalidSchema, key, err)
			}
			out.entries[key] = mapEntry(obj)
		default:
			return fmt.Errorf("%w: exercise %q must be a number or an object (line %d)", ErrInvalidSchema, key, val.Line)
		}
	}
	*d = out
	return nil
}

// Build turns the raw definitions into the canonical exercise tree, computing
// IDs and total points once.
func Build(defs Definitions) []*Exercise {
	return build(defs, "")
}

func build(defs Definitions, parentID string) []*Exercise {
	if !defs.isMap {
		out := make([]*Exercise, 0, len(defs.list))
		for _, e := range defs.list {
			out = append(out, newExercise(e.Name, e.AtomicPoints, e.SubExercises, parentID))
		}
		return out
	}

	names := make([]string, 0, len(defs.entries))
	for name := range defs.entries {
		names = append(names, name)
	}
	sortNames(names, defs.order)

	out := make([]*Exercise, 0, len(names))
	for _, name := range names {
		e := defs.entries[name]
		out = append(out, newExercise(name, e.AtomicPoints, e.SubExercises, parentID))
	}
	return out
}

func newExercise(name string, atomic float64, subs Definitions, parentID string) *Exercise {
	id := name
	if parentID != "" {
		id = parentID + IDSeparator + name
	}
	ex := &Exercise{Name: name, ID: id, AtomicPoints: atomic}
	ex.SubExercises = build(subs, id)
	ex.TotalPoints = ex.AtomicPoints
	for _, sub := range ex.SubExercises {
		ex.TotalPoints += sub.TotalPoints
	}
	return ex
}

// sortNames orders names listed in order first (in that order), then the
// rest lexicographically.
func sortNames(names, order []string) {
	rank := make(map[string]int, len(order))
	for i, n := range order {
		if _, ok := rank[n]; !ok {
			rank[n] = i
		}
	}
	sort.SliceStable(names, func(i, j int) bool {
		ri, iok := rank[names[i]]
		rj, jok := rank[names[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		case jok:
			return false
		}
		return names[i] < names[j]
	})
}

// Parse decodes YAML (or JSON) exercise definitions and builds the tree.
func Parse(data []byte) ([]*Exercise, error) {
	var defs Definitions
	if err := yaml.Unmarshal(data, &defs); err != nil {
		if errors.Is(err, ErrInvalidSchema) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return Build(defs), nil
}
