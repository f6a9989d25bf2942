package graph

import (
	"encoding/json"
	"fmt"
	"os"
)

// =============================================================================
// Layout - Positioned Scene Format
// =============================================================================

// Layout is the serialized result of a layout run: where the layout engine
// placed every visible node for one orientation.
type Layout struct {
	Orientation string      `json:"orientation"`
	Engine      string      `json:"engine,omitempty"` // Graphviz layout engine, e.g. "dot"
	Width       float64     `json:"width"`
	Height      float64     `json:"height"`
	Nodes       []Placement `json:"nodes"`
}

// Placement is the center point of one laid-out node.
type Placement struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Find returns the placement of the given node.
func (l *Layout) Find(id string) (Placement, bool) {
	for _, p := range l.Nodes {
		if p.ID == id {
			return p, true
		}
	}
	return Placement{}, false
}

// =============================================================================
// Layout Serialization API
// =============================================================================

// MarshalLayout serializes a Layout to pretty-printed JSON bytes.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout deserializes JSON bytes into a Layout.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	if l.Orientation == "" {
		return Layout{}, fmt.Errorf("layout must name an orientation")
	}
	return l, nil
}

// WriteLayoutFile writes a Layout to a JSON file.
func WriteLayoutFile(l Layout, path string) error {
	data, err := MarshalLayout(l)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
