package graph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/dagscope/pkg/core/dag"
	derrors "github.com/matzehuels/dagscope/pkg/errors"
)

// DecodePayload parses an update payload.
//
// Only the minimal shape is checked: "elements" must be present, every node
// needs a string id and every edge a string source and target. Anything else
// is returned as a MALFORMED_PAYLOAD error and the whole message is rejected.
// Edges without an id receive a deterministic one (see [FillEdgeIDs]).
func DecodePayload(data []byte) (Payload, error) {
	var raw struct {
		Elements   *rawElements `json:"elements"`
		Directed   bool         `json:"directed"`
		Multigraph bool         `json:"multigraph"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Payload{}, derrors.Wrap(derrors.ErrCodeMalformedPayload, err, "decode payload")
	}
	if raw.Elements == nil {
		return Payload{}, derrors.New(derrors.ErrCodeMalformedPayload, "payload has no elements")
	}

	p := Payload{Directed: raw.Directed, Multigraph: raw.Multigraph}
	p.Elements.Nodes = make([]ElementNode, 0, len(raw.Elements.Nodes))
	for i, msg := range raw.Elements.Nodes {
		n, err := decodeNode(msg)
		if err != nil {
			return Payload{}, derrors.Wrap(derrors.ErrCodeMalformedPayload, err, "node %d", i)
		}
		p.Elements.Nodes = append(p.Elements.Nodes, n)
	}
	p.Elements.Edges = make([]ElementEdge, 0, len(raw.Elements.Edges))
	for i, msg := range raw.Elements.Edges {
		e, err := decodeEdge(msg)
		if err != nil {
			return Payload{}, derrors.Wrap(derrors.ErrCodeMalformedPayload, err, "edge %d", i)
		}
		p.Elements.Edges = append(p.Elements.Edges, e)
	}
	FillEdgeIDs(p.Elements.Edges)
	return p, nil
}

// ReadPayload decodes an update payload from an io.Reader.
func ReadPayload(r io.Reader) (Payload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Payload{}, fmt.Errorf("read payload: %w", err)
	}
	return DecodePayload(data)
}

// ReadPayloadFile decodes an update payload from a JSON file.
func ReadPayloadFile(path string) (Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Payload{}, derrors.Wrap(derrors.ErrCodeFileNotFound, err, "payload file %s", path)
		}
		return Payload{}, fmt.Errorf("read %s: %w", path, err)
	}
	return DecodePayload(data)
}

// MarshalJSON writes the node in Cytoscape form, {"data": {...}}, with the
// pass-through attributes alongside the known fields.
func (n ElementNode) MarshalJSON() ([]byte, error) {
	data := make(map[string]any, len(n.Attrs)+5)
	for k, v := range n.Attrs {
		data[k] = v
	}
	data[keyID] = n.ID
	for k, v := range map[string]string{
		keyLabel:      n.Label,
		keyModule:     n.Module,
		keyType:       n.Type,
		keySourceNode: n.SourceNode,
	} {
		if v != "" {
			data[k] = v
		}
	}
	return json.Marshal(map[string]any{keyData: data})
}

// MarshalJSON writes the edge in Cytoscape form.
func (e ElementEdge) MarshalJSON() ([]byte, error) {
	type plain ElementEdge
	return json.Marshal(map[string]any{keyData: plain(e)})
}

// WritePayloadFile writes p as indented JSON that DecodePayload reads back.
func WritePayloadFile(path string, p Payload) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// FillEdgeIDs assigns an id to every edge that has none. The id is
// "source->target", suffixed with "#n" when that id is already taken, so
// decoding the same payload twice yields the same ids.
func FillEdgeIDs(edges []ElementEdge) {
	used := make(map[string]bool, len(edges))
	for _, e := range edges {
		if e.ID != "" {
			used[e.ID] = true
		}
	}
	for i := range edges {
		if edges[i].ID != "" {
			continue
		}
		base := dag.EdgeID(edges[i].Source, edges[i].Target)
		id := base
		for n := 2; used[id]; n++ {
			id = fmt.Sprintf("%s#%d", base, n)
		}
		used[id] = true
		edges[i].ID = id
	}
}

type rawElements struct {
	Nodes []json.RawMessage `json:"nodes"`
	Edges []json.RawMessage `json:"edges"`
}

// unwrap returns the attribute object of an element, looking through a
// Cytoscape {"data": {...}} wrapper when present.
func unwrap(msg json.RawMessage) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(msg, &obj); err != nil {
		return nil, fmt.Errorf("element is not an object: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("element is null")
	}
	if inner, ok := obj[keyData].(map[string]any); ok {
		if _, flat := obj[keyID]; !flat {
			return inner, nil
		}
	}
	return obj, nil
}

func decodeNode(msg json.RawMessage) (ElementNode, error) {
	attrs, err := unwrap(msg)
	if err != nil {
		return ElementNode{}, err
	}
	id, err := requireString(attrs, keyID)
	if err != nil {
		return ElementNode{}, err
	}
	if err := derrors.ValidateID(id); err != nil {
		return ElementNode{}, err
	}

	n := ElementNode{
		ID:     id,
		Label:  optString(attrs, keyLabel),
		Module: optString(attrs, keyModule),
		Type:   optString(attrs, keyType),
	}
	if n.Label == "" {
		n.Label = optString(attrs, keyName)
	}
	n.SourceNode = optString(attrs, keySourceNode)
	if n.SourceNode == "" {
		n.SourceNode = optString(attrs, KeyHamiltonSourceNode)
	}

	for _, k := range []string{keyID, keyLabel, keyModule, keyType, keySourceNode} {
		delete(attrs, k)
	}
	if len(attrs) > 0 {
		n.Attrs = attrs
	}
	return n, nil
}

func decodeEdge(msg json.RawMessage) (ElementEdge, error) {
	attrs, err := unwrap(msg)
	if err != nil {
		return ElementEdge{}, err
	}
	src, err := requireString(attrs, keySource)
	if err != nil {
		return ElementEdge{}, err
	}
	tgt, err := requireString(attrs, keyTarget)
	if err != nil {
		return ElementEdge{}, err
	}
	e := ElementEdge{Source: src, Target: tgt}
	if v, ok := attrs[keyID]; ok {
		id, isString := v.(string)
		if !isString {
			return ElementEdge{}, fmt.Errorf("field %q must be a string", keyID)
		}
		e.ID = id
	}
	return e, nil
}

func requireString(attrs map[string]any, key string) (string, error) {
	v, ok := attrs[key]
	if !ok {
		return "", fmt.Errorf("missing field %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("field %q must be a non-empty string", key)
	}
	return s, nil
}

func optString(attrs map[string]any, key string) string {
	s, _ := attrs[key].(string)
	return s
}
