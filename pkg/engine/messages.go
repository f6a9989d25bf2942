package engine

import (
	"bytes"
	"encoding/json"
	"fmt"

	derrors "github.com/matzehuels/dagscope/pkg/errors"
	"github.com/matzehuels/dagscope/pkg/graph"
)

// Command names an inbound message on the wire.
type Command string

const (
	CmdUpdate      Command = "update"
	CmdRotate      Command = "rotate"
	CmdExpandAll   Command = "expandAll"
	CmdCollapseAll Command = "collapseAll"
	CmdExpand      Command = "expand"
	CmdCollapse    Command = "collapse"
	CmdSave        Command = "save"
	CmdSelect      Command = "select"
	CmdUnselect    Command = "unselect"
)

// Message is one inbound message. The set of implementations is closed;
// the engine switches on the concrete type.
type Message interface {
	Command() Command
	message()
}

// Update replaces the snapshot with the rewrite of Payload.
type Update struct{ Payload graph.Payload }

// Rotate flips the layout orientation.
type Rotate struct{}

// ExpandAll expands every foldable node.
type ExpandAll struct{}

// CollapseAll returns every foldable node to its default fold.
type CollapseAll struct{}

// Expand expands one node.
type Expand struct{ NodeID string }

// Collapse collapses one node.
type Collapse struct{ NodeID string }

// Save exports the visible scene in Format.
type Save struct{ Format string }

// Select selects one node and highlights every path through it.
type Select struct{ NodeID string }

// Unselect clears the selection and all highlights.
type Unselect struct{}

func (Update) Command() Command      { return CmdUpdate }
func (Rotate) Command() Command      { return CmdRotate }
func (ExpandAll) Command() Command   { return CmdExpandAll }
func (CollapseAll) Command() Command { return CmdCollapseAll }
func (Expand) Command() Command      { return CmdExpand }
func (Collapse) Command() Command    { return CmdCollapse }
func (Save) Command() Command        { return CmdSave }
func (Select) Command() Command      { return CmdSelect }
func (Unselect) Command() Command    { return CmdUnselect }

func (Update) message()      {}
func (Rotate) message()      {}
func (ExpandAll) message()   {}
func (CollapseAll) message() {}
func (Expand) message()      {}
func (Collapse) message()    {}
func (Save) message()        {}
func (Select) message()      {}
func (Unselect) message()    {}

// Envelope is the wire form of a message.
type Envelope struct {
	Command Command         `json:"command"`
	Details json.RawMessage `json:"details,omitempty"`
}

type nodeDetails struct {
	NodeID string `json:"nodeId"`
}

type saveDetails struct {
	Format string `json:"format"`
}

// DecodeMessage parses an envelope and validates its details.
//
// Update details are the compiler payload, optionally wrapped as
// {"graph": {...}} the way the compiler server replies. Select, expand and
// collapse need {"nodeId": "..."}; save needs {"format": "..."}. Any shape
// violation or unknown command is a MALFORMED_PAYLOAD error.
func DecodeMessage(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, derrors.Wrap(derrors.ErrCodeMalformedPayload, err, "decode envelope")
	}
	return env.Message()
}

// Message converts the envelope into its typed message.
func (env Envelope) Message() (Message, error) {
	switch env.Command {
	case CmdUpdate:
		details := unwrapGraph(env.Details)
		if len(details) == 0 {
			return nil, derrors.New(derrors.ErrCodeMalformedPayload, "update without payload")
		}
		p, err := graph.DecodePayload(details)
		if err != nil {
			return nil, err
		}
		return Update{Payload: p}, nil
	case CmdRotate:
		return Rotate{}, nil
	case CmdExpandAll:
		return ExpandAll{}, nil
	case CmdCollapseAll:
		return CollapseAll{}, nil
	case CmdUnselect:
		return Unselect{}, nil
	case CmdExpand, CmdCollapse, CmdSelect:
		var d nodeDetails
		if err := decodeDetails(env.Details, &d); err != nil {
			return nil, derrors.Wrap(derrors.ErrCodeMalformedPayload, err, "%s", env.Command)
		}
		if d.NodeID == "" {
			return nil, derrors.New(derrors.ErrCodeMalformedPayload, "%s needs a nodeId", env.Command)
		}
		switch env.Command {
		case CmdExpand:
			return Expand{NodeID: d.NodeID}, nil
		case CmdCollapse:
			return Collapse{NodeID: d.NodeID}, nil
		default:
			return Select{NodeID: d.NodeID}, nil
		}
	case CmdSave:
		var d saveDetails
		if err := decodeDetails(env.Details, &d); err != nil {
			return nil, derrors.Wrap(derrors.ErrCodeMalformedPayload, err, "save")
		}
		if d.Format == "" {
			return nil, derrors.New(derrors.ErrCodeMalformedPayload, "save needs a format")
		}
		return Save{Format: d.Format}, nil
	case "":
		return nil, derrors.New(derrors.ErrCodeMalformedPayload, "message has no command")
	default:
		return nil, derrors.New(derrors.ErrCodeMalformedPayload, "unknown command %q", env.Command)
	}
}

// EncodeMessage builds the wire form of a message.
func EncodeMessage(m Message) ([]byte, error) {
	env := Envelope{Command: m.Command()}
	var details any
	switch m := m.(type) {
	case Update:
		details = m.Payload
	case Expand:
		details = nodeDetails{NodeID: m.NodeID}
	case Collapse:
		details = nodeDetails{NodeID: m.NodeID}
	case Select:
		details = nodeDetails{NodeID: m.NodeID}
	case Save:
		details = saveDetails{Format: m.Format}
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", m.Command(), err)
		}
		env.Details = raw
	}
	return json.Marshal(env)
}

func decodeDetails(raw json.RawMessage, v any) error {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fmt.Errorf("missing details")
	}
	return json.Unmarshal(raw, v)
}

// unwrapGraph returns the payload inside {"graph": ...} when the details
// carry no elements of their own.
func unwrapGraph(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var shape struct {
		Elements json.RawMessage `json:"elements"`
		Graph    json.RawMessage `json:"graph"`
	}
	if err := json.Unmarshal(raw, &shape); err != nil {
		return raw
	}
	if shape.Elements == nil && shape.Graph != nil {
		return shape.Graph
	}
	return raw
}
