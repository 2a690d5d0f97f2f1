package proto

import (
	"encoding/json"
	"fmt"
	"strings"

	"npc-director/server/internal/replica"
	"npc-director/server/internal/sim"
)

const (
	// Version tracks the wire-protocol revision expected by clients.
	Version = 1

	// Type identifiers for websocket payloads.
	typeCommandAck    = "commandAck"
	typeCommandReject = "commandReject"
	typeHeartbeat     = "heartbeat"
	typeFrame         = "frame"
)

// Client message type identifiers.
const (
	TypeDamage     = "damage"
	TypeScare      = "scare"
	TypePath       = "path"
	TypeCancelPath = "cancelPath"
	TypeHeartbeat  = "heartbeat"
)

// Exported aliases for outbound message type identifiers.
const (
	TypeFrame         = typeFrame
	TypeCommandAck    = typeCommandAck
	TypeCommandReject = typeCommandReject
)

// ClientMessage captures an inbound websocket or HTTP command. Actor names
// the command's subject: the damaged or scared actor, or the player to move.
type ClientMessage struct {
	Ver        int      `json:"ver,omitempty"`
	Type       string   `json:"type"`
	Actor      string   `json:"actor,omitempty"`
	Attacker   string   `json:"attacker,omitempty"`
	Amount     float64  `json:"amount,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	X          float64  `json:"x,omitempty"`
	Y          float64  `json:"y,omitempty"`
	SentAt     int64    `json:"sentAt,omitempty"`
	CommandSeq *uint64  `json:"seq,omitempty"`
}

// DecodeClientMessage converts raw websocket payloads into a structured message.
func DecodeClientMessage(payload []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return msg, err
	}
	if msg.Ver == 0 {
		msg.Ver = Version
	}
	if msg.Ver != Version {
		return msg, fmt.Errorf("unsupported client protocol version %d", msg.Ver)
	}
	return msg, nil
}

// ClientCommand captures the structured simulation command carried by a
// message. Origin metadata is populated when the command is staged.
func ClientCommand(msg ClientMessage) (sim.Command, bool) {
	switch msg.Type {
	case TypeDamage:
		return sim.Command{
			Type: sim.CommandDamage,
			Damage: &sim.DamageCommand{
				Attacker: strings.TrimSpace(msg.Attacker),
				Amount:   msg.Amount,
				Tags:     append([]string(nil), msg.Tags...),
			},
		}, true
	case TypeScare:
		return sim.Command{
			Type:  sim.CommandScare,
			Scare: &sim.ScareCommand{Amount: msg.Amount},
		}, true
	case TypePath:
		return sim.Command{
			Type: sim.CommandSetPath,
			Path: &sim.PathCommand{
				TargetX: msg.X,
				TargetY: msg.Y,
			},
		}, true
	case TypeCancelPath:
		return sim.Command{Type: sim.CommandClearPath}, true
	default:
		return sim.Command{}, false
	}
}

// CommandAck describes an acknowledgement of a staged command.
type CommandAck struct {
	Seq  uint64
	Tick uint64
}

// EncodeCommandAck renders a command acknowledgement response.
func EncodeCommandAck(msg CommandAck) ([]byte, error) {
	frame := struct {
		Ver  int    `json:"ver"`
		Type string `json:"type"`
		Seq  uint64 `json:"seq"`
		Tick uint64 `json:"tick,omitempty"`
	}{
		Ver:  Version,
		Type: typeCommandAck,
		Seq:  msg.Seq,
	}
	if msg.Tick > 0 {
		frame.Tick = msg.Tick
	}
	return json.Marshal(frame)
}

// CommandReject notifies the client that a command was refused.
type CommandReject struct {
	Seq    uint64
	Reason string
	Retry  bool
	Tick   uint64
}

// EncodeCommandReject renders a command rejection response.
func EncodeCommandReject(msg CommandReject) ([]byte, error) {
	frame := struct {
		Ver    int    `json:"ver"`
		Type   string `json:"type"`
		Seq    uint64 `json:"seq"`
		Reason string `json:"reason"`
		Retry  bool   `json:"retry,omitempty"`
		Tick   uint64 `json:"tick,omitempty"`
	}{
		Ver:    Version,
		Type:   typeCommandReject,
		Seq:    msg.Seq,
		Reason: msg.Reason,
	}
	if msg.Retry {
		frame.Retry = true
	}
	if msg.Tick > 0 {
		frame.Tick = msg.Tick
	}
	return json.Marshal(frame)
}

// Heartbeat echoes timing metadata back to the client.
type Heartbeat struct {
	ServerTime int64
	ClientTime int64
	RTTMillis  int64
}

// EncodeHeartbeat renders a heartbeat acknowledgement payload.
func EncodeHeartbeat(msg Heartbeat) ([]byte, error) {
	frame := struct {
		Ver        int    `json:"ver"`
		Type       string `json:"type"`
		ServerTime int64  `json:"serverTime"`
		ClientTime int64  `json:"clientTime"`
		RTTMillis  int64  `json:"rtt"`
	}{
		Ver:        Version,
		Type:       typeHeartbeat,
		ServerTime: msg.ServerTime,
		ClientTime: msg.ClientTime,
		RTTMillis:  msg.RTTMillis,
	}
	return json.Marshal(frame)
}

// FrameV1 is the version 1 replica frame payload: the frame fields plus the
// envelope.
type FrameV1 struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
	replica.Frame
}

// EncodeFrame renders a replica frame broadcast.
func EncodeFrame(frame replica.Frame) ([]byte, error) {
	return json.Marshal(FrameV1{Ver: Version, Type: typeFrame, Frame: frame})
}

// Envelope is the common header of every server payload.
type Envelope struct {
	Ver  int    `json:"ver"`
	Type string `json:"type"`
}

// DecodeEnvelope reads the header of a server payload.
func DecodeEnvelope(payload []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return env, err
	}
	if env.Ver != Version {
		return env, fmt.Errorf("unsupported server protocol version %d", env.Ver)
	}
	return env, nil
}

// DecodeFrame parses a frame payload produced by EncodeFrame.
func DecodeFrame(payload []byte) (replica.Frame, error) {
	var msg FrameV1
	if err := json.Unmarshal(payload, &msg); err != nil {
		return replica.Frame{}, err
	}
	if msg.Type != typeFrame {
		return replica.Frame{}, fmt.Errorf("unexpected payload type %q", msg.Type)
	}
	if msg.Ver != Version {
		return replica.Frame{}, fmt.Errorf("unsupported server protocol version %d", msg.Ver)
	}
	return msg.Frame, nil
}
