package protocol

import (
	"encoding/json"

	"blockmaze.ai/internal/sim/synth"
)

// SOLVE (client -> server)
type SolveMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	RequestID       string          `json:"request_id,omitempty"`
	Level           json.RawMessage `json:"level"`

	// Optional overrides; zero keeps the server defaults.
	MaxExpansions int  `json:"max_expansions,omitempty"`
	TimeoutMs     int  `json:"timeout_ms,omitempty"`
	WithXML       bool `json:"with_xml,omitempty"`
}

// SOLUTION (server -> client)
type SolutionMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	RequestID       string         `json:"request_id"`
	LevelID         string         `json:"level_id,omitempty"`
	Digest          string         `json:"digest"`
	Found           bool           `json:"found"`
	BlockCount      int            `json:"block_count"`
	RawActions      []string       `json:"raw_actions"`
	Structured      []string       `json:"structured"`
	Program         *synth.Program `json:"program,omitempty"`
	XML             string         `json:"xml,omitempty"`
	Expanded        int            `json:"expanded"`
	Cached          bool           `json:"cached,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RequestID       string `json:"request_id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}

func NewError(requestID, code, message string) ErrorMsg {
	return ErrorMsg{
		Type:            TypeError,
		ProtocolVersion: Version,
		RequestID:       requestID,
		Code:            code,
		Message:         message,
	}
}
