package eventstore

import (
	"encoding/json"
	"time"
)

// Record is one entry of a build's event log.
type Record struct {
	Seq     int64           `json:"seq"`
	BuildID string          `json:"build_id"`
	Kind    string          `json:"kind"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode unmarshals the payload into v.
func (r Record) Decode(v any) error {
	if len(r.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(r.Payload, v)
}
