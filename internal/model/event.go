package model

import "encoding/json"

// Event is the envelope every pool operation emits. Seq orders events
// within a run; Timestamp is the engine clock at emission.
type Event struct {
	Seq       uint64      `json:"seq"`
	Pool      string      `json:"pool"`
	Name      string      `json:"name"`
	Timestamp uint32      `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// EventRecord is the stored JSON form of an Event, with the payload kept
// raw so consumers decode only the event kinds they care about.
type EventRecord struct {
	Seq       uint64          `json:"seq"`
	Pool      string          `json:"pool"`
	Name      string          `json:"name"`
	Timestamp uint32          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}
