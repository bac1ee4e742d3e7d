package store

import "time"

// Run is a journaled run.
type Run struct {
	RunID      string
	Pipeline   string
	Author     string
	RecordedAt time.Time
	// Results is the number of descriptors written for the run.
	Results int
}

// Producer identifies the component that produced a descriptor.
type Producer struct {
	UID      string
	Pipeline string
	RunID    string
	Author   string
	ID       string
	Family   string
}

// Descriptor is a journaled result.
type Descriptor struct {
	RunID     string
	UID       string
	EntityUID string
	Name      string
	Producer  Producer
	CreatedAt time.Time
	// Payload is the canonical JSON encoding of the result.
	Payload     string
	ContentHash string
}
