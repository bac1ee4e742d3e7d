package store

import "time"

// Timestamps are stored as Unix nanoseconds so SQL ordering matches the
// container's ordering exactly.

func marshalTime(t time.Time) int64 {
	return t.UnixNano()
}

func unmarshalTime(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}
