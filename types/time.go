package types

import "time"

// Timestamp is a wire-safe representation of a point in time.
// Uses seconds since Unix epoch plus a nanosecond offset.
//
// Approval windows are evaluated on whole seconds only, the way the
// ledger clock reports them.
type Timestamp struct {
	Seconds int64 `cramberry:"1"`
	Nanos   int32 `cramberry:"2"`
}

// TimeToTimestamp converts a time.Time to a Timestamp.
func TimeToTimestamp(t time.Time) Timestamp {
	return Timestamp{
		Seconds: t.Unix(),
		Nanos:   int32(t.Nanosecond()),
	}
}

// UnixTimestamp returns the Timestamp of a whole Unix second.
func UnixTimestamp(sec int64) Timestamp {
	return Timestamp{Seconds: sec}
}

// ToTime converts a Timestamp to a time.Time (UTC).
func (ts Timestamp) ToTime() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC()
}

// Unix returns the whole seconds since the epoch.
func (ts Timestamp) Unix() int64 { return ts.Seconds }
