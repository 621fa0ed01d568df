// Package tracking infers how far a bus has progressed along its fixed stop
// sequence and answers positional questions about that progress.
//
// A bus route is an ordered list of stop IDs; index order is travel order.
// The cursor is the last stop confirmed passed. It only ever moves forward.
package tracking

// JourneyState is the coarse lifecycle of a single journey along a route.
type JourneyState int

const (
	// NotStarted means no stop has been passed yet.
	NotStarted JourneyState = iota
	// InProgress means the cursor sits before the final stop.
	InProgress
	// Completed means the cursor sits on the final stop.
	Completed
)

func (s JourneyState) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Cursor pairs a route's ordered stop IDs with the last stop passed.
// The zero value is an empty route that has not started.
type Cursor struct {
	stops      []string
	lastPassed string // empty when the journey has not started
}

// NewCursor builds a Cursor. lastPassed may be nil or empty when the bus has
// not passed any stop yet.
func NewCursor(stops []string, lastPassed *string) Cursor {
	c := Cursor{stops: stops}
	if lastPassed != nil {
		c.lastPassed = *lastPassed
	}
	return c
}

// Stops returns the route's ordered stop IDs.
func (c Cursor) Stops() []string { return c.stops }

// LastPassed returns the last stop passed, or "" if the journey has not
// started.
func (c Cursor) LastPassed() string { return c.lastPassed }

// Started reports whether any stop has been passed.
func (c Cursor) Started() bool { return c.lastPassed != "" }

// IndexOf returns the position of stopID in the route, or -1.
// Duplicate IDs resolve to their first occurrence.
func (c Cursor) IndexOf(stopID string) int {
	for i, id := range c.stops {
		if id == stopID {
			return i
		}
	}
	return -1
}

// Position returns the index of the last stop passed. It is -1 when the
// journey has not started or the recorded stop is not on the route.
func (c Cursor) Position() int {
	if !c.Started() {
		return -1
	}
	return c.IndexOf(c.lastPassed)
}

// State classifies the cursor position.
func (c Cursor) State() JourneyState {
	pos := c.Position()
	switch {
	case pos < 0:
		return NotStarted
	case pos == len(c.stops)-1:
		return Completed
	default:
		return InProgress
	}
}

// ValidRouteOrder reports whether both stops are on the route and startID
// comes strictly before endID.
func (c Cursor) ValidRouteOrder(startID, endID string) bool {
	start := c.IndexOf(startID)
	end := c.IndexOf(endID)
	if start < 0 || end < 0 {
		return false
	}
	return start < end
}

// IsUpcoming reports whether the bus has yet to reach stopID. Every stop is
// upcoming before the journey starts. Stops absent from the route are never
// upcoming, and neither is anything when the recorded cursor is off-route.
func (c Cursor) IsUpcoming(stopID string) bool {
	if !c.Started() {
		return true
	}
	idx := c.IndexOf(stopID)
	pos := c.IndexOf(c.lastPassed)
	if idx < 0 || pos < 0 {
		return false
	}
	return idx > pos
}

// RemainingAfter returns up to limit stop IDs strictly after the cursor.
// It is empty when the journey has not started or the cursor is on the
// final stop.
func (c Cursor) RemainingAfter(limit int) []string {
	pos := c.Position()
	if pos < 0 || limit <= 0 || pos+1 >= len(c.stops) {
		return nil
	}
	rest := c.stops[pos+1:]
	if len(rest) > limit {
		rest = rest[:limit]
	}
	out := make([]string, len(rest))
	copy(out, rest)
	return out
}

// Advance moves the cursor to index idx if that is further along than the
// current position. It returns the resulting cursor and whether it moved.
// Out-of-range indexes and backward moves leave the cursor unchanged.
func (c Cursor) Advance(idx int) (Cursor, bool) {
	if idx < 0 || idx >= len(c.stops) || idx <= c.Position() {
		return c, false
	}
	c.lastPassed = c.stops[idx]
	return c, true
}
