package model

import "time"

// Pattern is a fixed flash sequence for one event kind: the color is held for
// On, then the light is dark for Off, repeated Repeat times.
type Pattern struct {
	Red    uint8
	Green  uint8
	Blue   uint8
	Repeat int
	On     time.Duration
	Off    time.Duration
}

// patterns maps every event kind to its flash pattern: blue for discussion,
// green for approval, red for requested changes, yellow for comment reviews,
// orange for review-thread comments.
var patterns = map[EventKind]Pattern{
	KindComment:          {Blue: 0xFF, Repeat: 3, On: 300 * time.Millisecond, Off: 300 * time.Millisecond},
	KindApproved:         {Green: 0xFF, Repeat: 5, On: 500 * time.Millisecond, Off: 200 * time.Millisecond},
	KindChangesRequested: {Red: 0xFF, Repeat: 2, On: time.Second, Off: 500 * time.Millisecond},
	KindReviewCommented:  {Red: 0xFF, Green: 0xFF, Repeat: 3, On: 300 * time.Millisecond, Off: 300 * time.Millisecond},
	KindReviewComment:    {Red: 0xFF, Green: 0xA5, Repeat: 3, On: 300 * time.Millisecond, Off: 300 * time.Millisecond},
}

// PatternFor returns the flash pattern for the given kind. The second return
// is false for kinds with no table entry.
func PatternFor(kind EventKind) (Pattern, bool) {
	p, ok := patterns[kind]
	return p, ok
}

// Duration returns the total blocking play time of the pattern.
func (p Pattern) Duration() time.Duration {
	return time.Duration(p.Repeat) * (p.On + p.Off)
}
