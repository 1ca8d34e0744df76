package diff

import (
	"encoding/json"
	"fmt"
)

// LineRange is an inclusive range of 1-based line numbers. The zero value is
// not valid; construct one with NewLineRange or MustLineRange.
type LineRange struct {
	start int
	end   int
}

// NewLineRange returns a LineRange covering start through end inclusive. Both
// bounds are 1-based; start must be at least 1 and end must not precede start.
func NewLineRange(start, end int) (LineRange, error) {
	if start < 1 {
		return LineRange{}, fmt.Errorf("line range start must be >= 1, got %d", start)
	}
	if end < start {
		return LineRange{}, fmt.Errorf("line range end %d precedes start %d", end, start)
	}
	return LineRange{start: start, end: end}, nil
}

// MustLineRange is NewLineRange for bounds known to be valid. It panics on
// invalid input.
func MustLineRange(start, end int) LineRange {
	r, err := NewLineRange(start, end)
	if err != nil {
		panic(err)
	}
	return r
}

// Start returns the first line of the range.
func (r LineRange) Start() int { return r.start }

// End returns the last line of the range.
func (r LineRange) End() int { return r.end }

// Count returns the number of lines the range covers.
func (r LineRange) Count() int { return r.end - r.start + 1 }

// Contains reports whether line falls within the range.
func (r LineRange) Contains(line int) bool {
	return r.start <= line && line <= r.end
}

// Overlaps reports whether r and other share at least one line.
func (r LineRange) Overlaps(other LineRange) bool {
	return r.start <= other.end && r.end >= other.start
}

func (r LineRange) String() string {
	return fmt.Sprintf("%d-%d", r.start, r.end)
}

type lineRangeJSON struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// MarshalJSON encodes the range as {"start_line": n, "end_line": m}.
func (r LineRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(lineRangeJSON{StartLine: r.start, EndLine: r.end})
}

// UnmarshalJSON decodes and validates a range; invalid bounds fail decoding.
func (r *LineRange) UnmarshalJSON(data []byte) error {
	var raw lineRangeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := NewLineRange(raw.StartLine, raw.EndLine)
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}
