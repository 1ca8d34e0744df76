package diff

import (
	"encoding/json"
	"testing"
)

func TestNewLineRange(t *testing.T) {
	r, err := NewLineRange(3, 7)
	if err != nil {
		t.Fatalf("NewLineRange(3, 7) error: %v", err)
	}
	if r.Start() != 3 || r.End() != 7 {
		t.Errorf("got %d-%d, want 3-7", r.Start(), r.End())
	}
	if r.Count() != 5 {
		t.Errorf("Count() = %d, want 5", r.Count())
	}
}

func TestNewLineRange_SingleLine(t *testing.T) {
	r, err := NewLineRange(1, 1)
	if err != nil {
		t.Fatalf("NewLineRange(1, 1) error: %v", err)
	}
	if r.Count() != 1 {
		t.Errorf("Count() = %d, want 1", r.Count())
	}
}

func TestNewLineRange_Invalid(t *testing.T) {
	if _, err := NewLineRange(0, 5); err == nil {
		t.Error("expected error for start 0")
	}
	if _, err := NewLineRange(-2, 5); err == nil {
		t.Error("expected error for negative start")
	}
	if _, err := NewLineRange(5, 4); err == nil {
		t.Error("expected error for end before start")
	}
}

func TestLineRange_Contains(t *testing.T) {
	r := MustLineRange(10, 20)
	for _, line := range []int{10, 15, 20} {
		if !r.Contains(line) {
			t.Errorf("Contains(%d) = false, want true", line)
		}
	}
	for _, line := range []int{9, 21, 1} {
		if r.Contains(line) {
			t.Errorf("Contains(%d) = true, want false", line)
		}
	}
}

func TestLineRange_Overlaps(t *testing.T) {
	r := MustLineRange(10, 20)

	if !r.Overlaps(MustLineRange(15, 25)) {
		t.Error("partially overlapping ranges should overlap")
	}
	if !r.Overlaps(MustLineRange(20, 30)) {
		t.Error("ranges sharing one endpoint should overlap")
	}
	if !r.Overlaps(MustLineRange(1, 100)) {
		t.Error("containing range should overlap")
	}
	if !r.Overlaps(MustLineRange(12, 18)) {
		t.Error("contained range should overlap")
	}
	if r.Overlaps(MustLineRange(21, 30)) {
		t.Error("adjacent ranges should not overlap")
	}
	if r.Overlaps(MustLineRange(1, 9)) {
		t.Error("disjoint ranges should not overlap")
	}
}

func TestLineRange_JSON(t *testing.T) {
	data, err := json.Marshal(MustLineRange(4, 9))
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	want := `{"start_line":4,"end_line":9}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}

	var r LineRange
	if err := json.Unmarshal(data, &r); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if r != MustLineRange(4, 9) {
		t.Errorf("round trip = %v, want 4-9", r)
	}

	if err := json.Unmarshal([]byte(`{"start_line":0,"end_line":3}`), &r); err == nil {
		t.Error("expected error decoding invalid bounds")
	}
}
