package review

import (
	"strings"
	"testing"
)

func unitOfSize(contextLen int) *UserPrompt {
	return &UserPrompt{FileContext: FileContextInfo{Context: strings.Repeat("x", contextLen)}}
}

func TestSplitCount(t *testing.T) {
	tests := []struct {
		actual int
		max    int
		want   int
	}{
		{70000, 100000, 1},
		{80000, 100000, 1},
		{80001, 100000, 2},
		{90000, 100000, 2},
		{150000, 100000, 2},
		{400000, 100000, 5},
		{0, 100000, 2},
		{100000, 0, 2},
		{-5, 100000, 2},
		{0, 0, 2},
	}
	for _, tt := range tests {
		if got := splitCount(tt.actual, tt.max); got != tt.want {
			t.Errorf("splitCount(%d, %d) = %d, want %d", tt.actual, tt.max, got, tt.want)
		}
	}
}

func TestSplitUserPrompts_Empty(t *testing.T) {
	if chunks := SplitUserPrompts(nil, 150000, 100000); chunks != nil {
		t.Errorf("got %d chunks for no units, want nil", len(chunks))
	}
}

func TestSplitUserPrompts_Partition(t *testing.T) {
	units := []*UserPrompt{
		unitOfSize(100), unitOfSize(200), unitOfSize(300), unitOfSize(400), unitOfSize(500),
	}

	chunks := SplitUserPrompts(units, 150000, 100000)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}

	seen := make(map[*UserPrompt]int)
	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
		for _, u := range chunk {
			seen[u]++
		}
	}
	if total != len(units) {
		t.Errorf("chunks hold %d units, want %d", total, len(units))
	}
	for i, u := range units {
		if seen[u] != 1 {
			t.Errorf("unit %d appears %d times, want 1", i, seen[u])
		}
	}
}

func TestSplitUserPrompts_UnknownTokensHalves(t *testing.T) {
	units := []*UserPrompt{unitOfSize(10)}

	chunks := SplitUserPrompts(units, 0, 0)

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if len(chunks[0])+len(chunks[1]) != 1 {
		t.Errorf("single unit should land in exactly one chunk")
	}
}

func TestDistributeBySize_Balance(t *testing.T) {
	big := unitOfSize(100)
	units := []*UserPrompt{unitOfSize(40), big, unitOfSize(30), unitOfSize(20), unitOfSize(10)}

	chunks := distributeBySize(units, 2)

	if len(chunks[0]) != 1 || chunks[0][0] != big {
		t.Errorf("largest unit should sit alone in the first chunk, got %d units", len(chunks[0]))
	}
	if len(chunks[1]) != 4 {
		t.Errorf("got %d units in second chunk, want 4", len(chunks[1]))
	}
}

func TestDistributeBySize_TieGoesToFirstChunk(t *testing.T) {
	a := unitOfSize(50)
	b := unitOfSize(50)

	chunks := distributeBySize([]*UserPrompt{a, b}, 2)

	if len(chunks[0]) != 1 || chunks[0][0] != a {
		t.Error("first unit should land in the first chunk on a tie")
	}
	if len(chunks[1]) != 1 || chunks[1][0] != b {
		t.Error("second unit should land in the second chunk")
	}
}

func TestEstimateSize(t *testing.T) {
	u := &UserPrompt{
		FileContext:    FileContextInfo{Context: strings.Repeat("x", 100)},
		FormattedHunks: []FormattedHunk{{}, {}},
	}
	if got := estimateSize(u); got != 1100 {
		t.Errorf("estimateSize = %d, want 1100", got)
	}
}

func TestApplyOverlap(t *testing.T) {
	a, b, c, d, e := unitOfSize(1), unitOfSize(2), unitOfSize(3), unitOfSize(4), unitOfSize(5)
	chunks := [][]*UserPrompt{{a, b, c}, {d, e}}

	result := applyOverlap(chunks, 1)

	if len(result) != 2 {
		t.Fatalf("got %d chunks, want 2", len(result))
	}
	if len(result[0]) != 3 {
		t.Errorf("first chunk should be unchanged, got %d units", len(result[0]))
	}
	want := []*UserPrompt{c, d, e}
	if len(result[1]) != len(want) {
		t.Fatalf("second chunk has %d units, want %d", len(result[1]), len(want))
	}
	for i := range want {
		if result[1][i] != want[i] {
			t.Errorf("second chunk unit %d mismatch", i)
		}
	}
}

func TestApplyOverlap_Disabled(t *testing.T) {
	chunks := [][]*UserPrompt{{unitOfSize(1)}, {unitOfSize(2)}}
	result := applyOverlap(chunks, 0)
	if len(result[0]) != 1 || len(result[1]) != 1 {
		t.Error("zero overlap should leave chunks unchanged")
	}
}

func TestApplyOverlap_OverlapExceedsChunk(t *testing.T) {
	a, b := unitOfSize(1), unitOfSize(2)
	result := applyOverlap([][]*UserPrompt{{a}, {b}}, 3)
	if len(result[1]) != 2 || result[1][0] != a || result[1][1] != b {
		t.Errorf("whole previous chunk should carry over, got %d units", len(result[1]))
	}
}
