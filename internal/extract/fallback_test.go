package extract

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dshills/facet/internal/diff"
)

func numberedSource(n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "code %d\n", i)
	}
	return sb.String()
}

func TestFallbackContexts_WindowAroundChange(t *testing.T) {
	content := numberedSource(20)
	blocks, err := NewFallback().Contexts(content, []diff.LineRange{diff.MustLineRange(8, 8)})
	if err != nil {
		t.Fatalf("Contexts() error = %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	want := "---- Context Block 1 (Lines 3-13) ----\n" +
		"code 3\ncode 4\ncode 5\ncode 6\ncode 7\ncode 8\ncode 9\ncode 10\ncode 11\ncode 12\ncode 13"
	if blocks[0] != want {
		t.Errorf("block = %q, want %q", blocks[0], want)
	}
}

func TestFallbackContexts_WindowClampedAtStart(t *testing.T) {
	content := numberedSource(20)
	blocks, err := NewFallback().Contexts(content, []diff.LineRange{diff.MustLineRange(2, 2)})
	if err != nil {
		t.Fatalf("Contexts() error = %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	if !strings.HasPrefix(blocks[0], "---- Context Block 1 (Lines 1-7) ----\ncode 1\n") {
		t.Errorf("block = %q, want window starting at line 1", blocks[0])
	}
}

func TestFallbackContexts_ContentClampedAtEnd(t *testing.T) {
	content := numberedSource(10)
	blocks, err := NewFallback().Contexts(content, []diff.LineRange{diff.MustLineRange(8, 8)})
	if err != nil {
		t.Fatalf("Contexts() error = %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	// The header keeps the expanded range; the content stops at the file end.
	if !strings.HasPrefix(blocks[0], "---- Context Block 1 (Lines 3-13) ----\n") {
		t.Errorf("block header = %q", blocks[0])
	}
	if !strings.HasSuffix(blocks[0], "code 10") {
		t.Errorf("block should end at the last file line, got %q", blocks[0])
	}
}

func TestFallbackContexts_MergesOverlappingWindows(t *testing.T) {
	content := numberedSource(30)
	ranges := []diff.LineRange{diff.MustLineRange(10, 10), diff.MustLineRange(21, 21)}
	blocks, err := NewFallback().Contexts(content, ranges)
	if err != nil {
		t.Fatalf("Contexts() error = %v", err)
	}
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want adjacent windows merged into 1", len(blocks))
	}
	if !strings.HasPrefix(blocks[0], "---- Context Block 1 (Lines 5-26) ----\n") {
		t.Errorf("block header = %q, want merged span 5-26", blocks[0])
	}
}

func TestFallbackContexts_KeepsSeparatedWindows(t *testing.T) {
	content := numberedSource(40)
	ranges := []diff.LineRange{diff.MustLineRange(10, 10), diff.MustLineRange(30, 30)}
	blocks, err := NewFallback().Contexts(content, ranges)
	if err != nil {
		t.Fatalf("Contexts() error = %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}
	if !strings.HasPrefix(blocks[0], "---- Context Block 1 (Lines 5-15) ----") {
		t.Errorf("blocks[0] = %q", blocks[0])
	}
	if !strings.HasPrefix(blocks[1], "---- Context Block 2 (Lines 25-35) ----") {
		t.Errorf("blocks[1] = %q", blocks[1])
	}
}

func TestFallbackContexts_ImportBlockFirst(t *testing.T) {
	content := `package main

import "fmt"

func run() int {
	return 3
}
`
	blocks, err := NewFallback().Contexts(content, []diff.LineRange{diff.MustLineRange(6, 6)})
	if err != nil {
		t.Fatalf("Contexts() error = %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want import block plus context block", len(blocks))
	}
	wantImports := "---- Dependencies/Imports ----\npackage main\nimport \"fmt\""
	if blocks[0] != wantImports {
		t.Errorf("import block = %q, want %q", blocks[0], wantImports)
	}
	if !strings.HasPrefix(blocks[1], "---- Context Block 1 (Lines 1-11) ----") {
		t.Errorf("context block = %q", blocks[1])
	}
}

func TestFallbackContexts_CImportsIncludePreprocessor(t *testing.T) {
	content := `#include <stdio.h>
#define MAX 10

int run(void) {
	return MAX;
}
`
	blocks, err := NewFallback().Contexts(content, []diff.LineRange{diff.MustLineRange(5, 5)})
	if err != nil {
		t.Fatalf("Contexts() error = %v", err)
	}
	wantImports := "---- Dependencies/Imports ----\n#include <stdio.h>\n#define MAX 10"
	if len(blocks) == 0 || blocks[0] != wantImports {
		t.Errorf("blocks = %q, want first block %q", blocks, wantImports)
	}
}

func TestFallbackContexts_MeaninglessOnlyChange(t *testing.T) {
	content := "code 1\n// just a comment\ncode 3\n"
	blocks, err := NewFallback().Contexts(content, []diff.LineRange{diff.MustLineRange(2, 2)})
	if err != nil {
		t.Fatalf("Contexts() error = %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("got %d blocks, want none for a comment-only change", len(blocks))
	}
}

func TestFallbackContexts_EmptyContent(t *testing.T) {
	_, err := NewFallback().Contexts("", []diff.LineRange{diff.MustLineRange(1, 1)})
	if !errors.Is(err, ErrEmptyContent) {
		t.Errorf("Contexts(empty) error = %v, want ErrEmptyContent", err)
	}
}

func TestFallbackContexts_NoRanges(t *testing.T) {
	blocks, err := NewFallback().Contexts("code\n", nil)
	if err != nil {
		t.Fatalf("Contexts() error = %v", err)
	}
	if len(blocks) != 0 {
		t.Errorf("got %d blocks, want none", len(blocks))
	}
}

func TestMergeRanges(t *testing.T) {
	in := []diff.LineRange{
		diff.MustLineRange(20, 25),
		diff.MustLineRange(1, 5),
		diff.MustLineRange(6, 10),
		diff.MustLineRange(8, 12),
	}
	got := mergeRanges(in)
	want := []diff.LineRange{diff.MustLineRange(1, 12), diff.MustLineRange(20, 25)}
	if len(got) != len(want) {
		t.Fatalf("mergeRanges() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("mergeRanges()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
