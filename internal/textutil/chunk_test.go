package textutil

import (
	"strings"
	"testing"
)

func TestApproxTokens(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		if got := ApproxTokens(tc.in); got != tc.want {
			t.Fatalf("ApproxTokens(%d chars) = %d, want %d", len(tc.in), got, tc.want)
		}
	}
}

func TestChunkFitsInOne(t *testing.T) {
	content := "short content"
	got, total, err := Chunk(content, 100, 0)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if total != 1 || got != content {
		t.Fatalf("got total=%d content=%q, want 1 chunk of original", total, got)
	}
}

func TestChunkUnlimited(t *testing.T) {
	content := strings.Repeat("y", 10000)
	got, total, err := Chunk(content, 0, 0)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if total != 1 || got != content {
		t.Fatalf("maxTokens=0 should return everything in one chunk")
	}
}

func TestChunkOverlap(t *testing.T) {
	// 100 tokens -> 400 chars budget, 40 chars overlap, stride 360.
	content := strings.Repeat("a", 360) + strings.Repeat("b", 400)
	first, total, err := Chunk(content, 100, 0)
	if err != nil {
		t.Fatalf("chunk 0: %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2", total)
	}
	second, _, err := Chunk(content, 100, 1)
	if err != nil {
		t.Fatalf("chunk 1: %v", err)
	}

	if len(first) != 400 {
		t.Fatalf("first chunk len = %d, want 400", len(first))
	}
	// The tail of chunk 0 must reappear at the head of chunk 1.
	tail := first[len(first)-40:]
	if !strings.HasPrefix(second, tail) {
		t.Fatalf("chunk 1 does not start with chunk 0's overlap tail")
	}
}

func TestChunkCoversAllContent(t *testing.T) {
	content := strings.Repeat("0123456789", 500) // 5000 chars
	_, total, err := Chunk(content, 100, 0)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	var rebuilt strings.Builder
	for i := 0; i < total; i++ {
		part, _, err := Chunk(content, 100, i)
		if err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		if i == 0 {
			rebuilt.WriteString(part)
			continue
		}
		// Drop the overlap when reassembling.
		rebuilt.WriteString(part[40:])
	}
	if rebuilt.String() != content {
		t.Fatalf("reassembled chunks do not equal the original content")
	}
}

func TestChunkIndexOutOfRange(t *testing.T) {
	if _, _, err := Chunk("abc", 100, 1); err == nil {
		t.Fatalf("expected error for index past the final chunk")
	}
	if _, _, err := Chunk("abc", 100, -1); err == nil {
		t.Fatalf("expected error for negative index")
	}
	content := strings.Repeat("z", 1000)
	_, total, err := Chunk(content, 100, 0)
	if err != nil {
		t.Fatalf("Chunk: %v", err)
	}
	if _, _, err := Chunk(content, 100, total); err == nil {
		t.Fatalf("expected error for index == total")
	}
}

func TestChunkDeterministic(t *testing.T) {
	content := strings.Repeat("lorem ipsum ", 400)
	a, totalA, _ := Chunk(content, 50, 2)
	b, totalB, _ := Chunk(content, 50, 2)
	if a != b || totalA != totalB {
		t.Fatalf("identical inputs produced different chunks")
	}
}
