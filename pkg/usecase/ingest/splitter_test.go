package ingest_test

import (
	"strings"
	"testing"

	"github.com/m-mizutani/fennec/pkg/usecase/ingest"
	"github.com/m-mizutani/gt"
)

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	chunks := ingest.Split("hello world", 400, 20)
	gt.A(t, chunks).Length(1)
	gt.Equal(t, chunks[0], "hello world")
}

func TestSplitOverlapsAdjacentChunks(t *testing.T) {
	text := "abcdefghij" // 10 runes
	chunks := ingest.Split(text, 4, 2)

	gt.A(t, chunks).Length(4)
	gt.Equal(t, chunks[0], "abcd")
	gt.Equal(t, chunks[1], "cdef")
	gt.Equal(t, chunks[2], "efgh")
	gt.Equal(t, chunks[3], "ghij")
}

func TestSplitCoversFullText(t *testing.T) {
	text := strings.Repeat("a", 1000)
	chunks := ingest.Split(text, 400, 20)

	var total int
	for _, chunk := range chunks {
		gt.True(t, len(chunk) <= 400)
		total += len(chunk)
	}
	// Every rune appears in at least one chunk
	gt.True(t, total >= len(text))
}

func TestSplitHandlesMultibyteRunes(t *testing.T) {
	text := strings.Repeat("あ", 10)
	chunks := ingest.Split(text, 4, 2)

	gt.A(t, chunks).Length(4)
	gt.Equal(t, chunks[0], "ああああ")
}

func TestSplitEmptyText(t *testing.T) {
	gt.A(t, ingest.Split("", 400, 20)).Length(0)
	gt.A(t, ingest.Split("   \n  ", 400, 20)).Length(0)
}
