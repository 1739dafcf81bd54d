package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermFrequencies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want map[string]int
	}{
		{
			name: "Words",
			text: "Energy and energy",
			want: map[string]int{"energy": 2, "and": 1},
		},
		{
			name: "CamelCase",
			text: "SpaceTime",
			want: map[string]int{"spacetime": 1, "space": 1, "time": 1},
		},
		{
			name: "Digits",
			text: "HTTP2",
			want: map[string]int{"http2": 1, "http": 1, "2": 1},
		},
		{
			name: "Separators",
			text: "cause-effect, loop_back",
			want: map[string]int{"cause": 1, "effect": 1, "loop": 1, "back": 1},
		},
		{
			name: "Empty",
			text: "",
			want: map[string]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, termFrequencies(tt.text))
		})
	}
}

func TestRankResults(t *testing.T) {
	t.Parallel()

	in := []SearchResult{
		{ID: "b", Score: 1},
		{ID: "c", Score: 3},
		{ID: "a", Score: 1},
	}
	got := rankResults(in, 2)

	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "a", got[1].ID)
}

func TestFTSIndex_IndexSize(t *testing.T) {
	t.Parallel()

	backend := setupTestBadgerBackend(t)
	require.NoError(t, backend.BulkLoad(context.Background(), sampleSnapshot()))

	size, err := backend.fts.IndexSize()
	require.NoError(t, err)
	// gravity bends space | spacetime space time | mass | curves | acts on space
	assert.Equal(t, 3+3+1+1+3, size)
}

func TestFTSIndex_NilDB(t *testing.T) {
	t.Parallel()

	idx := NewFTSIndex(nil)
	results, err := idx.Search("anything", 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	size, err := idx.IndexSize()
	require.NoError(t, err)
	assert.Zero(t, size)
}
