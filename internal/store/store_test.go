package store

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical unit vectors", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"scaled copies still align", []float32{1, 2, 3}, []float32{2, 4, 6}, 1},
		{"mismatched lengths", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestCosineSimilarity_ArbitraryAngle(t *testing.T) {
	// Given: vectors at 45 degrees
	got := cosineSimilarity([]float32{1, 0}, []float32{1, 1})
	assert.InDelta(t, math.Sqrt2/2, got, 1e-6)
}

func TestSkippedContent(t *testing.T) {
	assert.Equal(t, "[SKIPPED: empty file]", SkippedContent("empty file"))
	assert.Equal(t, "[SKIPPED: no indexable content]", SkippedContent("  no indexable content  "))
}
