package prune_test

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/objones25/winnow/internal/prune"
)

func TestInfluenceSets(t *testing.T) {
	// 4 input features, 3 output features. Column 2 is an all-ties column.
	weights := [][]float32{
		{0.9, 0.1, -0.5},
		{-0.8, 0.2, 0.5},
		{0.1, -0.9, 0.5},
		{0.05, 0.3, -0.5},
	}

	tests := []struct {
		name string
		topK int
		want [][]int
	}{
		{
			name: "top 2 by magnitude",
			topK: 2,
			want: [][]int{
				{0, 1}, // 0.9, -0.8 dominate column 0
				{2, 3}, // -0.9, 0.3 dominate column 1
				{0, 1}, // all equal magnitude, lower index wins
			},
		},
		{
			name: "top 1",
			topK: 1,
			want: [][]int{{0}, {2}, {0}},
		},
		{
			name: "full input dimension",
			topK: 4,
			want: [][]int{
				{0, 1, 2, 3},
				{0, 1, 2, 3},
				{0, 1, 2, 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := prune.InfluenceSets(weights, tt.topK)
			if err != nil {
				t.Fatalf("InfluenceSets() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("InfluenceSets() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInfluenceSetsSignIgnored(t *testing.T) {
	// Magnitude decides, not sign.
	weights := [][]float32{
		{-1.0},
		{0.5},
		{0.9},
	}

	got, err := prune.InfluenceSets(weights, 2)
	if err != nil {
		t.Fatalf("InfluenceSets() error = %v", err)
	}
	want := [][]int{{0, 2}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("InfluenceSets() = %v, want %v", got, want)
	}
}

func TestInfluenceSetsErrors(t *testing.T) {
	weights := [][]float32{
		{1, 2},
		{3, 4},
	}

	tests := []struct {
		name    string
		weights [][]float32
		topK    int
		check   func(error) bool
	}{
		{"top_k zero", weights, 0, prune.IsInvalidParameter},
		{"top_k negative", weights, -1, prune.IsInvalidParameter},
		{"top_k above input dim", weights, 3, prune.IsInvalidParameter},
		{"empty matrix", nil, 1, prune.IsEmptyMatrix},
		{"empty rows", [][]float32{{}}, 1, prune.IsEmptyMatrix},
		{"ragged rows", [][]float32{{1, 2}, {3}}, 1, prune.IsInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := prune.InfluenceSets(tt.weights, tt.topK)
			if err == nil {
				t.Fatal("InfluenceSets() expected error, got nil")
			}
			if !tt.check(err) {
				t.Errorf("InfluenceSets() error = %v, wrong kind", err)
			}
		})
	}
}

func TestInfluenceSetsDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	weights := make([][]float32, 64)
	for i := range weights {
		weights[i] = make([]float32, 32)
		for j := range weights[i] {
			weights[i][j] = float32(rng.NormFloat64())
		}
	}

	first, err := prune.InfluenceSets(weights, 8)
	if err != nil {
		t.Fatalf("InfluenceSets() error = %v", err)
	}
	second, err := prune.InfluenceSets(weights, 8)
	if err != nil {
		t.Fatalf("InfluenceSets() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("InfluenceSets() not deterministic across runs")
	}
}
