package usecase

import (
	"math"
	"sort"
)

const similarityEpsilon = 1e-12

// cosineSimilarity normalizes both vectors before the dot product. Vectors of
// different length are compared over their common prefix.
func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
	}
	for _, x := range a {
		normA += float64(x) * float64(x)
	}
	for _, y := range b {
		normB += float64(y) * float64(y)
	}
	return dot / ((math.Sqrt(normA) + similarityEpsilon) * (math.Sqrt(normB) + similarityEpsilon))
}

type scoredIndex struct {
	index int
	score float64
}

// topKBySimilarity returns candidate positions ordered by descending
// similarity to query. Ties keep candidate order.
func topKBySimilarity(query []float32, candidates [][]float32, k int) []scoredIndex {
	scored := make([]scoredIndex, 0, len(candidates))
	for i, vec := range candidates {
		scored = append(scored, scoredIndex{index: i, score: cosineSimilarity(query, vec)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored
}
