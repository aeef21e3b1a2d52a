package pdfrag

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Metric selects how distances between vectors are computed
type Metric string

const (
	// MetricL2 ranks by Euclidean distance
	MetricL2 Metric = "l2"
	// MetricCosine ranks by 1 - cosine similarity
	MetricCosine Metric = "cosine"
)

// ParseMetric converts a config value into a Metric. The empty string yields MetricL2.
func ParseMetric(s string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(s))) {
	case "", MetricL2:
		return MetricL2, nil
	case MetricCosine:
		return MetricCosine, nil
	}
	return "", fmt.Errorf("%w: unknown metric %q", ErrConfiguration, s)
}

// Distance computes the distance between a and b under the metric.
// Both vectors must have the same length.
func (m Metric) Distance(a, b []float32) float64 {
	if m == MetricCosine {
		return 1 - CosineSimilarity(a, b)
	}
	return L2Distance(a, b)
}

// CosineSimilarity computes the cosine similarity between two vectors
// Returns a value between -1 and 1, where 1 means identical direction
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// L2Distance computes the Euclidean distance between two vectors
func L2Distance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Search performs a k-nearest-neighbor search on the index.
// Results are sorted by distance ascending; ties keep insertion order.
// An empty index yields an empty result regardless of the query.
func (idx *Index) Search(query []float32, k int) ([]Result, error) {
	if idx.Len() == 0 {
		return []Result{}, nil
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrConfiguration, k)
	}
	if len(query) != idx.Dimension {
		return nil, fmt.Errorf("%w: query dimension %d does not match index dimension %d",
			ErrConfiguration, len(query), idx.Dimension)
	}

	metric := idx.Metric
	if metric == "" {
		metric = MetricL2
	}

	results := make([]Result, len(idx.Chunks))
	for i := range idx.Chunks {
		results[i] = Result{
			Chunk:    idx.Chunks[i],
			Distance: metric.Distance(query, idx.Embeddings[i]),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}
