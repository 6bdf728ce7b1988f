package fasttext

import (
	"math"
	"sort"
)

// Prediction is one predicted label.
type Prediction struct {
	Index       int     `json:"index"`
	Label       string  `json:"label"`
	Probability float32 `json:"probability"`
}

// Predictions are ranked best first.
type Predictions []Prediction

// Neighbor is one nearest-neighbour word. Probability holds the cosine
// similarity.
type Neighbor struct {
	Index       int     `json:"index"`
	Name        string  `json:"name"`
	Probability float32 `json:"probability"`
}

// Neighbors are ranked best first as returned by the model.
type Neighbors []Neighbor

// Len is the number of elements in the collection.
func (p Neighbors) Len() int { return len(p) }

// Less orders by descending probability with NaN last.
func (p Neighbors) Less(i, j int) bool {
	pi, pj := float64(p[i].Probability), float64(p[j].Probability)
	if math.IsNaN(pi) {
		return false
	}
	if math.IsNaN(pj) {
		return true
	}
	return pi > pj
}

// Swap swaps the elements with indexes i and j.
func (p Neighbors) Swap(i, j int) { p[i], p[j] = p[j], p[i] }

// Sort sorts p in place by descending probability.
func (p Neighbors) Sort() { sort.Stable(p) }

// Analog is one analogy candidate.
type Analog = Neighbor

// Analogs are ranked best first.
type Analogs = Neighbors

// Vector is one word-vector component.
type Vector struct {
	Probability float32 `json:"probability"`
}

// Vectors is a word vector in payload form.
type Vectors []Vector

// Floats returns the components as a plain slice.
func (v Vectors) Floats() []float32 {
	out := make([]float32, len(v))
	for i, c := range v {
		out[i] = c.Probability
	}
	return out
}
