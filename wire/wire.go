package wire

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/chewxy/math32"

	"github.com/wippyai/fasttext-bridge/embedding"
	"github.com/wippyai/fasttext-bridge/errors"
)

// Float is a float32 that encodes NaN and infinities as null.
type Float float32

// MarshalJSON implements json.Marshaler.
func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 32), nil
}

// Prediction is one predict record.
type Prediction struct {
	Index       int    `json:"index"`
	Label       string `json:"label"`
	Probability Float  `json:"probability"`
}

// Neighbor is one neighbour or analogy record.
type Neighbor struct {
	Index       int    `json:"index"`
	Name        string `json:"name"`
	Probability Float  `json:"probability"`
}

// Component is one word-vector record.
type Component struct {
	Probability Float `json:"probability"`
}

// Predictions encodes label predictions. Scores are log-probabilities and
// are written as probabilities.
func Predictions(scored []embedding.Scored) ([]byte, error) {
	recs := make([]Prediction, len(scored))
	for i, s := range scored {
		recs[i] = Prediction{Index: i, Label: s.Label, Probability: Float(math32.Exp(s.Score))}
	}
	return marshal("predictions", recs)
}

// Neighbors encodes nearest-neighbour results with their scores unchanged.
func Neighbors(scored []embedding.Scored) ([]byte, error) {
	return marshal("neighbors", neighbors(scored))
}

// Analogies encodes analogy results with their scores unchanged.
func Analogies(scored []embedding.Scored) ([]byte, error) {
	return marshal("analogies", neighbors(scored))
}

// Vector encodes a word vector, one record per component.
func Vector(vec []float32) ([]byte, error) {
	recs := make([]Component, len(vec))
	for i, v := range vec {
		recs[i] = Component{Probability: Float(v)}
	}
	return marshal("vector", recs)
}

// Terminated returns a copy of payload followed by a NUL byte.
func Terminated(payload []byte) []byte {
	out := make([]byte, len(payload)+1)
	copy(out, payload)
	return out
}

func neighbors(scored []embedding.Scored) []Neighbor {
	recs := make([]Neighbor, len(scored))
	for i, s := range scored {
		recs[i] = Neighbor{Index: i, Name: s.Label, Probability: Float(s.Score)}
	}
	return recs
}

func marshal(op string, v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Encode(op, err)
	}
	return b, nil
}
