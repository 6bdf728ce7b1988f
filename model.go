package fasttext

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/viterin/vek/vek32"

	"github.com/wippyai/fasttext-bridge/bridge"
	"github.com/wippyai/fasttext-bridge/resource"
)

// Model is an open model. Methods are safe for concurrent use; Close must
// not race with them.
type Model struct {
	bridge *bridge.Bridge
	path   string
	handle resource.Handle
}

// Open loads the model at path into the default bridge.
func Open(path string) (*Model, error) {
	return OpenWith(bridge.Default(), path)
}

// OpenWith loads the model at path into b.
func OpenWith(b *bridge.Bridge, path string) (*Model, error) {
	h, err := b.Load(path)
	if err != nil {
		return nil, err
	}
	return &Model{bridge: b, path: path, handle: h}, nil
}

// MustOpen is like Open but panics on error.
func MustOpen(path string) *Model {
	m, err := Open(path)
	if err != nil {
		panic(err)
	}
	return m
}

// Path returns the path the model was loaded from.
func (m *Model) Path() string { return m.path }

// Close releases the model. Closing a nil or closed Model is a no-op.
func (m *Model) Close() error {
	if m == nil || m.handle == 0 {
		return nil
	}
	err := m.bridge.Release(m.handle)
	if err == nil {
		m.handle = 0
	}
	return err
}

// Predict returns the most probable labels for query.
func (m *Model) Predict(query string) (Predictions, error) {
	payload, err := m.bridge.Predict(m.handle, strings.NewReader(query))
	if err != nil {
		return nil, err
	}
	out := Predictions{}
	if err := decode("predict", payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Neighbor returns the k words nearest to query.
func (m *Model) Neighbor(query string, k int32) (Neighbors, error) {
	payload, err := m.bridge.Neighbor(m.handle, query, k)
	if err != nil {
		return nil, err
	}
	out := Neighbors{}
	if err := decode("neighbor", payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Analogy returns words completing a:b :: c:?. The model always returns
// bridge.AnalogyCandidates results; k is kept for API compatibility.
func (m *Model) Analogy(a, b, c string, k int32) (Analogs, error) {
	payload, err := m.bridge.Analogy(m.handle, a, b, c, k)
	if err != nil {
		return nil, err
	}
	out := Analogs{}
	if err := decode("analogy", payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Wordvec returns the vector of query.
func (m *Model) Wordvec(query string) (Vectors, error) {
	payload, err := m.bridge.Wordvec(m.handle, query)
	if err != nil {
		return nil, err
	}
	out := Vectors{}
	if err := decode("wordvec", payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Dimension returns the embedding dimension.
func (m *Model) Dimension() (int, error) {
	return m.bridge.Dimension(m.handle)
}

// CosineSimilarity returns the cosine similarity of the vectors of a and b.
// It is 0 when either vector is zero.
func (m *Model) CosineSimilarity(a, b string) (float32, error) {
	va, err := m.Wordvec(a)
	if err != nil {
		return 0, err
	}
	vb, err := m.Wordvec(b)
	if err != nil {
		return 0, err
	}
	x, y := va.Floats(), vb.Floats()
	if vek32.Norm(x) == 0 || vek32.Norm(y) == 0 {
		return 0, nil
	}
	return vek32.CosineSimilarity(x, y), nil
}

func decode(op string, payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%s: decode payload: %w", op, err)
	}
	return nil
}
