// Package textvec is a compact embedding model backed by fastText .vec text
// files. It answers the embedding.Model queries the bridge needs: label
// prediction, nearest neighbours, analogies and word vectors.
//
// Word rows become input vectors. Rows whose token starts with "__label__"
// become label vectors; Predict scores the mean input vector of the query
// against them with a softmax. Files without label rows still serve every
// other query, which makes stock fastText .vec downloads usable as-is.
package textvec

import (
	"bufio"
	"errors"
	"io"
	"math/rand"
	"sort"
	"sync/atomic"

	"github.com/chewxy/math32"
	"github.com/coder/hnsw"
	"github.com/viterin/vek/vek32"

	"github.com/wippyai/fasttext-bridge/embedding"
)

// ErrClosed is returned by queries on a closed model.
var ErrClosed = errors.New("textvec: model closed")

const normEpsilon = 1e-8

// graphSeed fixes HNSW level assignment so a file always builds the same graph.
const graphSeed = 1

type options struct {
	hnsw     bool
	efSearch int
}

// Option configures model loading.
type Option func(*options)

// WithHNSW answers neighbour and analogy queries from an HNSW graph instead
// of a full scan. At least efSearch candidates are taken from the graph and
// re-scored exactly before ranking. Recall is approximate: words the graph
// search never reaches are missing from the result, so rankings can differ
// from exact search. efSearch <= 0 keeps the graph default.
func WithHNSW(efSearch int) Option {
	return func(o *options) {
		o.hnsw = true
		o.efSearch = efSearch
	}
}

// Model is a loaded vector model. Queries are read-only and safe for
// concurrent use; Close must not race with queries.
type Model struct {
	index   map[string]int
	graph   *hnsw.Graph[int]
	words   []string
	vectors [][]float32
	normed  [][]float32
	labels  []string
	outputs [][]float32
	dim     int
	closed  atomic.Bool
}

func newModel(dim, rows int) *Model {
	return &Model{
		dim:     dim,
		index:   make(map[string]int, rows),
		words:   make([]string, 0, rows),
		vectors: make([][]float32, 0, rows),
	}
}

func (m *Model) add(token string, vec []float32) {
	if len(token) > len(LabelPrefix) && token[:len(LabelPrefix)] == LabelPrefix {
		m.labels = append(m.labels, token)
		m.outputs = append(m.outputs, vec)
		return
	}
	if _, dup := m.index[token]; dup {
		return
	}
	m.index[token] = len(m.words)
	m.words = append(m.words, token)
	m.vectors = append(m.vectors, vec)
}

// finish precomputes unit-length word vectors and the optional graph.
func (m *Model) finish(o options) {
	m.normed = make([][]float32, len(m.vectors))
	for i, v := range m.vectors {
		n := make([]float32, m.dim)
		copy(n, v)
		if norm := vek32.Norm(v); norm > 0 {
			vek32.DivNumber_Inplace(n, norm)
		}
		m.normed[i] = n
	}

	if o.hnsw {
		g := hnsw.NewGraph[int]()
		g.Distance = hnsw.CosineDistance
		g.Rng = rand.New(rand.NewSource(graphSeed))
		if o.efSearch > 0 {
			g.EfSearch = o.efSearch
		}
		nodes := make([]hnsw.Node[int], 0, len(m.normed))
		for i, v := range m.normed {
			if vek32.Norm(v) == 0 {
				continue
			}
			nodes = append(nodes, hnsw.MakeNode(i, v))
		}
		if len(nodes) > 0 {
			g.Add(nodes...)
		}
		m.graph = g
	}
}

// Dimension returns the embedding dimension.
func (m *Model) Dimension() int { return m.dim }

// Words returns the number of vocabulary words.
func (m *Model) Words() int { return len(m.words) }

// Labels returns the label names in file order.
func (m *Model) Labels() []string {
	out := make([]string, len(m.labels))
	copy(out, m.labels)
	return out
}

// WordVector returns a copy of the vector for word, or zeros if the word is
// not in the vocabulary.
func (m *Model) WordVector(word string) ([]float32, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	out := make([]float32, m.dim)
	if i, ok := m.index[word]; ok {
		copy(out, m.vectors[i])
	}
	return out, nil
}

// Predict averages the vectors of the known words read from r and returns
// the k most probable labels with their log-probabilities.
func (m *Model) Predict(r io.Reader, k int32) ([]embedding.Scored, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if k <= 0 || len(m.labels) == 0 {
		return []embedding.Scored{}, nil
	}

	hidden := make([]float32, m.dim)
	known := 0
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	for sc.Scan() {
		if i, ok := m.index[sc.Text()]; ok {
			vek32.Add_Inplace(hidden, m.vectors[i])
			known++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if known == 0 {
		return []embedding.Scored{}, nil
	}
	vek32.DivNumber_Inplace(hidden, float32(known))

	logits := make([]float32, len(m.outputs))
	for i, out := range m.outputs {
		logits[i] = vek32.Dot(out, hidden)
	}
	lse := logSumExp(logits)

	scored := make([]embedding.Scored, len(logits))
	for i, z := range logits {
		scored[i] = embedding.Scored{Label: m.labels[i], Score: z - lse}
	}
	return topK(scored, int(k)), nil
}

// NearestNeighbors returns the k words most similar to word, excluding word.
func (m *Model) NearestNeighbors(word string, k int32) ([]embedding.Scored, error) {
	query, err := m.WordVector(word)
	if err != nil {
		return nil, err
	}
	return m.search(query, int(k), map[string]bool{word: true}), nil
}

// Analogies returns the k words closest to a - b + c, each term scaled to
// unit length first. The three query words are excluded.
func (m *Model) Analogies(a, b, c string, k int32) ([]embedding.Scored, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	query := make([]float32, m.dim)
	for _, t := range []struct {
		word string
		sign float32
	}{{a, 1}, {b, -1}, {c, 1}} {
		v, _ := m.WordVector(t.word)
		scale := t.sign / (vek32.Norm(v) + normEpsilon)
		vek32.Add_Inplace(query, vek32.MulNumber(v, scale))
	}
	banned := map[string]bool{a: true, b: true, c: true}
	return m.search(query, int(k), banned), nil
}

// Close drops the model's vectors. Later queries fail with ErrClosed.
func (m *Model) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	m.graph = nil
	m.vectors = nil
	m.normed = nil
	m.outputs = nil
	return nil
}

func logSumExp(z []float32) float32 {
	maxZ := z[0]
	for _, v := range z[1:] {
		if v > maxZ {
			maxZ = v
		}
	}
	var sum float32
	for _, v := range z {
		sum += math32.Exp(v - maxZ)
	}
	return maxZ + math32.Log(sum)
}

// topK sorts by descending score, keeping input order among ties.
func topK(s []embedding.Scored, k int) []embedding.Scored {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Score > s[j].Score })
	if k < len(s) {
		s = s[:k]
	}
	return s
}

var _ embedding.Model = (*Model)(nil)
