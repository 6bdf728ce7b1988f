package testutil

import (
	"bytes"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Fixture is a 4-dimensional model with ten words and three labels.
const Fixture = `13 4
king 0.9 0.1 0.0 0.2
queen 0.85 0.15 0.0 0.8
man 0.5 0.0 0.1 0.1
woman 0.45 0.05 0.1 0.7
paris 0.0 0.9 0.3 0.1
france 0.0 0.8 0.6 0.1
berlin 0.1 0.9 0.2 0.0
germany 0.1 0.8 0.5 0.0
football 0.0 0.1 0.9 0.3
goal 0.05 0.0 0.95 0.2
__label__royalty 1.0 0.0 0.0 0.5
__label__geography 0.0 1.0 0.5 0.0
__label__sports 0.0 0.0 1.0 0.2
`

// Reference values for Fixture.
const (
	FixtureDim    = 4
	FixtureWords  = 10
	FixtureLabels = 3

	// PredictQuery is a query whose best label is PredictTop.
	PredictQuery = "king queen"
	PredictTop   = "__label__royalty"
	// PredictTopProbability is exp of the top label's log-probability.
	PredictTopProbability = 0.5791

	// NeighborQuery's closest words, in order.
	NeighborQuery = "king"
	NeighborFirst = "man"
	// NeighborFirstScore is the cosine similarity of king and man.
	NeighborFirstScore = 0.9754

	// AnalogyA - AnalogyB + AnalogyC is closest to AnalogyFirst.
	AnalogyA     = "king"
	AnalogyB     = "man"
	AnalogyC     = "woman"
	AnalogyFirst = "queen"
)

// NeighborOrder is the ranking of the three nearest words to NeighborQuery.
var NeighborOrder = []string{"man", "queen", "woman"}

// KingVector is the fixture vector of "king".
var KingVector = []float32{0.9, 0.1, 0, 0.2}

// WriteFixture writes Fixture to a temporary .vec file and returns its path.
func WriteFixture(t testing.TB) string {
	t.Helper()
	return WriteFixtureAs(t, ".vec")
}

// WriteFixtureAs writes Fixture with the given extension. ".gz", ".zst"
// and ".lz4" produce compressed files; anything else is written as text.
func WriteFixtureAs(t testing.TB, ext string) string {
	t.Helper()
	return writeFile(t, "fixture"+ext, []byte(Fixture))
}

// WriteVec formats rows as a .vec file and returns its path. Every row must
// have the same length.
func WriteVec(t testing.TB, rows map[string][]float32) string {
	t.Helper()
	return writeFile(t, "model.vec", FormatVec(rows))
}

// FormatVec renders rows in .vec text form, ordered by key.
func FormatVec(rows map[string][]float32) []byte {
	keys := make([]string, 0, len(rows))
	dim := 0
	for k, v := range rows {
		keys = append(keys, k)
		dim = len(v)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d\n", len(rows), dim)
	for _, k := range keys {
		buf.WriteString(k)
		for _, x := range rows[k] {
			buf.WriteByte(' ')
			buf.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
		}
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func writeFile(t testing.TB, name string, text []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)

	data, err := compress(filepath.Ext(name), text)
	if err != nil {
		t.Fatalf("compress %s: %v", name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func compress(ext string, text []byte) ([]byte, error) {
	var buf bytes.Buffer
	switch ext {
	case ".gz":
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(text); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case ".zst":
		w, err := zstd.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(text); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	case ".lz4":
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(text); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
	default:
		return text, nil
	}
	return buf.Bytes(), nil
}

// RNG is a seeded, thread-safe source of random model rows.
type RNG struct {
	rand *rand.Rand
	mu   sync.Mutex
}

// NewRNG creates an RNG with the given seed.
func NewRNG(seed int64) *RNG {
	return &RNG{rand: rand.New(rand.NewSource(seed))}
}

// Rows returns n word rows named w0..w(n-1) with values in [-1, 1).
func (r *RNG) Rows(n, dim int) map[string][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows := make(map[string][]float32, n)
	data := make([]float32, n*dim)
	for i := range n {
		vec := data[i*dim : (i+1)*dim]
		for j := range vec {
			vec[j] = r.rand.Float32()*2 - 1
		}
		rows["w"+strconv.Itoa(i)] = vec
	}
	return rows
}
