package textvec

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/fasttext-bridge/internal/testutil"
)

func openFixture(t *testing.T, opts ...Option) *Model {
	t.Helper()
	m, err := Open(testutil.WriteFixture(t), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

func TestOpen(t *testing.T) {
	m := openFixture(t)

	assert.Equal(t, testutil.FixtureDim, m.Dimension())
	assert.Equal(t, testutil.FixtureWords, m.Words())
	assert.Equal(t, []string{"__label__royalty", "__label__geography", "__label__sports"}, m.Labels())
}

func TestOpenCompressed(t *testing.T) {
	for _, ext := range []string{".gz", ".zst", ".lz4"} {
		t.Run(ext, func(t *testing.T) {
			m, err := Open(testutil.WriteFixtureAs(t, ext))
			require.NoError(t, err)
			defer m.Close()

			vec, err := m.WordVector("king")
			require.NoError(t, err)
			assert.Equal(t, testutil.KingVector, vec)
		})
	}
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.vec"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"bad header", "ten 4\n"},
		{"header arity", "1\n"},
		{"zero dim", "1 0\nking\n"},
		{"short row", "1 3\nking 0.1 0.2\n"},
		{"bad float", "1 2\nking 0.1 x\n"},
		{"row count", "2 2\nking 0.1 0.2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParseCRLFAndDuplicates(t *testing.T) {
	m, err := Parse(strings.NewReader("3 2\r\na 1 0\r\na 0 1\r\nb 0 1"))
	require.NoError(t, err)

	assert.Equal(t, 2, m.Words())
	vec, err := m.WordVector("a")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, vec, "first row wins")
}

func TestWordVector(t *testing.T) {
	m := openFixture(t)

	vec, err := m.WordVector("king")
	require.NoError(t, err)
	assert.Equal(t, testutil.KingVector, vec)

	// Callers own the returned slice
	vec[0] = 42
	again, _ := m.WordVector("king")
	assert.Equal(t, testutil.KingVector, again)

	oov, err := m.WordVector("zebra")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, testutil.FixtureDim), oov)
}

func TestPredict(t *testing.T) {
	m := openFixture(t)

	got, err := m.Predict(strings.NewReader(testutil.PredictQuery), 4)
	require.NoError(t, err)
	require.Len(t, got, testutil.FixtureLabels)

	assert.Equal(t, testutil.PredictTop, got[0].Label)
	for i, s := range got {
		assert.LessOrEqual(t, s.Score, float32(0), "log-probability")
		if i > 0 {
			assert.GreaterOrEqual(t, got[i-1].Score, s.Score)
		}
	}

	top, err := m.Predict(strings.NewReader(testutil.PredictQuery), 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, got[0], top[0])
}

func TestPredictNoKnownWords(t *testing.T) {
	m := openFixture(t)

	for _, q := range []string{"", "   ", "zebra unicorn"} {
		got, err := m.Predict(strings.NewReader(q), 4)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NotNil(t, got)
	}
}

func TestPredictWithoutLabels(t *testing.T) {
	m, err := Parse(strings.NewReader("1 2\nking 1 0\n"))
	require.NoError(t, err)

	got, err := m.Predict(strings.NewReader("king"), 4)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNearestNeighbors(t *testing.T) {
	m := openFixture(t)

	got, err := m.NearestNeighbors(testutil.NeighborQuery, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	for i, want := range testutil.NeighborOrder {
		assert.Equal(t, want, got[i].Label)
	}
	assert.InDelta(t, testutil.NeighborFirstScore, got[0].Score, 1e-3)

	all, err := m.NearestNeighbors(testutil.NeighborQuery, 100)
	require.NoError(t, err)
	assert.Len(t, all, testutil.FixtureWords-1)
	for _, s := range all {
		assert.NotEqual(t, testutil.NeighborQuery, s.Label)
	}
}

func TestNearestNeighborsEdgeCases(t *testing.T) {
	m := openFixture(t)

	got, err := m.NearestNeighbors("king", 0)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = m.NearestNeighbors("king", -3)
	require.NoError(t, err)
	assert.Empty(t, got)

	// Unknown words have a zero vector; every score is zero and vocabulary
	// order decides.
	got, err = m.NearestNeighbors("zebra", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "king", got[0].Label)
	assert.Equal(t, "queen", got[1].Label)
	assert.Zero(t, got[0].Score)
}

func TestAnalogies(t *testing.T) {
	m := openFixture(t)

	got, err := m.Analogies(testutil.AnalogyA, testutil.AnalogyB, testutil.AnalogyC, 10)
	require.NoError(t, err)
	require.Len(t, got, testutil.FixtureWords-3)
	assert.Equal(t, testutil.AnalogyFirst, got[0].Label)

	for _, s := range got {
		assert.NotContains(t, []string{testutil.AnalogyA, testutil.AnalogyB, testutil.AnalogyC}, s.Label)
	}
}

func TestClose(t *testing.T) {
	m, err := Open(testutil.WriteFixture(t))
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err = m.WordVector("king")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = m.Predict(strings.NewReader("king"), 4)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = m.NearestNeighbors("king", 3)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = m.Analogies("a", "b", "c", 3)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLoader(t *testing.T) {
	load := Loader()

	m, err := load(testutil.WriteFixture(t))
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, testutil.FixtureDim, m.Dimension())

	m2, err := load(filepath.Join(t.TempDir(), "missing.vec"))
	require.Error(t, err)
	assert.Nil(t, m2)
}
