package bridge

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	zapobs "go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/fasttext-bridge/embedding"
	"github.com/wippyai/fasttext-bridge/errors"
	"github.com/wippyai/fasttext-bridge/internal/testutil"
	"github.com/wippyai/fasttext-bridge/resource"
)

// fakeModel records the arguments it was called with.
type fakeModel struct {
	block    chan struct{}
	entered  chan struct{}
	closeErr error
	queryErr error
	lastK    atomic.Int32
	closed   atomic.Int32
	dim      int
}

func newFake(dim int) *fakeModel {
	return &fakeModel{dim: dim}
}

func (f *fakeModel) wait() {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeModel) Predict(r io.Reader, k int32) ([]embedding.Scored, error) {
	f.lastK.Store(k)
	f.wait()
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return []embedding.Scored{{Label: "__label__a", Score: -0.1}, {Label: "__label__b", Score: -2.5}}, nil
}

func (f *fakeModel) NearestNeighbors(word string, k int32) ([]embedding.Scored, error) {
	f.lastK.Store(k)
	out := make([]embedding.Scored, 0, max(k, 0))
	for i := range max(k, 0) {
		out = append(out, embedding.Scored{Label: fmt.Sprintf("w%d", i), Score: 1 / float32(i+1)})
	}
	return out, f.queryErr
}

func (f *fakeModel) Analogies(a, b, c string, k int32) ([]embedding.Scored, error) {
	return f.NearestNeighbors(a, k)
}

func (f *fakeModel) WordVector(word string) ([]float32, error) {
	return make([]float32, f.dim), f.queryErr
}

func (f *fakeModel) Dimension() int { return f.dim }

func (f *fakeModel) Close() error {
	f.closed.Add(1)
	return f.closeErr
}

func fakeLoader(models map[string]*fakeModel) embedding.Loader {
	return func(path string) (embedding.Model, error) {
		m, ok := models[path]
		if !ok {
			return nil, fmt.Errorf("open %s: %w", path, stderrors.New("file does not exist"))
		}
		return m, nil
	}
}

func fixtureBridge(t *testing.T) (*Bridge, resource.Handle) {
	t.Helper()
	b := New()
	t.Cleanup(func() { b.Close() })
	h, err := b.Load(testutil.WriteFixture(t))
	require.NoError(t, err)
	return b, h
}

type row map[string]any

func decode(t *testing.T, payload []byte) []row {
	t.Helper()
	var recs []row
	require.NoError(t, json.Unmarshal(payload, &recs), "payload %s", payload)
	for _, r := range recs {
		for k, v := range r {
			switch v.(type) {
			case map[string]any, []any:
				t.Fatalf("record field %q is not flat: %v", k, v)
			}
		}
	}
	return recs
}

func requireKind(t *testing.T, err error, kind errors.Kind) *errors.Error {
	t.Helper()
	require.Error(t, err)
	var e *errors.Error
	require.True(t, stderrors.As(err, &e), "want *errors.Error, got %T: %v", err, err)
	assert.Equal(t, kind, e.Kind)
	return e
}

func TestLoadRelease(t *testing.T) {
	fake := newFake(3)
	b := New(WithLoader(fakeLoader(map[string]*fakeModel{"m.vec": fake})))

	h, err := b.Load("m.vec")
	require.NoError(t, err)
	assert.NotZero(t, h)
	assert.Equal(t, 1, b.Len())

	require.NoError(t, b.Release(h))
	assert.Zero(t, b.Len())
	assert.Equal(t, int32(1), fake.closed.Load())
}

func TestReleaseNullIsNoop(t *testing.T) {
	b := New()
	for range 3 {
		assert.NoError(t, b.Release(0))
	}
	assert.Zero(t, b.Len())
}

func TestDoubleRelease(t *testing.T) {
	b, h := fixtureBridge(t)
	require.NoError(t, b.Release(h))

	e := requireKind(t, b.Release(h), errors.KindInvalidHandle)
	assert.Equal(t, errors.PhaseRelease, e.Phase)
	assert.Equal(t, uint64(h), e.Handle)
}

func TestLoadErrors(t *testing.T) {
	b := New()

	_, err := b.Load(filepath.Join(t.TempDir(), "missing.vec"))
	e := requireKind(t, err, errors.KindNotFound)
	assert.Equal(t, errors.PhaseLoad, e.Phase)

	bad := filepath.Join(t.TempDir(), "bad.vec")
	require.NoError(t, writeFile(bad, "not a header\n"))
	_, err = b.Load(bad)
	requireKind(t, err, errors.KindInvalidData)

	assert.Zero(t, b.Len())
}

func TestLoadNilModel(t *testing.T) {
	b := New(WithLoader(func(string) (embedding.Model, error) { return nil, nil }))

	h, err := b.Load("empty.vec")
	e := requireKind(t, err, errors.KindInvalidData)
	assert.Equal(t, errors.PhaseLoad, e.Phase)
	assert.Zero(t, h)
	assert.Zero(t, b.Len())
}

func TestInvalidHandle(t *testing.T) {
	b, h := fixtureBridge(t)
	require.NoError(t, b.Release(h))

	for _, bad := range []resource.Handle{0, h, 0xdead} {
		_, err := b.Predict(bad, strings.NewReader("king"))
		requireKind(t, err, errors.KindInvalidHandle)
		_, err = b.Neighbor(bad, "king", 3)
		requireKind(t, err, errors.KindInvalidHandle)
		_, err = b.Analogy(bad, "a", "b", "c", 3)
		requireKind(t, err, errors.KindInvalidHandle)
		_, err = b.Wordvec(bad, "king")
		requireKind(t, err, errors.KindInvalidHandle)
		_, err = b.Dimension(bad)
		requireKind(t, err, errors.KindInvalidHandle)
	}
}

func TestStaleHandleAfterReuse(t *testing.T) {
	b, h1 := fixtureBridge(t)
	require.NoError(t, b.Release(h1))

	h2, err := b.Load(testutil.WriteFixture(t))
	require.NoError(t, err)
	assert.Equal(t, h1.Slot(), h2.Slot())
	assert.NotEqual(t, h1, h2)

	_, err = b.Wordvec(h1, "king")
	requireKind(t, err, errors.KindInvalidHandle)
	_, err = b.Wordvec(h2, "king")
	assert.NoError(t, err)
}

func TestPredict(t *testing.T) {
	b, h := fixtureBridge(t)

	payload, err := b.Predict(h, strings.NewReader(testutil.PredictQuery))
	require.NoError(t, err)

	recs := decode(t, payload)
	require.Len(t, recs, testutil.FixtureLabels)
	assert.Equal(t, testutil.PredictTop, recs[0]["label"])
	assert.InDelta(t, testutil.PredictTopProbability, recs[0]["probability"], 1e-3)
	for i, r := range recs {
		assert.Equal(t, float64(i), r["index"])
		p := r["probability"].(float64)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		assert.Len(t, r, 3)
	}
}

func TestPredictAsksForFour(t *testing.T) {
	fake := newFake(2)
	b := New(WithLoader(fakeLoader(map[string]*fakeModel{"m": fake})))
	h, err := b.Load("m")
	require.NoError(t, err)

	payload, err := b.Predict(h, strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, PredictK, fake.lastK.Load())

	recs := decode(t, payload)
	require.Len(t, recs, 2)
	assert.InDelta(t, 0.9048, recs[0]["probability"], 1e-4)
}

func TestPredictEmpty(t *testing.T) {
	b, h := fixtureBridge(t)

	for _, q := range []string{"", "zebra"} {
		payload, err := b.Predict(h, strings.NewReader(q))
		require.NoError(t, err)
		assert.Equal(t, "[]", string(payload))
	}
}

func TestNeighbor(t *testing.T) {
	b, h := fixtureBridge(t)

	payload, err := b.Neighbor(h, testutil.NeighborQuery, 5)
	require.NoError(t, err)
	recs := decode(t, payload)
	require.Len(t, recs, 5)
	assert.Equal(t, testutil.NeighborFirst, recs[0]["name"])
	for i, r := range recs {
		assert.Equal(t, float64(i), r["index"])
		assert.Contains(t, r, "probability")
		assert.Len(t, r, 3)
	}
}

func TestNeighborPassesK(t *testing.T) {
	fake := newFake(2)
	b := New(WithLoader(fakeLoader(map[string]*fakeModel{"m": fake})))
	h, err := b.Load("m")
	require.NoError(t, err)

	for _, k := range []int32{0, 1, 7, -2} {
		payload, err := b.Neighbor(h, "x", k)
		require.NoError(t, err)
		assert.Equal(t, k, fake.lastK.Load())
		assert.Len(t, decode(t, payload), int(max(k, 0)))
	}
}

func TestAnalogyIgnoresK(t *testing.T) {
	fake := newFake(2)
	b := New(WithLoader(fakeLoader(map[string]*fakeModel{"m": fake})))
	h, err := b.Load("m")
	require.NoError(t, err)

	for _, k := range []int32{0, 1, 50} {
		payload, err := b.Analogy(h, "a", "b", "c", k)
		require.NoError(t, err)
		assert.Equal(t, AnalogyCandidates, fake.lastK.Load())
		assert.Len(t, decode(t, payload), int(AnalogyCandidates))
	}
}

func TestAnalogyFixture(t *testing.T) {
	b, h := fixtureBridge(t)

	payload, err := b.Analogy(h, testutil.AnalogyA, testutil.AnalogyB, testutil.AnalogyC, 1)
	require.NoError(t, err)
	recs := decode(t, payload)
	require.Len(t, recs, testutil.FixtureWords-3)
	assert.Equal(t, testutil.AnalogyFirst, recs[0]["name"])
}

func TestWordvec(t *testing.T) {
	b, h := fixtureBridge(t)

	payload, err := b.Wordvec(h, "king")
	require.NoError(t, err)
	recs := decode(t, payload)
	require.Len(t, recs, testutil.FixtureDim)
	for i, r := range recs {
		assert.Len(t, r, 1, "vector records carry no index")
		assert.InDelta(t, testutil.KingVector[i], r["probability"], 1e-6)
	}

	payload, err = b.Wordvec(h, "zebra")
	require.NoError(t, err)
	assert.Len(t, decode(t, payload), testutil.FixtureDim)
}

func TestDimension(t *testing.T) {
	b, h := fixtureBridge(t)

	d, err := b.Dimension(h)
	require.NoError(t, err)
	assert.Equal(t, testutil.FixtureDim, d)
}

func TestCollaboratorError(t *testing.T) {
	fake := newFake(2)
	fake.queryErr = stderrors.New("model exploded")
	b := New(WithLoader(fakeLoader(map[string]*fakeModel{"m": fake})))
	h, err := b.Load("m")
	require.NoError(t, err)

	_, err = b.Wordvec(h, "x")
	e := requireKind(t, err, errors.KindCollaborator)
	assert.Equal(t, "wordvec", e.Op)
	assert.ErrorIs(t, err, fake.queryErr)
}

func TestReleaseCloseError(t *testing.T) {
	fake := newFake(2)
	fake.closeErr = stderrors.New("flush failed")
	b := New(WithLoader(fakeLoader(map[string]*fakeModel{"m": fake})))
	h, err := b.Load("m")
	require.NoError(t, err)

	err = b.Release(h)
	requireKind(t, err, errors.KindCollaborator)
	assert.Zero(t, b.Len())
}

func TestReleaseWhileQueryRunning(t *testing.T) {
	fake := newFake(2)
	fake.block = make(chan struct{})
	fake.entered = make(chan struct{})
	b := New(WithLoader(fakeLoader(map[string]*fakeModel{"m": fake})))
	h, err := b.Load("m")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := b.Predict(h, strings.NewReader("x"))
		done <- err
	}()
	<-fake.entered

	requireKind(t, b.Release(h), errors.KindHandleBusy)
	assert.Zero(t, fake.closed.Load())

	close(fake.block)
	require.NoError(t, <-done)

	require.NoError(t, b.Release(h))
	assert.Equal(t, int32(1), fake.closed.Load())
}

func TestConcurrentHandles(t *testing.T) {
	b := New()
	defer b.Close()
	path := testutil.WriteFixture(t)

	var g errgroup.Group
	for range 8 {
		g.Go(func() error {
			h, err := b.Load(path)
			if err != nil {
				return err
			}
			for range 20 {
				if _, err := b.Neighbor(h, "king", 3); err != nil {
					return err
				}
				if _, err := b.Predict(h, strings.NewReader("paris france")); err != nil {
					return err
				}
			}
			return b.Release(h)
		})
	}
	require.NoError(t, g.Wait())
	assert.Zero(t, b.Len())
}

func TestSharedHandleQueries(t *testing.T) {
	b, h := fixtureBridge(t)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := b.Wordvec(h, "queen"); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestClose(t *testing.T) {
	models := map[string]*fakeModel{"a": newFake(1), "b": newFake(1)}
	b := New(WithLoader(fakeLoader(models)))
	for name := range models {
		_, err := b.Load(name)
		require.NoError(t, err)
	}

	require.NoError(t, b.Close())
	assert.Zero(t, b.Len())
	for _, m := range models {
		assert.Equal(t, int32(1), m.closed.Load())
	}

	_, err := b.Load("a")
	requireKind(t, err, errors.KindClosed)
	assert.NoError(t, b.Close())
}

func TestLogging(t *testing.T) {
	core, logs := zapobs.New(zap.DebugLevel)
	b := New(WithLogger(zap.New(core)))

	h, err := b.Load(testutil.WriteFixture(t))
	require.NoError(t, err)
	require.NoError(t, b.Release(h))

	assert.Equal(t, 1, logs.FilterMessage("model loaded").Len())
	assert.Equal(t, 1, logs.FilterMessage("handle created").Len())
	assert.Equal(t, 1, logs.FilterMessage("handle dropped").Len())
}

func TestDefault(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func writeFile(path, text string) error {
	return os.WriteFile(path, []byte(text), 0o644)
}
