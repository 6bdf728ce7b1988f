package bridge

import (
	stderrors "errors"
	"io"
	"io/fs"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/fasttext-bridge/embedding"
	"github.com/wippyai/fasttext-bridge/embedding/textvec"
	"github.com/wippyai/fasttext-bridge/errors"
	"github.com/wippyai/fasttext-bridge/resource"
	"github.com/wippyai/fasttext-bridge/wire"
)

const (
	// PredictK is the number of labels Predict asks the model for.
	PredictK int32 = 4

	// AnalogyCandidates is the number of words Analogy asks the model for,
	// whatever k the caller passes.
	AnalogyCandidates int32 = 10
)

const modelType uint32 = 1

// Bridge maps handles to loaded models.
type Bridge struct {
	table  *resource.HandleTable
	models *resource.Typed[embedding.Model]
	loader embedding.Loader
	logger *zap.Logger
	closed atomic.Bool
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLoader sets the function used to open models. The default reads
// fastText .vec files.
func WithLoader(l embedding.Loader) Option {
	return func(b *Bridge) { b.loader = l }
}

// WithLogger sets the bridge's logger. The default is the package Logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// New creates a bridge with an empty handle table.
func New(opts ...Option) *Bridge {
	table := resource.NewTable()
	b := &Bridge{
		table:  table,
		models: resource.NewTyped[embedding.Model](table, modelType),
		loader: textvec.Loader(),
	}
	for _, opt := range opts {
		opt(b)
	}
	table.Subscribe(&observer{b: b})
	return b
}

var (
	defaultBridge *Bridge
	defaultOnce   sync.Once
)

// Default returns the process-wide bridge.
func Default() *Bridge {
	defaultOnce.Do(func() {
		defaultBridge = New()
	})
	return defaultBridge
}

func (b *Bridge) log() *zap.Logger {
	if b.logger != nil {
		return b.logger
	}
	return Logger()
}

// Load opens the model at path and returns a handle to it.
func (b *Bridge) Load(path string) (resource.Handle, error) {
	if b.closed.Load() {
		return 0, errors.Closed("load")
	}

	m, err := b.loader(path)
	if err != nil {
		kind := errors.KindInvalidData
		if stderrors.Is(err, fs.ErrNotExist) {
			kind = errors.KindNotFound
		}
		b.log().Warn("model load failed", zap.String("path", path), zap.Error(err))
		return 0, errors.Load(path, kind, err)
	}
	if m == nil {
		return 0, errors.Load(path, errors.KindInvalidData, stderrors.New("loader returned no model"))
	}

	h := b.models.Insert(m)
	if h == 0 {
		m.Close()
		return 0, errors.Closed("load")
	}
	b.log().Info("model loaded",
		zap.String("path", path),
		zap.Uint64("handle", uint64(h)),
		zap.Int("dim", m.Dimension()))
	return h, nil
}

// Release closes the model behind h and invalidates the handle. Releasing
// handle 0 does nothing.
func (b *Bridge) Release(h resource.Handle) error {
	if h == 0 {
		return nil
	}
	_, err := b.models.Remove(h)
	switch {
	case err == nil:
		return nil
	case stderrors.Is(err, resource.ErrInvalidHandle):
		return errors.New(errors.PhaseRelease, errors.KindInvalidHandle).
			Op("release").Handle(uint64(h)).Detail("handle is not live").Build()
	case stderrors.Is(err, resource.ErrOutstandingBorrow):
		return errors.HandleBusy(uint64(h))
	default:
		// The handle is gone; the model failed to close cleanly.
		return errors.New(errors.PhaseRelease, errors.KindCollaborator).
			Op("release").Handle(uint64(h)).Cause(err).Build()
	}
}

// Predict returns the top PredictK labels for the text read from r.
func (b *Bridge) Predict(h resource.Handle, r io.Reader) ([]byte, error) {
	return b.query("predict", h, func(m embedding.Model) ([]byte, error) {
		scored, err := m.Predict(r, PredictK)
		if err != nil {
			return nil, err
		}
		return wire.Predictions(scored)
	})
}

// Analogy returns AnalogyCandidates words completing a:b :: c:?.
// k is accepted for compatibility and ignored.
func (b *Bridge) Analogy(h resource.Handle, a, bw, c string, k int32) ([]byte, error) {
	return b.query("analogy", h, func(m embedding.Model) ([]byte, error) {
		scored, err := m.Analogies(a, bw, c, AnalogyCandidates)
		if err != nil {
			return nil, err
		}
		return wire.Analogies(scored)
	})
}

// Neighbor returns the k nearest words to query. k is passed to the model
// unchanged.
func (b *Bridge) Neighbor(h resource.Handle, query string, k int32) ([]byte, error) {
	return b.query("neighbor", h, func(m embedding.Model) ([]byte, error) {
		scored, err := m.NearestNeighbors(query, k)
		if err != nil {
			return nil, err
		}
		return wire.Neighbors(scored)
	})
}

// Wordvec returns the embedding of query, one record per component.
func (b *Bridge) Wordvec(h resource.Handle, query string) ([]byte, error) {
	return b.query("wordvec", h, func(m embedding.Model) ([]byte, error) {
		vec, err := m.WordVector(query)
		if err != nil {
			return nil, err
		}
		return wire.Vector(vec)
	})
}

// Dimension returns the embedding dimension of the model behind h.
func (b *Bridge) Dimension(h resource.Handle) (int, error) {
	m, ok := b.models.Borrow(h)
	if !ok {
		return 0, errors.InvalidHandle("dimension", uint64(h))
	}
	defer b.models.ReturnBorrow(h)
	return m.Dimension(), nil
}

// Len returns the number of live handles.
func (b *Bridge) Len() int {
	return b.models.Len()
}

// Close releases every live handle. Later loads fail with KindClosed.
func (b *Bridge) Close() error {
	if b.closed.Swap(true) {
		return nil
	}
	return b.table.Close()
}

func (b *Bridge) query(op string, h resource.Handle, fn func(embedding.Model) ([]byte, error)) ([]byte, error) {
	m, ok := b.models.Borrow(h)
	if !ok {
		return nil, errors.InvalidHandle(op, uint64(h))
	}
	defer b.models.ReturnBorrow(h)

	out, err := fn(m)
	if err != nil {
		var e *errors.Error
		if stderrors.As(err, &e) {
			return nil, err
		}
		b.log().Debug("query failed", zap.String("op", op), zap.Uint64("handle", uint64(h)), zap.Error(err))
		return nil, errors.Collaborator(op, uint64(h), err)
	}
	return out, nil
}

type observer struct {
	b *Bridge
}

func (o *observer) OnResourceEvent(e resource.Event) {
	switch e.Type {
	case resource.EventCreated, resource.EventDropped:
		o.b.log().Debug("handle "+e.Type.String(),
			zap.Uint64("handle", uint64(e.Handle)),
			zap.Uint32("slot", e.Handle.Slot()),
			zap.Uint32("generation", e.Handle.Generation()))
	}
}
