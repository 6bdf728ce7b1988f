package wasmhost

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/zap"

	"github.com/wippyai/fasttext-bridge/bridge"
	"github.com/wippyai/fasttext-bridge/errors"
	"github.com/wippyai/fasttext-bridge/internal/view"
	"github.com/wippyai/fasttext-bridge/resource"
)

// ModuleName is the import module name guests link against.
const ModuleName = "fasttext"

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

// Config configures a Host.
type Config struct {
	// Logger receives failures reported to guests. Defaults to a no-op logger.
	Logger *zap.Logger

	// ModelRoot, when set, confines load paths to this directory. Guest
	// paths are then resolved relative to it and may not escape it.
	ModelRoot string
}

// Host serves bridge operations to guests.
type Host struct {
	bridge *bridge.Bridge
	log    *zap.Logger
	root   string

	mu      sync.Mutex
	lastErr map[api.Module]string
}

// New returns a Host backed by b.
func New(b *bridge.Bridge, cfg Config) *Host {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Host{
		bridge:  b,
		log:     log,
		root:    cfg.ModelRoot,
		lastErr: make(map[api.Module]string),
	}
}

// Instantiate registers the host module in r.
func (h *Host) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	fns := []struct {
		fn      api.GoModuleFunc
		name    string
		params  []api.ValueType
		results []api.ValueType
	}{
		{h.load, "load", []api.ValueType{i32, i32}, []api.ValueType{i64}},
		{h.release, "release", []api.ValueType{i64}, nil},
		{h.predict, "predict", []api.ValueType{i64, i32, i32}, []api.ValueType{i32}},
		{h.analogy, "analogy", []api.ValueType{i64, i32, i32, i32, i32, i32, i32, i32}, []api.ValueType{i32}},
		{h.neighbor, "neighbor", []api.ValueType{i64, i32, i32, i32}, []api.ValueType{i32}},
		{h.wordvec, "wordvec", []api.ValueType{i64, i32, i32}, []api.ValueType{i32}},
		{h.dimension, "dimension", []api.ValueType{i64}, []api.ValueType{i32}},
		{h.lastError, "last_error", nil, []api.ValueType{i32}},
	}

	builder := r.NewHostModuleBuilder(ModuleName)
	for _, f := range fns {
		builder = builder.NewFunctionBuilder().
			WithGoModuleFunction(f.fn, f.params, f.results).
			WithName(f.name).
			Export(f.name)
	}
	return builder.Instantiate(ctx)
}

// InstantiateGuest instantiates a guest module that imports the host
// module. The guest's last error is dropped when the guest is closed.
func (h *Host) InstantiateGuest(ctx context.Context, r wazero.Runtime, wasm []byte, cfg wazero.ModuleConfig) (api.Module, error) {
	var mod api.Module
	ctx = experimental.WithCloseNotifier(ctx, experimental.CloseNotifyFunc(func(context.Context, uint32) {
		h.Forget(mod)
	}))
	mod, err := r.InstantiateWithConfig(ctx, wasm, cfg)
	if err != nil {
		return nil, err
	}
	return mod, nil
}

// LastError returns the failure of the guest's most recent call, or "" if
// that call succeeded. Errors are tracked per module instance.
func (h *Host) LastError(mod api.Module) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr[mod]
}

// Forget drops the error state kept for mod. Guests not created with
// InstantiateGuest should be forgotten when closed.
func (h *Host) Forget(mod api.Module) {
	if mod == nil {
		return
	}
	h.mu.Lock()
	delete(h.lastErr, mod)
	h.mu.Unlock()
}

func (h *Host) fail(mod api.Module, op string, err error) {
	h.log.Debug("guest call failed",
		zap.String("module", mod.Name()),
		zap.String("op", op),
		zap.Error(err))

	h.mu.Lock()
	h.lastErr[mod] = err.Error()
	h.mu.Unlock()
}

func (h *Host) succeed(mod api.Module) {
	h.Forget(mod)
}

func (h *Host) resolve(path string) (string, error) {
	if h.root == "" {
		return path, nil
	}
	if !filepath.IsLocal(path) {
		return "", errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Op("load").Value(path).Detail("path %q escapes the model root", path).Build()
	}
	return filepath.Join(h.root, path), nil
}

func (h *Host) load(_ context.Context, mod api.Module, stack []uint64) {
	path, err := h.readString(mod, "load", stack[0:2])
	if err == nil {
		path, err = h.resolve(path)
	}
	var handle resource.Handle
	if err == nil {
		handle, err = h.bridge.Load(path)
	}
	if err != nil {
		h.fail(mod, "load", err)
		stack[0] = 0
		return
	}
	h.succeed(mod)
	stack[0] = uint64(handle)
}

func (h *Host) release(_ context.Context, mod api.Module, stack []uint64) {
	if err := h.bridge.Release(resource.Handle(stack[0])); err != nil {
		h.fail(mod, "release", err)
		return
	}
	h.succeed(mod)
}

func (h *Host) predict(ctx context.Context, mod api.Module, stack []uint64) {
	handle := resource.Handle(stack[0])
	h.respond(ctx, mod, "predict", stack, func() ([]byte, error) {
		mem, err := memoryOf(mod, "predict")
		if err != nil {
			return nil, err
		}
		data, err := mem.view(api.DecodeU32(stack[1]), api.DecodeU32(stack[2]))
		if err != nil {
			return nil, err
		}
		r := view.New(data)
		defer r.Release()
		return h.bridge.Predict(handle, r)
	})
}

func (h *Host) analogy(ctx context.Context, mod api.Module, stack []uint64) {
	handle := resource.Handle(stack[0])
	k := api.DecodeI32(stack[7])
	h.respond(ctx, mod, "analogy", stack, func() ([]byte, error) {
		var words [3]string
		for i := range words {
			w, err := h.readString(mod, "analogy", stack[1+2*i:3+2*i])
			if err != nil {
				return nil, err
			}
			words[i] = w
		}
		return h.bridge.Analogy(handle, words[0], words[1], words[2], k)
	})
}

func (h *Host) neighbor(ctx context.Context, mod api.Module, stack []uint64) {
	handle := resource.Handle(stack[0])
	k := api.DecodeI32(stack[3])
	h.respond(ctx, mod, "neighbor", stack, func() ([]byte, error) {
		q, err := h.readString(mod, "neighbor", stack[1:3])
		if err != nil {
			return nil, err
		}
		return h.bridge.Neighbor(handle, q, k)
	})
}

func (h *Host) wordvec(ctx context.Context, mod api.Module, stack []uint64) {
	handle := resource.Handle(stack[0])
	h.respond(ctx, mod, "wordvec", stack, func() ([]byte, error) {
		q, err := h.readString(mod, "wordvec", stack[1:3])
		if err != nil {
			return nil, err
		}
		return h.bridge.Wordvec(handle, q)
	})
}

func (h *Host) dimension(_ context.Context, mod api.Module, stack []uint64) {
	d, err := h.bridge.Dimension(resource.Handle(stack[0]))
	if err != nil {
		h.fail(mod, "dimension", err)
		stack[0] = 0
		return
	}
	h.succeed(mod)
	stack[0] = api.EncodeI32(int32(d))
}

func (h *Host) lastError(ctx context.Context, mod api.Module, stack []uint64) {
	stack[0] = 0
	msg := h.LastError(mod)
	if msg == "" {
		return
	}
	ptr, err := writeResult(ctx, mod, "last_error", []byte(msg))
	if err != nil {
		h.log.Warn("last_error: cannot write message", zap.Error(err))
		return
	}
	stack[0] = api.EncodeU32(ptr)
}

// respond runs query and stores its payload in guest memory, leaving the
// buffer address (or 0) in stack[0].
func (h *Host) respond(ctx context.Context, mod api.Module, op string, stack []uint64, query func() ([]byte, error)) {
	payload, err := query()
	var ptr uint32
	if err == nil {
		ptr, err = writeResult(ctx, mod, op, payload)
	}
	if err != nil {
		h.fail(mod, op, err)
		stack[0] = 0
		return
	}
	h.succeed(mod)
	stack[0] = api.EncodeU32(ptr)
}

func (h *Host) readString(mod api.Module, op string, pair []uint64) (string, error) {
	mem, err := memoryOf(mod, op)
	if err != nil {
		return "", err
	}
	return mem.str(api.DecodeU32(pair[0]), api.DecodeU32(pair[1]))
}
