package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/wippyai/fasttext-bridge/bridge"
	"github.com/wippyai/fasttext-bridge/embedding/textvec"
	"github.com/wippyai/fasttext-bridge/internal/config"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to TOML config (default "+config.Path()+")")
		modelPath   = flag.String("model", "", "Path to .vec model (.gz, .zst, .lz4 accepted)")
		op          = flag.String("op", "", "Operation: predict, nn, analogies, wordvec, dim")
		query       = flag.String("query", "", "Query text; analogies take \"a b c\"")
		k           = flag.Int("k", 0, "Number of neighbours")
		workers     = flag.Int("workers", 0, "Batch workers, each with its own handle")
		useHNSW     = flag.Bool("hnsw", false, "Answer neighbour queries from an approximate HNSW index (faster, lower recall)")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "op":
			cfg.Query.Op = *op
		case "k":
			cfg.Query.K = *k
		case "workers":
			cfg.Query.Workers = *workers
		case "hnsw":
			cfg.Model.HNSW = *useHNSW
		}
	})
	if err := cfg.Validate(); err != nil {
		fatal(err)
	}

	path := *modelPath
	if path == "" {
		path = config.ResolveModel(cfg)
	}
	if path == "" {
		fmt.Fprintln(os.Stderr, "Usage: fasttext -model <file.vec> -op predict|nn|analogies|wordvec|dim -query <text> [-k N]")
		fmt.Fprintln(os.Stderr, "       fasttext -model <file.vec> -op nn < queries.txt   (one query per line)")
		fmt.Fprintln(os.Stderr, "       fasttext -model <file.vec> -i                     (interactive mode)")
		os.Exit(1)
	}

	logger, err := newLogger(config.ResolveLogLevel(cfg), cfg.Logging.Development)
	if err != nil {
		fatal(err)
	}
	defer logger.Sync()
	bridge.SetLogger(logger)

	var opts []textvec.Option
	if cfg.Model.HNSW {
		opts = append(opts, textvec.WithHNSW(cfg.Model.EfSearch))
	}
	b := bridge.New(bridge.WithLoader(textvec.Loader(opts...)), bridge.WithLogger(logger))
	defer b.Close()

	switch {
	case *interactive:
		err = runInteractive(b, path)
	case *query != "":
		err = runOnce(b, path, cfg.Query.Op, *query, int32(cfg.Query.K))
	case !term.IsTerminal(int(os.Stdin.Fd())):
		err = runBatch(context.Background(), b, batchConfig{
			path:    path,
			op:      cfg.Query.Op,
			k:       int32(cfg.Query.K),
			workers: cfg.Query.Workers,
		}, os.Stdin, os.Stdout)
	default:
		err = fmt.Errorf("no -query given and stdin is a terminal")
	}
	if err != nil {
		b.Close()
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func newLogger(level string, development bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

func runOnce(b *bridge.Bridge, path, op, query string, k int32) error {
	h, err := b.Load(path)
	if err != nil {
		return err
	}
	defer b.Release(h)

	out, err := runOp(b, h, op, query, k)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// opNames maps CLI operation names to bridge operations.
var opNames = map[string]string{
	"predict":   "predict",
	"nn":        "neighbor",
	"analogies": "analogy",
	"wordvec":   "wordvec",
	"dim":       "dimension",
}

func runOp(b *bridge.Bridge, h handle, op, query string, k int32) ([]byte, error) {
	name, ok := opNames[op]
	if !ok {
		return nil, fmt.Errorf("unknown operation %q", op)
	}
	switch name {
	case "predict", "wordvec":
		return b.Call(h, name, query)
	case "neighbor":
		return b.Call(h, name, strings.TrimSpace(query), k)
	case "analogy":
		words := strings.Fields(query)
		if len(words) != 3 {
			return nil, fmt.Errorf("analogies: want 3 words, got %d", len(words))
		}
		return b.Call(h, name, words[0], words[1], words[2], k)
	default:
		return b.Call(h, name)
	}
}
