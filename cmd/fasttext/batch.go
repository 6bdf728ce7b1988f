package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/fasttext-bridge/bridge"
	"github.com/wippyai/fasttext-bridge/resource"
)

type handle = resource.Handle

type batchConfig struct {
	path    string
	op      string
	k       int32
	workers int
}

// runBatch answers one query per input line and writes one payload per
// line in input order. Each worker loads its own handle.
func runBatch(ctx context.Context, b *bridge.Bridge, cfg batchConfig, in io.Reader, out io.Writer) error {
	var lines []string
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read queries: %w", err)
	}
	if len(lines) == 0 {
		return nil
	}

	workers := min(max(cfg.workers, 1), len(lines))
	results := make([][]byte, len(lines))
	jobs := make(chan int)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range lines {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for w := range workers {
		g.Go(func() error {
			h, err := b.Load(cfg.path)
			if err != nil {
				return err
			}
			defer b.Release(h)

			for i := range jobs {
				payload, err := runOp(b, h, cfg.op, lines[i], cfg.k)
				if err != nil {
					return fmt.Errorf("line %d: %w", i+1, err)
				}
				results[i] = payload
			}
			bridge.Logger().Debug("batch worker done", zap.Int("worker", w))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	bw := bufio.NewWriter(out)
	for _, r := range results {
		bw.Write(r)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}
