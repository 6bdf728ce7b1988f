package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/fasttext-bridge/bridge"
	"github.com/wippyai/fasttext-bridge/internal/testutil"
)

func TestRunOp(t *testing.T) {
	b := bridge.New()
	defer b.Close()
	h, err := b.Load(testutil.WriteFixture(t))
	require.NoError(t, err)

	tests := []struct {
		op    string
		query string
		want  int
	}{
		{"predict", testutil.PredictQuery, testutil.FixtureLabels},
		{"nn", " king ", 3},
		{"analogies", "king man woman", testutil.FixtureWords - 3},
		{"wordvec", "king", testutil.FixtureDim},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			out, err := runOp(b, h, tt.op, tt.query, 3)
			require.NoError(t, err)
			var recs []map[string]any
			require.NoError(t, json.Unmarshal(out, &recs))
			assert.Len(t, recs, tt.want)
		})
	}

	out, err := runOp(b, h, "dim", "", 0)
	require.NoError(t, err)
	assert.Equal(t, "4", string(out))

	_, err = runOp(b, h, "analogies", "king man", 3)
	assert.Error(t, err)
	_, err = runOp(b, h, "train", "x", 3)
	assert.Error(t, err)
}

func TestRunBatch(t *testing.T) {
	b := bridge.New()
	defer b.Close()

	queries := []string{"king", "paris", "football", "zebra", "queen", "berlin", "goal"}
	var out bytes.Buffer
	err := runBatch(context.Background(), b, batchConfig{
		path:    testutil.WriteFixture(t),
		op:      "nn",
		k:       1,
		workers: 3,
	}, strings.NewReader(strings.Join(queries, "\n")), &out)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, len(queries))

	var first []map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.Len(t, first, 1)
	assert.Equal(t, testutil.NeighborFirst, first[0]["name"], "results keep input order")

	assert.Zero(t, b.Len(), "workers release their handles")
}

func TestRunBatchErrors(t *testing.T) {
	b := bridge.New()
	defer b.Close()
	path := testutil.WriteFixture(t)

	var out bytes.Buffer
	err := runBatch(context.Background(), b, batchConfig{path: path, op: "analogies", workers: 2},
		strings.NewReader("king man woman\nonly two\n"), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Empty(t, out.String())

	err = runBatch(context.Background(), b, batchConfig{path: path + ".missing", op: "nn", workers: 1},
		strings.NewReader("king\n"), &out)
	assert.Error(t, err)

	err = runBatch(context.Background(), b, batchConfig{path: path, op: "nn", workers: 1},
		strings.NewReader(""), &out)
	assert.NoError(t, err)
	assert.Zero(t, b.Len())
}
