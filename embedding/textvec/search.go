package textvec

import (
	"sort"

	"github.com/viterin/vek/vek32"

	"github.com/wippyai/fasttext-bridge/embedding"
)

type candidate struct {
	index int
	score float32
}

// search ranks vocabulary words by cosine similarity to query, skipping
// banned words. Ties keep vocabulary order.
func (m *Model) search(query []float32, k int, banned map[string]bool) []embedding.Scored {
	if k <= 0 || len(m.words) == 0 {
		return []embedding.Scored{}
	}

	qnorm := vek32.Norm(query)
	zero := qnorm < normEpsilon
	if zero {
		qnorm = 1
	}

	var cands []candidate
	if m.graph != nil && m.graph.Len() > 0 && !zero {
		cands = m.graphCandidates(query, k+len(banned), banned)
	}
	if len(cands) == 0 {
		cands = make([]candidate, 0, len(m.words))
		for i := range m.words {
			if banned[m.words[i]] {
				continue
			}
			cands = append(cands, candidate{index: i})
		}
	}

	for i := range cands {
		cands[i].score = vek32.Dot(m.normed[cands[i].index], query) / qnorm
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].index < cands[j].index
	})
	if k < len(cands) {
		cands = cands[:k]
	}

	out := make([]embedding.Scored, len(cands))
	for i, c := range cands {
		out[i] = embedding.Scored{Label: m.words[c.index], Score: c.score}
	}
	return out
}

// graphCandidates returns approximate neighbours of query from the HNSW
// graph, asking for at least EfSearch nodes. Scores are filled in by the
// caller.
func (m *Model) graphCandidates(query []float32, n int, banned map[string]bool) []candidate {
	nodes := m.graph.Search(query, max(n, m.graph.EfSearch))
	cands := make([]candidate, 0, len(nodes))
	for _, node := range nodes {
		if banned[m.words[node.Key]] {
			continue
		}
		cands = append(cands, candidate{index: node.Key})
	}
	return cands
}
