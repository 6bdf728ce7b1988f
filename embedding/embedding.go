// Package embedding defines the query interface of the embedding-model
// collaborator. The bridge treats a Model as a black box: it never sees
// vectors beyond what WordVector returns and never re-ranks results.
package embedding

import "io"

// Scored is one ranked candidate returned by the collaborator.
// For Predict the score is a log-probability; for neighbour and analogy
// queries it is a cosine similarity.
type Scored struct {
	Label string
	Score float32
}

// Model is a loaded embedding / classification model.
//
// Result slices are ordered by the collaborator (best first) and must be
// passed on unchanged.
type Model interface {
	// Predict reads query text from r and returns up to k labels.
	Predict(r io.Reader, k int32) ([]Scored, error)

	// NearestNeighbors returns up to k vocabulary words closest to word.
	NearestNeighbors(word string, k int32) ([]Scored, error)

	// Analogies returns up to k words completing "a is to b as c is to ?".
	Analogies(a, b, c string, k int32) ([]Scored, error)

	// WordVector returns the embedding of word, Dimension() components long.
	WordVector(word string) ([]float32, error)

	// Dimension returns the embedding dimension.
	Dimension() int

	// Close releases the model. It is called exactly once.
	Close() error
}

// Loader opens the model stored at path.
type Loader func(path string) (Model, error)
