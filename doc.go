// Package fasttext is a Go client for fastText-style embedding models.
//
// A Model wraps a handle in the process-wide bridge. Every query goes
// through the same JSON payloads the C shared library and the WASM host
// return, so results decoded here match what foreign callers see.
//
//	m, err := fasttext.Open("wiki.en.vec.gz")
//	if err != nil {
//		return err
//	}
//	defer m.Close()
//
//	preds, err := m.Predict("which baking dish is best")
//	nn, err := m.Neighbor("king", 10)
//	sim, err := m.CosineSimilarity("king", "queen")
//
// # Packages
//
//	fasttext/            Go client (this package)
//	├── bridge/          handle table and query operations
//	├── wire/            JSON result encoding
//	├── embedding/       model interface and the .vec reference model
//	├── resource/        generation-checked handle table
//	├── errors/          structured error types
//	├── wasmhost/        wazero host module for WASM guests
//	└── cmd/
//	    ├── libfasttext/ C shared library
//	    └── fasttext/    command line tool
package fasttext
