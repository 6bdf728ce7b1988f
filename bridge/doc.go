// Package bridge exposes an embedding model through opaque handles and JSON
// payloads. It is the shared core behind the C shared library, the WASM
// host module and the Go client.
//
// A Bridge owns a handle table. Load inserts a model and returns its
// handle; Release removes it and closes the model. Query operations borrow
// the handle for the duration of the call, so a model is never closed
// underneath a running query: Release of a borrowed handle fails with
// KindHandleBusy.
//
// Handles carry a generation counter. A released handle stays invalid even
// after its slot is reused, and every operation on it fails with
// KindInvalidHandle.
//
// # Payloads
//
//	Predict   top PredictK labels, probabilities in [0, 1]
//	Neighbor  k nearest words, cosine similarity
//	Analogy   AnalogyCandidates words; the k argument is ignored
//	Wordvec   one record per vector component, no index
//
// See package wire for the record layout.
package bridge
