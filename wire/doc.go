// Package wire encodes query results as the JSON payloads returned across
// the C and WASM boundaries.
//
// Every payload is a JSON array of flat objects:
//
//	predict          [{"index":0,"label":"__label__x","probability":0.71}, ...]
//	neighbor/analogy [{"index":0,"name":"queen","probability":0.86}, ...]
//	word vector      [{"probability":0.9}, {"probability":0.1}, ...]
//
// Records keep the collaborator's order. Keys inside a record are sorted.
// Non-finite numbers are written as null so every payload parses.
package wire
