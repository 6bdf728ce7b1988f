// Package wasmhost exports the bridge to WebAssembly guests as a wazero host
// module named "fasttext".
//
// Strings are passed as (ptr, len) pairs in guest linear memory and handles
// as i64. Query results are NUL-terminated JSON written into memory the host
// obtains from the guest's exported cabi_realloc, so the guest owns and
// frees them with its own allocator:
//
//	load(path_ptr, path_len i32) -> i64
//	release(h i64)
//	predict(h i64, q_ptr, q_len i32) -> i32
//	analogy(h i64, a_ptr, a_len, b_ptr, b_len, c_ptr, c_len, k i32) -> i32
//	neighbor(h i64, q_ptr, q_len, k i32) -> i32
//	wordvec(h i64, q_ptr, q_len i32) -> i32
//	dimension(h i64) -> i32
//	last_error() -> i32
//
// Functions return 0 on failure. last_error then returns the message of the
// most recent failure for the calling module, or 0 if there was none.
package wasmhost
