// Package registry provides a generic thread-safe registry for values indexed by key.
//
// Unlike a plain map, a Registry refuses to overwrite: the first Add for a key
// wins and later ones return ErrDuplicateKey. Iteration (Keys, Range) follows
// insertion order, which makes anything built from a registry reproducible
// across runs of the same program.
//
// # Basic Usage
//
//	r := registry.New[string, int]()
//	if err := r.Add("one", 1); err != nil {
//	    return err
//	}
//
//	value, ok := r.Get("one")
//	if ok {
//	    fmt.Println(value) // Output: 1
//	}
//
// # Handler Tables
//
// Registries work well for dispatch tables keyed by a stable name:
//
//	handlers := registry.New[string, func([]byte) error]()
//	_ = handlers.Add("inventory", applyInventory)
//	_ = handlers.Add("progress", applyProgress)
//
//	if h, ok := handlers.Get(kind); ok {
//	    err = h(payload)
//	}
//
// # Thread Safety
//
// All Registry methods are safe for concurrent use. Range iterates over a
// snapshot, so Add may be called from inside the callback without affecting
// the iteration in progress.
package registry
