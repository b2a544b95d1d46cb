// Package h5dap reads variables from a storage backend into value trees
// for DAP2 and DAP4 responses.
//
// A Reader is long-lived and safe for concurrent use. Each top-level
// protocol request gets its own Request, which carries the request ID,
// a request-scoped logger and a cache of variable descriptions, and is
// discarded when the request ends:
//
//	r := h5dap.NewReader(store, h5dap.WithTarget(dtype.TargetDAP4))
//	req := r.NewRequest(ctx)
//	defer req.Close()
//
//	v, err := req.ReadConstraint("/grid/temperature", "[0:2:9][3]")
//
// Every read validates the path, the type descriptor and the hyperslab
// before any buffer is allocated, and releases every storage handle on
// return. If the returned error satisfies h5err.IsRelease, the value is
// complete and only cleanup failed.
package h5dap
