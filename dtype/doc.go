// Package dtype describes the shape of stored values and validates their
// byte layout before any data is decoded.
//
// A [Type] is one of a closed set of variants:
//
//	Variant       | Stored as
//	--------------|----------------------------------------------
//	Atomic        | integer or IEEE float of 1, 2, 4 or 8 bytes
//	FixedString   | Width bytes, padded with NULs or spaces
//	VarString     | an indirect handle resolved by the storage layer
//	FixedArray    | product(Dims) contiguous Base elements, row-major
//	Record        | named members at fixed offsets inside Size bytes
//	Unsupported   | a storage class with no value representation
//
// Descriptors are immutable once built and may be shared by concurrent
// decoders.
//
// # Layout Resolution
//
// [Validate] checks a descriptor tree once, up front, so decoding can index
// buffers without re-checking offsets:
//
//	if err := dtype.Validate(t); err != nil {
//		return err // h5err.KindInvalidLayout, KindRankExceeded, ...
//	}
//
// [ResolveNativeKind] maps a stored atomic encoding to the encoding used
// in the value tree. For DAP2 targets a signed 8-bit integer widens to a
// signed 16-bit one, since DAP2 has no Int8.
package dtype
