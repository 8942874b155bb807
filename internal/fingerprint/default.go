//go:build !libfp || !cgo

package fingerprint

// Default returns the native primitive. This build has none compiled in.
func Default() (Primitive, error) {
	return nil, ErrUnavailable
}
