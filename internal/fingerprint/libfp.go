//go:build libfp && cgo

package fingerprint

/*
#cgo LDFLAGS: -lfpl64
#include <stdlib.h>

typedef struct {
	int err;
	char *data;
} fp_result;

extern fp_result *fingerprint(char *content, int mode, int opts);
extern char *assets_from_name(char *tag, char *id, char *first, char *middle, char *last);
extern char *assets_from_address(char *tag, char *id, char *street);
extern char *assets_from_city_state_zip(char *tag, char *id, char *city, char *state, char *zipcode);
extern char *assets_from_email_address(char *tag, char *id, char *email);
extern char *assets_from_ssn(char *tag, char *id, char *ssn);
extern char *assets_from_phone_number(char *tag, char *id, char *phone);
*/
import "C"

import (
	"fmt"
	"unsafe"
)

// libfp error code for content too short to tile.
const errPadding = 1

// Placeholder owner tag and id passed to the asset functions; the returned
// fingerprints do not depend on them.
const (
	assetTag = "temporary"
	assetID  = "0"
)

// Native calls the libfp shared library through cgo.
type Native struct{}

// Compile-time check that Native implements Primitive.
var _ Primitive = Native{}

// Default returns the native primitive.
func Default() (Primitive, error) {
	return Native{}, nil
}

// Fingerprint implements Primitive.
func (Native) Fingerprint(content []byte, mode Mode, opts Options) (string, error) {
	buf := C.CBytes(append(append([]byte(nil), content...), 0))
	defer C.free(buf)

	res := C.fingerprint((*C.char)(buf), C.int(mode), C.int(opts))
	if res == nil {
		return "", fmt.Errorf("libfp returned no result")
	}
	data := C.GoString(res.data)
	if int(res.err) == errPadding {
		return "", &PaddingError{Data: data}
	}
	return data, nil
}

// Assets implements Primitive.
func (Native) Assets(kind AssetKind, fields ...string) ([]byte, error) {
	if len(fields) != kind.Arity() {
		return nil, fmt.Errorf("asset kind %q takes %d fields, got %d", kind, kind.Arity(), len(fields))
	}

	args := make([]*C.char, 0, len(fields)+2)
	for _, s := range append([]string{assetTag, assetID}, fields...) {
		cs := C.CString(s)
		defer C.free(unsafe.Pointer(cs))
		args = append(args, cs)
	}

	var out *C.char
	switch kind {
	case AssetName:
		out = C.assets_from_name(args[0], args[1], args[2], args[3], args[4])
	case AssetAddress:
		out = C.assets_from_address(args[0], args[1], args[2])
	case AssetCityStateZip:
		out = C.assets_from_city_state_zip(args[0], args[1], args[2], args[3], args[4])
	case AssetEmail:
		out = C.assets_from_email_address(args[0], args[1], args[2])
	case AssetSSN:
		out = C.assets_from_ssn(args[0], args[1], args[2])
	case AssetPhone:
		out = C.assets_from_phone_number(args[0], args[1], args[2])
	}
	if out == nil {
		return nil, fmt.Errorf("libfp returned no assets for %s", kind)
	}
	return []byte(C.GoString(out)), nil
}
