// Package fingerprint turns content and PII fields into the fingerprint
// sets understood by the Matchlight API.
//
// The hashing itself is done by a Primitive, normally the native libfp
// library; this package only decides how to invoke it and how to shape its
// output into request payloads.
package fingerprint

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/raphaelgruber/matchlight-go/internal/client"
)

// Mode selects how the primitive normalizes content before hashing.
type Mode int

const (
	ModeText   Mode = 0
	ModeCode   Mode = 1
	ModeDigits Mode = 2
)

func (m Mode) String() string {
	switch m {
	case ModeText:
		return "text"
	case ModeCode:
		return "code"
	case ModeDigits:
		return "digits"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Options is the primitive's option bitmask.
type Options int

const (
	OptBoolean        Options = 1 << iota // presence only; implies OptTiled
	OptRaw                                // decoded fixed-width tokens instead of an encoded blob
	OptTiled                              // sliding window n-gram tiling
	OptStorableNgrams                     // default unless OptRaw
	OptParseOnly
)

// HashLength is the byte length of one fingerprint token. Decoded tokens
// are hex encoded, so twice as many characters.
const HashLength = 32

// ErrUnavailable is returned when no native primitive was compiled in.
var ErrUnavailable = errors.New("native fingerprint library not available (build with -tags libfp)")

// PaddingError is reported by the primitive when content is too short to tile.
type PaddingError struct {
	Data string
}

func (e *PaddingError) Error() string {
	return "unable to fingerprint chunk: " + e.Data
}

// AssetKind names a PII field group understood by the primitive.
type AssetKind string

const (
	AssetName         AssetKind = "name"
	AssetAddress      AssetKind = "address"
	AssetCityStateZip AssetKind = "city_state_zip"
	AssetEmail        AssetKind = "email"
	AssetSSN          AssetKind = "ssn"
	AssetPhone        AssetKind = "phone"
)

// Arity is the number of field values the primitive expects for the kind.
func (k AssetKind) Arity() int {
	switch k {
	case AssetName, AssetCityStateZip:
		return 3
	case AssetAddress, AssetEmail, AssetSSN, AssetPhone:
		return 1
	default:
		return 0
	}
}

// Primitive is the opaque fingerprinting function.
type Primitive interface {
	// Fingerprint hashes content. Without OptRaw it returns a JSON document
	// carrying data.fingerprints; with OptRaw it returns the tokens
	// concatenated as hex. A *PaddingError signals content too short to tile.
	Fingerprint(content []byte, mode Mode, opts Options) (string, error)

	// Assets returns the JSON asset list for one PII field group. Each asset
	// carries a "fingerprints" token list.
	Assets(kind AssetKind, fields ...string) ([]byte, error)
}

// Result is the output of one content fingerprinting call.
type Result struct {
	Encoded string   // primitive output, set unless OptRaw
	Tokens  []string // decoded tokens, set with OptRaw
}

// Dispatcher maps semantic inputs onto Primitive calls. It holds no state
// besides the primitive and is safe for concurrent use if the primitive is.
type Dispatcher struct {
	prim Primitive
}

// NewDispatcher creates a Dispatcher around prim.
func NewDispatcher(prim Primitive) *Dispatcher {
	return &Dispatcher{prim: prim}
}

// Fingerprint hashes content with the given mode and options.
// OptBoolean together with OptRaw is rejected before the primitive runs.
func (d *Dispatcher) Fingerprint(content []byte, mode Mode, opts Options) (*Result, error) {
	if opts&OptBoolean != 0 && opts&OptRaw != 0 {
		return nil, &client.ValidationError{Msg: "boolean and raw fingerprint options are mutually exclusive"}
	}
	if opts&OptBoolean != 0 {
		opts |= OptTiled
	}
	raw := opts&OptRaw != 0
	if !raw {
		opts |= OptStorableNgrams
	}

	out, err := d.prim.Fingerprint(content, mode, opts)
	if err != nil {
		return nil, fmt.Errorf("fingerprint %s content: %w", mode, err)
	}
	if raw {
		return &Result{Tokens: DecodeRaw(out)}, nil
	}
	return &Result{Encoded: out}, nil
}

// Tokens fingerprints content with tiling, the mode used for search queries
// and document or source code records, and returns the token list.
func (d *Dispatcher) Tokens(content []byte, mode Mode) ([]string, error) {
	res, err := d.Fingerprint(content, mode, OptTiled)
	if err != nil {
		return nil, err
	}

	var doc struct {
		Data struct {
			Fingerprints []any `json:"fingerprints"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(res.Encoded), &doc); err != nil {
		return nil, fmt.Errorf("decode fingerprint output: %w", err)
	}
	return Flat(doc.Data.Fingerprints)
}

// DecodeRaw splits concatenated hex tokens into HashLength-byte tokens.
// A trailing partial token is kept as is.
func DecodeRaw(s string) []string {
	width := HashLength * 2
	tokens := make([]string, 0, (len(s)+width-1)/width)
	for i := 0; i < len(s); i += width {
		end := min(i+width, len(s))
		tokens = append(tokens, s[i:end])
	}
	return tokens
}

// Flat converts a decoded fingerprint list into tokens. A nested list means
// the derivation went wrong upstream and is rejected.
func Flat(values []any) ([]string, error) {
	tokens := make([]string, 0, len(values))
	for i, v := range values {
		switch tok := v.(type) {
		case string:
			tokens = append(tokens, tok)
		case []any:
			return nil, &client.ValidationError{Msg: "fingerprinter failed: list of lists"}
		default:
			return nil, &client.ValidationError{Msg: fmt.Sprintf("fingerprinter failed: token %d has type %T", i, v)}
		}
	}
	return tokens, nil
}
