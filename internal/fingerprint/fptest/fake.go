// Package fptest provides a deterministic in-memory fingerprint primitive
// for tests.
package fptest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/raphaelgruber/matchlight-go/internal/fingerprint"
)

// Call records one invocation of the fake.
type Call struct {
	Content []byte
	Mode    fingerprint.Mode
	Opts    fingerprint.Options
	Kind    fingerprint.AssetKind
	Fields  []string
}

// Fake is a Primitive that hashes with SHA-256. Content shorter than
// MinLength yields a *fingerprint.PaddingError. Variant kinds return
// Variants assets (default 2), single kinds always one.
type Fake struct {
	MinLength int
	Variants  int
	// Nested makes every output contain a list of lists.
	Nested bool

	mu    sync.Mutex
	calls []Call
}

var _ fingerprint.Primitive = (*Fake)(nil)

// Token returns the token the fake derives for s.
func Token(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Calls returns the recorded invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Fingerprint implements fingerprint.Primitive.
func (f *Fake) Fingerprint(content []byte, mode fingerprint.Mode, opts fingerprint.Options) (string, error) {
	f.record(Call{Content: content, Mode: mode, Opts: opts})

	if len(content) < f.MinLength {
		return "", &fingerprint.PaddingError{Data: string(content)}
	}
	tokens := []string{Token(string(content)), Token(string(content) + "#1")}
	if opts&fingerprint.OptRaw != 0 {
		return strings.Join(tokens, ""), nil
	}

	var fps any = tokens
	if f.Nested {
		fps = []any{tokens}
	}
	out, err := json.Marshal(map[string]any{"data": map[string]any{"fingerprints": fps}})
	return string(out), err
}

// Assets implements fingerprint.Primitive.
func (f *Fake) Assets(kind fingerprint.AssetKind, fields ...string) ([]byte, error) {
	f.record(Call{Kind: kind, Fields: append([]string(nil), fields...)})

	if len(fields) != kind.Arity() {
		return nil, fmt.Errorf("asset kind %q takes %d fields, got %d", kind, kind.Arity(), len(fields))
	}

	n := 1
	switch kind {
	case fingerprint.AssetName, fingerprint.AssetAddress, fingerprint.AssetCityStateZip:
		n = f.Variants
		if n == 0 {
			n = 2
		}
	}

	assets := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		tok := AssetToken(kind, i, fields...)
		var fps any = []string{tok}
		if f.Nested {
			fps = []any{[]string{tok}}
		}
		assets = append(assets, map[string]any{"fingerprints": fps})
	}
	return json.Marshal(assets)
}

// AssetToken returns the token the fake derives for variant i of kind.
func AssetToken(kind fingerprint.AssetKind, i int, fields ...string) string {
	return Token(fmt.Sprintf("%s:%d:%s", kind, i, strings.Join(fields, "|")))
}

func (f *Fake) record(c Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}
