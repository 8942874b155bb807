package fingerprint_test

import (
	"encoding/json"
	"testing"

	"github.com/raphaelgruber/matchlight-go/internal/client"
	"github.com/raphaelgruber/matchlight-go/internal/fingerprint"
	"github.com/raphaelgruber/matchlight-go/internal/fingerprint/fptest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintOptionCombinations(t *testing.T) {
	flags := []fingerprint.Options{
		fingerprint.OptBoolean,
		fingerprint.OptRaw,
		fingerprint.OptTiled,
		fingerprint.OptStorableNgrams,
		fingerprint.OptParseOnly,
	}
	modes := []fingerprint.Mode{fingerprint.ModeText, fingerprint.ModeCode, fingerprint.ModeDigits}

	// Every subset of flags under every mode.
	for mask := 0; mask < 1<<len(flags); mask++ {
		var opts fingerprint.Options
		for i, f := range flags {
			if mask&(1<<i) != 0 {
				opts |= f
			}
		}
		for _, mode := range modes {
			fake := &fptest.Fake{}
			d := fingerprint.NewDispatcher(fake)

			res, err := d.Fingerprint([]byte("magic madness heaven sin"), mode, opts)

			forbidden := opts&fingerprint.OptBoolean != 0 && opts&fingerprint.OptRaw != 0
			if forbidden {
				var vErr *client.ValidationError
				require.ErrorAs(t, err, &vErr, "opts=%b mode=%s", opts, mode)
				assert.Empty(t, fake.Calls(), "primitive must not run for boolean|raw")
				continue
			}
			require.NoError(t, err, "opts=%b mode=%s", opts, mode)
			require.Len(t, fake.Calls(), 1)
			assert.Equal(t, mode, fake.Calls()[0].Mode)
			if opts&fingerprint.OptRaw != 0 {
				assert.Len(t, res.Tokens, 2)
				assert.Empty(t, res.Encoded)
			} else {
				assert.NotEmpty(t, res.Encoded)
				assert.Nil(t, res.Tokens)
			}
		}
	}
}

func TestFingerprintImpliedFlags(t *testing.T) {
	tests := []struct {
		name string
		in   fingerprint.Options
		want fingerprint.Options
	}{
		{"default adds storable ngrams", 0, fingerprint.OptStorableNgrams},
		{"tiled", fingerprint.OptTiled, fingerprint.OptTiled | fingerprint.OptStorableNgrams},
		{"boolean implies tiled", fingerprint.OptBoolean, fingerprint.OptBoolean | fingerprint.OptTiled | fingerprint.OptStorableNgrams},
		{"raw skips storable ngrams", fingerprint.OptRaw, fingerprint.OptRaw},
		{"parse only", fingerprint.OptParseOnly, fingerprint.OptParseOnly | fingerprint.OptStorableNgrams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fptest.Fake{}
			_, err := fingerprint.NewDispatcher(fake).Fingerprint([]byte("content"), fingerprint.ModeText, tt.in)
			require.NoError(t, err)
			require.Len(t, fake.Calls(), 1)
			assert.Equal(t, tt.want, fake.Calls()[0].Opts)
		})
	}
}

func TestFingerprintRawDecoding(t *testing.T) {
	fake := &fptest.Fake{}
	res, err := fingerprint.NewDispatcher(fake).Fingerprint([]byte("abc"), fingerprint.ModeText, fingerprint.OptRaw)
	require.NoError(t, err)
	assert.Equal(t, []string{fptest.Token("abc"), fptest.Token("abc#1")}, res.Tokens)
	for _, tok := range res.Tokens {
		assert.Len(t, tok, fingerprint.HashLength*2)
	}
}

func TestFingerprintPaddingError(t *testing.T) {
	fake := &fptest.Fake{MinLength: 10}
	_, err := fingerprint.NewDispatcher(fake).Fingerprint([]byte("short"), fingerprint.ModeText, fingerprint.OptTiled)

	var padErr *fingerprint.PaddingError
	require.ErrorAs(t, err, &padErr)
	assert.Equal(t, "short", padErr.Data)
}

func TestTokens(t *testing.T) {
	fake := &fptest.Fake{}
	tokens, err := fingerprint.NewDispatcher(fake).Tokens([]byte("source code"), fingerprint.ModeCode)
	require.NoError(t, err)
	assert.Equal(t, []string{fptest.Token("source code"), fptest.Token("source code#1")}, tokens)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, fingerprint.ModeCode, calls[0].Mode)
	assert.Equal(t, fingerprint.OptTiled|fingerprint.OptStorableNgrams, calls[0].Opts)
}

func TestTokensRejectsNested(t *testing.T) {
	fake := &fptest.Fake{Nested: true}
	_, err := fingerprint.NewDispatcher(fake).Tokens([]byte("text"), fingerprint.ModeText)
	var vErr *client.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Error(), "list of lists")
}

func TestDecodeRaw(t *testing.T) {
	a := fptest.Token("a")
	b := fptest.Token("b")
	assert.Equal(t, []string{a, b}, fingerprint.DecodeRaw(a+b))
	assert.Equal(t, []string{a, "ff"}, fingerprint.DecodeRaw(a+"ff"))
	assert.Empty(t, fingerprint.DecodeRaw(""))
}

func TestFlat(t *testing.T) {
	tokens, err := fingerprint.Flat([]any{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tokens)

	_, err = fingerprint.Flat([]any{"a", []any{"b"}})
	var vErr *client.ValidationError
	require.ErrorAs(t, err, &vErr)

	_, err = fingerprint.Flat([]any{1.0})
	require.ErrorAs(t, err, &vErr)
}

func TestDefaultWithoutNativeLibrary(t *testing.T) {
	prim, err := fingerprint.Default()
	if err != nil {
		assert.ErrorIs(t, err, fingerprint.ErrUnavailable)
		assert.Nil(t, prim)
		return
	}
	assert.NotNil(t, prim)
}

func TestPIIOmitsEmptyGroups(t *testing.T) {
	fake := &fptest.Fake{}
	p, err := fingerprint.NewDispatcher(fake).PII(fingerprint.PIIFields{
		Email: "familybird@terbiumlabs.com",
	})
	require.NoError(t, err)

	out, err := json.Marshal(p)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	assert.Len(t, m, 1)
	assert.Contains(t, m, "email_fingerprints")
	assert.Equal(t, [][]string{{fptest.AssetToken(fingerprint.AssetEmail, 0, "familybird@terbiumlabs.com")}}, p.Email)
}

func TestPIIAllGroups(t *testing.T) {
	fake := &fptest.Fake{Variants: 3}
	p, err := fingerprint.NewDispatcher(fake).PII(fingerprint.PIIFields{
		FirstName: "Bird",
		LastName:  "Feather",
		Email:     "familybird@terbiumlabs.com",
		SSN:       "000-00-0000",
		Address:   "1 Main St",
		Zipcode:   "21201",
		Phone:     "804-222-1111",
	})
	require.NoError(t, err)

	assert.Len(t, p.Name, 3, "one set per name variant")
	assert.Len(t, p.StreetAddress, 3)
	assert.Len(t, p.CityStateZip, 3)
	assert.Len(t, p.Email, 1)
	assert.Len(t, p.SSN, 1)
	assert.Len(t, p.Phone, 1)

	assert.Equal(t, fptest.AssetToken(fingerprint.AssetName, 0, "Bird", "", "Feather"), p.Name[0][0])
	assert.Equal(t, fptest.AssetToken(fingerprint.AssetCityStateZip, 2, "", "", "21201"), p.CityStateZip[2][0])
}

func TestNameRequiresAPart(t *testing.T) {
	fake := &fptest.Fake{}
	_, err := fingerprint.NewDispatcher(fake).Name("", "", "")
	var vErr *client.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, fake.Calls())
}

func TestCityStateZipRequiresAComponent(t *testing.T) {
	fake := &fptest.Fake{}
	_, err := fingerprint.NewDispatcher(fake).CityStateZip("", "", "")
	var vErr *client.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, fake.Calls())
}

func TestSingleKindsRejectNested(t *testing.T) {
	fake := &fptest.Fake{Nested: true}
	_, err := fingerprint.NewDispatcher(fake).Phone("804-222-1111")
	var vErr *client.ValidationError
	require.ErrorAs(t, err, &vErr)
}
