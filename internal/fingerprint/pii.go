package fingerprint

import (
	"encoding/json"
	"fmt"

	"github.com/raphaelgruber/matchlight-go/internal/client"
)

// PIIFields holds the PII values of one record. Empty fields are omitted
// from the payload entirely.
type PIIFields struct {
	FirstName  string
	MiddleName string
	LastName   string
	Email      string
	SSN        string
	Address    string
	City       string
	State      string
	Zipcode    string
	Phone      string
}

// PIIPayload holds the fingerprint sets for each populated field group,
// keyed as the record upload endpoint expects them.
type PIIPayload struct {
	Name          [][]string `json:"name_fingerprints,omitempty"`
	Email         [][]string `json:"email_fingerprints,omitempty"`
	SSN           [][]string `json:"ssn_fingerprints,omitempty"`
	StreetAddress [][]string `json:"street_address_fingerprints,omitempty"`
	CityStateZip  [][]string `json:"city_state_zip_fingerprints,omitempty"`
	Phone         [][]string `json:"phone_fingerprints,omitempty"`
}

// PII fingerprints every populated field group of f.
func (d *Dispatcher) PII(f PIIFields) (*PIIPayload, error) {
	var (
		p   PIIPayload
		err error
	)

	if f.FirstName != "" || f.MiddleName != "" || f.LastName != "" {
		if p.Name, err = d.Name(f.FirstName, f.MiddleName, f.LastName); err != nil {
			return nil, err
		}
	}
	if f.Email != "" {
		set, err := d.Email(f.Email)
		if err != nil {
			return nil, err
		}
		p.Email = [][]string{set}
	}
	if f.SSN != "" {
		set, err := d.SSN(f.SSN)
		if err != nil {
			return nil, err
		}
		p.SSN = [][]string{set}
	}
	if f.Address != "" {
		if p.StreetAddress, err = d.Address(f.Address); err != nil {
			return nil, err
		}
	}
	if f.City != "" || f.State != "" || f.Zipcode != "" {
		if p.CityStateZip, err = d.CityStateZip(f.City, f.State, f.Zipcode); err != nil {
			return nil, err
		}
	}
	if f.Phone != "" {
		set, err := d.Phone(f.Phone)
		if err != nil {
			return nil, err
		}
		p.Phone = [][]string{set}
	}

	return &p, nil
}

// Name returns one fingerprint set per name variant. At least one part
// must be non-empty.
func (d *Dispatcher) Name(first, middle, last string) ([][]string, error) {
	if first == "" && middle == "" && last == "" {
		return nil, &client.ValidationError{Msg: "name requires a first, middle or last name"}
	}
	return d.variants(AssetName, first, middle, last)
}

// Address returns one fingerprint set per street address variant.
func (d *Dispatcher) Address(street string) ([][]string, error) {
	return d.variants(AssetAddress, street)
}

// CityStateZip returns one fingerprint set per variant. At least one
// component must be non-empty.
func (d *Dispatcher) CityStateZip(city, state, zipcode string) ([][]string, error) {
	if city == "" && state == "" && zipcode == "" {
		return nil, &client.ValidationError{Msg: "city/state/zip requires at least one component"}
	}
	return d.variants(AssetCityStateZip, city, state, zipcode)
}

// Email returns the fingerprint set for an email address.
func (d *Dispatcher) Email(email string) ([]string, error) {
	return d.single(AssetEmail, email)
}

// SSN returns the fingerprint set for a social security number.
func (d *Dispatcher) SSN(ssn string) ([]string, error) {
	return d.single(AssetSSN, ssn)
}

// Phone returns the fingerprint set for a phone number.
func (d *Dispatcher) Phone(phone string) ([]string, error) {
	return d.single(AssetPhone, phone)
}

func (d *Dispatcher) single(kind AssetKind, value string) ([]string, error) {
	sets, err := d.variants(kind, value)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("fingerprint %s: primitive returned no assets", kind)
	}
	return sets[0], nil
}

func (d *Dispatcher) variants(kind AssetKind, fields ...string) ([][]string, error) {
	raw, err := d.prim.Assets(kind, fields...)
	if err != nil {
		return nil, fmt.Errorf("fingerprint %s: %w", kind, err)
	}

	var assets []struct {
		Fingerprints []any `json:"fingerprints"`
	}
	if err := json.Unmarshal(raw, &assets); err != nil {
		return nil, fmt.Errorf("decode %s assets: %w", kind, err)
	}

	sets := make([][]string, 0, len(assets))
	for _, a := range assets {
		set, err := Flat(a.Fingerprints)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}
