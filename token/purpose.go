package token

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownPurpose is returned when a purpose tag is not one of the known kinds.
var ErrUnknownPurpose = errors.New("unknown token purpose")

// Purpose tags what a token may be used for. A token is only accepted by
// the endpoint whose expected purpose equals its own.
type Purpose uint8

const (
	purposeUnknown Purpose = iota
	// PurposeAccess authorizes API requests.
	PurposeAccess
	// PurposeVerification proves control of an email address.
	PurposeVerification
	// PurposeReset authorizes one password change.
	PurposeReset
)

var purposeNames = [...]string{
	purposeUnknown:      "unknown",
	PurposeAccess:       "access",
	PurposeVerification: "verification",
	PurposeReset:        "reset",
}

// Purposes lists every valid purpose.
func Purposes() []Purpose {
	return []Purpose{PurposeAccess, PurposeVerification, PurposeReset}
}

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p >= PurposeAccess && p <= PurposeReset
}

func (p Purpose) String() string {
	if int(p) < len(purposeNames) {
		return purposeNames[p]
	}
	return fmt.Sprintf("purpose(%d)", uint8(p))
}

// ParsePurpose maps a purpose name back to its tag.
func ParsePurpose(s string) (Purpose, error) {
	for _, p := range Purposes() {
		if purposeNames[p] == s {
			return p, nil
		}
	}
	return purposeUnknown, fmt.Errorf("%w: %q", ErrUnknownPurpose, s)
}

// MarshalJSON encodes the purpose by name so tokens stay readable.
func (p Purpose) MarshalJSON() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPurpose, uint8(p))
	}
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a purpose name. Unknown names decode to the zero
// purpose, which [Purpose.Valid] rejects.
func (p *Purpose) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParsePurpose(s)
	if err != nil {
		*p = purposeUnknown
		return nil
	}
	*p = parsed
	return nil
}
