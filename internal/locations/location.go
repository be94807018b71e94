// Package locations manages a user's addresses and keeps exactly one of them
// marked default.
//
// Every mutation runs inside a single transaction that first takes the
// owner's lock, so concurrent writers for the same owner are serialized and
// no reader ever sees zero or two defaults for an owner that has addresses.
// Writers for different owners never block each other.
package locations

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

var (
	ErrNotFound      = errors.New("location not found")
	ErrLimitExceeded = errors.New("location limit reached")
	ErrLastAddress   = errors.New("cannot delete the last location")
	ErrValidation    = errors.New("invalid location")
)

// Location is a postal address owned by a user.
type Location struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"-"`
	Country    string    `json:"country"`
	State      string    `json:"state"`
	District   string    `json:"district"`
	PostalCode string    `json:"postal_code"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Fields are the user-editable parts of a location.
type Fields struct {
	Country    string
	State      string
	District   string
	PostalCode string
}

// Update lists the fields a partial update may change. Nil means unchanged.
// The default flag is deliberately absent; use SetDefault.
type Update struct {
	Country    *string
	State      *string
	District   *string
	PostalCode *string
}

func (u Update) apply(l *Location) {
	if u.Country != nil {
		l.Country = *u.Country
	}
	if u.State != nil {
		l.State = *u.State
	}
	if u.District != nil {
		l.District = *u.District
	}
	if u.PostalCode != nil {
		l.PostalCode = *u.PostalCode
	}
}

// NormalizePostalCode strips every non-digit and requires 5 or 6 digits.
func NormalizePostalCode(raw string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)

	if len(digits) < 5 || len(digits) > 6 {
		return "", fmt.Errorf("%w: postal code must be 5 or 6 digits", ErrValidation)
	}
	return digits, nil
}

// normalize trims the text fields and validates the postal code.
func (f Fields) normalize() (Fields, error) {
	f.Country = strings.TrimSpace(f.Country)
	f.State = strings.TrimSpace(f.State)
	f.District = strings.TrimSpace(f.District)

	for _, field := range []struct{ name, v string }{
		{"country", f.Country},
		{"state", f.State},
		{"district", f.District},
	} {
		name, v := field.name, field.v
		if v == "" {
			return f, fmt.Errorf("%w: %s is required", ErrValidation, name)
		}
		if len(v) > 100 {
			return f, fmt.Errorf("%w: %s is too long", ErrValidation, name)
		}
		if strings.IndexFunc(v, unicode.IsControl) >= 0 {
			return f, fmt.Errorf("%w: %s contains invalid characters", ErrValidation, name)
		}
	}

	code, err := NormalizePostalCode(f.PostalCode)
	if err != nil {
		return f, err
	}
	f.PostalCode = code
	return f, nil
}

func fieldsOf(l *Location) Fields {
	return Fields{Country: l.Country, State: l.State, District: l.District, PostalCode: l.PostalCode}
}
