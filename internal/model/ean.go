package model

import (
	"errors"
	"fmt"
	"strings"
)

// EAN validation errors.
// ErrInvalidEAN is the parent of the specific errors so callers can match
// the whole family with errors.Is while still distinguishing the cause.
var (
	// ErrInvalidEAN is returned (wrapped) for any EAN validation failure.
	ErrInvalidEAN = errors.New("invalid EAN")
	// ErrEANNotDigits is returned when the identifier contains non-digit characters.
	ErrEANNotDigits = fmt.Errorf("%w: must contain only digits", ErrInvalidEAN)
	// ErrEANLength is returned when the identifier length is not 8, 13, or 14.
	ErrEANLength = fmt.Errorf("%w: length must be 8, 13, or 14 digits", ErrInvalidEAN)
	// ErrEANChecksum is returned when the check digit does not match.
	ErrEANChecksum = fmt.Errorf("%w: checksum mismatch", ErrInvalidEAN)
)

// EANFormat identifies the EAN variant by digit count.
type EANFormat int

const (
	// EANFormatUnknown indicates an unrecognized format.
	EANFormatUnknown EANFormat = 0
	// EANFormat8 is the short EAN-8 format.
	EANFormat8 EANFormat = 8
	// EANFormat13 is the standard retail EAN-13 format.
	EANFormat13 EANFormat = 13
	// EANFormat14 is the EAN-14 / GTIN-14 logistics format.
	EANFormat14 EANFormat = 14
)

// String returns the conventional name of the format.
func (f EANFormat) String() string {
	switch f {
	case EANFormat8:
		return "EAN-8"
	case EANFormat13:
		return "EAN-13"
	case EANFormat14:
		return "EAN-14"
	default:
		return "unknown"
	}
}

// EAN is an immutable value object representing a validated EAN barcode
// number. It can only be constructed through ParseEAN, so any EAN value
// held by the rest of the program is known to have a correct check digit.
type EAN struct {
	code   string
	format EANFormat
}

// ParseEAN validates a string as an EAN-8, EAN-13, or EAN-14 number.
// Surrounding whitespace is trimmed; everything else must be digits.
//
// The check digit is verified with the standard GS1 rule: data digits are
// weighted 3 and 1 alternating from the position adjacent to the check
// digit, and the check digit brings the weighted sum to a multiple of 10.
// The same rule covers all three lengths.
func ParseEAN(s string) (EAN, error) {
	code := strings.TrimSpace(s)
	if code == "" {
		return EAN{}, fmt.Errorf("%w: empty string", ErrInvalidEAN)
	}

	for _, c := range code {
		if c < '0' || c > '9' {
			return EAN{}, fmt.Errorf("%w: %q", ErrEANNotDigits, s)
		}
	}

	var format EANFormat
	switch len(code) {
	case 8:
		format = EANFormat8
	case 13:
		format = EANFormat13
	case 14:
		format = EANFormat14
	default:
		return EAN{}, fmt.Errorf("%w: got %d", ErrEANLength, len(code))
	}

	if !checksumValid(code) {
		return EAN{}, fmt.Errorf("%w: %q", ErrEANChecksum, code)
	}

	return EAN{code: code, format: format}, nil
}

// MustParseEAN parses a known-valid EAN or panics.
// Use only in tests and static initialization.
func MustParseEAN(s string) EAN {
	ean, err := ParseEAN(s)
	if err != nil {
		panic(err)
	}
	return ean
}

// checksumValid verifies the GS1 check digit of an all-digit code.
// Weights alternate 3, 1, 3, ... moving left from the digit next to the
// check digit; the total including the check digit must be ≡ 0 mod 10.
func checksumValid(code string) bool {
	sum := 0
	weight := 3
	for i := len(code) - 2; i >= 0; i-- {
		sum += int(code[i]-'0') * weight
		if weight == 3 {
			weight = 1
		} else {
			weight = 3
		}
	}

	check := (10 - sum%10) % 10
	return check == int(code[len(code)-1]-'0')
}

// String returns the digit string.
func (e EAN) String() string {
	return e.code
}

// Format returns the detected EAN variant.
func (e EAN) Format() EANFormat {
	return e.format
}

// IsZero reports whether this is the zero (unparsed) value.
func (e EAN) IsZero() bool {
	return e.code == ""
}

// Equals reports whether two EAN values carry the same code.
func (e EAN) Equals(other EAN) bool {
	return e.code == other.code
}
