package value

import (
	"strconv"

	"github.com/google/uuid"
)

// ID is a sealed record identifier. NumberID is the baseline variant every
// store supports; StringID and UUIDID are extensions.
//
// All variants are comparable, so two IDs are equal iff == holds.
type ID interface {
	String() string
	id() // Sealed
}

// NumberID is an unsigned 64-bit record identifier.
type NumberID uint64

func (NumberID) id() {}

func (n NumberID) String() string {
	return strconv.FormatUint(uint64(n), 10)
}

// StringID is a textual record identifier.
type StringID string

func (StringID) id() {}

func (s StringID) String() string {
	return string(s)
}

// UUIDID is a UUID record identifier.
type UUIDID uuid.UUID

func (UUIDID) id() {}

func (u UUIDID) String() string {
	return uuid.UUID(u).String()
}

// NewID creates a NumberID. It is total over uint64.
func NewID(n uint64) ID {
	return NumberID(n)
}

// NewUUIDID creates a time-ordered UUIDv7 identifier.
func NewUUIDID() (ID, error) {
	u, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	return UUIDID(u), nil
}

// ParseID parses the textual form of an identifier.
// Decimal digits parse as NumberID, canonical UUID text as UUIDID and
// everything else as StringID.
func ParseID(s string) ID {
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return NumberID(n)
	}
	if len(s) == 36 {
		if u, err := uuid.Parse(s); err == nil {
			return UUIDID(u)
		}
	}
	return StringID(s)
}
