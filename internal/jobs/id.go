package jobs

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewID returns a fresh time-ordered job identifier.
func NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate job id: %w", err)
	}
	return id.String(), nil
}

// ValidID reports whether value is a well-formed job identifier. Only
// canonical UUIDv7 strings are accepted, which also keeps ids safe to use as
// directory names.
func ValidID(value string) bool {
	id, err := uuid.Parse(value)
	if err != nil {
		return false
	}
	return id.Version() == 7 && id.String() == value
}

// CreatedAt extracts the creation time embedded in a job identifier.
func CreatedAt(value string) (time.Time, error) {
	if !ValidID(value) {
		return time.Time{}, fmt.Errorf("invalid job id %q", value)
	}
	id := uuid.MustParse(value)
	var buf [8]byte
	copy(buf[2:], id[:6])
	ms := int64(binary.BigEndian.Uint64(buf[:]))
	return time.UnixMilli(ms), nil
}
