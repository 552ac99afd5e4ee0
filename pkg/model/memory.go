package model

import (
	"strings"
	"time"
	"unicode"

	"github.com/m-mizutani/goerr/v2"
)

const (
	MinImportance = 1
	MaxImportance = 10
)

// MemoryID identifies a memory by the UTC time it was recorded at, in TimeFormat.
// It is also the primary key of the vector index.
type MemoryID string

// NewMemoryID generates the MemoryID for a memory recorded at t
func NewMemoryID(t time.Time) MemoryID {
	return MemoryID(FormatTime(t))
}

func (x MemoryID) String() string {
	return string(x)
}

// Time decodes the timestamp carried by the ID
func (x MemoryID) Time() (time.Time, error) {
	return ParseTime(string(x))
}

// Micros returns the ID's timestamp as Unix microseconds
func (x MemoryID) Micros() (int64, error) {
	return TimeToMicros(string(x))
}

// Validate checks the ID can be used as a fetch key. The index rejects keys
// containing whitespace.
func (x MemoryID) Validate() error {
	if x == "" {
		return goerr.Wrap(ErrInvalidArgument, "memory id is empty")
	}
	if strings.ContainsFunc(string(x), unicode.IsSpace) {
		return goerr.Wrap(ErrInvalidArgument, "memory id contains whitespace", goerr.V("id", x))
	}
	return nil
}

// Memory is one stored utterance with its timestamp-derived identity
type Memory struct {
	ID         MemoryID
	Time       time.Time
	Importance int // 0 when not rated
	Text       string
}

// ScoredMemory is a query hit. Higher Score means more similar.
type ScoredMemory struct {
	Score  float64
	Memory *Memory
}
