package id

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// namespace scopes every name-based id this module generates.
var namespace = uuid.MustParse("0b7b4c6e-4f7a-5d55-9a8c-2f3c6b1de7a1")

// FromParts returns a deterministic id for the given parts.
// FromParts("a", "bc") and FromParts("ab", "c") differ.
func FromParts(parts ...string) string {
	return uuid.NewSHA1(namespace, []byte(strings.Join(parts, "\x1f"))).String()
}

// Content returns a deterministic id for serialized entity bytes.
func Content(serialized []byte) string {
	return uuid.NewSHA1(namespace, serialized).String()
}

// Transaction returns the id of a ledger transaction posted on date with
// description. Identical transactions share an id.
func Transaction(date time.Time, description string) string {
	return FromParts("txn", date.UTC().Format("2006-01-02"), description)
}

// Seeded returns an id derived from a wall-clock seed and a row index.
// It is not stable across runs.
func Seeded(seed time.Time, row int) string {
	return FromParts("row", strconv.FormatInt(seed.UnixNano(), 10), strconv.Itoa(row))
}
