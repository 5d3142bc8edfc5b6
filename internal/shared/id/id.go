// Package id provides centralized ID generation for the orchestrator.
//
// IDs are ULIDs with a short type prefix:
//   - Sortable: records submitted later sort after earlier ones
//   - Prefixed: rec_*, req_*, span_* make logs readable
//   - Typed: separate string types keep record and request IDs apart
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RecordID identifies a data record flowing through the pipeline
type RecordID string

// RequestID identifies an API request
type RequestID string

// SpanID identifies a tracing span
type SpanID string

const (
	RecordPrefix  = "rec"
	RequestPrefix = "req"
	SpanPrefix    = "span"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by a monotonic, crypto-seeded entropy source.
func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy source.
// Tests use it for deterministic output.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{
		entropy: entropy,
	}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewRecordID generates a new record ID
func NewRecordID() RecordID {
	return RecordID(Default().GenerateWithPrefix(RecordPrefix))
}

// NewRequestID generates a new request ID
func NewRequestID() RequestID {
	return RequestID(Default().GenerateWithPrefix(RequestPrefix))
}

// NewSpanID generates a new span ID
func NewSpanID() SpanID {
	return SpanID(Default().GenerateWithPrefix(SpanPrefix))
}

func (id RecordID) String() string  { return string(id) }
func (id RequestID) String() string { return string(id) }
func (id SpanID) String() string    { return string(id) }

// Split separates a prefixed ID into its prefix and ULID part.
// IDs without a prefix return an empty prefix.
func Split(s string) (prefix, raw string) {
	if i := strings.LastIndexByte(s, '_'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}

// IsValid reports whether s, with or without a prefix, carries a valid ULID
func IsValid(s string) bool {
	_, raw := Split(s)
	_, err := ulid.Parse(raw)
	return err == nil
}

// Timestamp extracts the creation time encoded in a (prefixed) ULID
func Timestamp(s string) (time.Time, error) {
	_, raw := Split(s)
	parsed, err := ulid.Parse(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse id %q: %w", s, err)
	}
	return ulid.Time(parsed.Time()), nil
}
