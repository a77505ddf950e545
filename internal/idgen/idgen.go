// Package idgen produces human-readable RMA identifiers.
//
// An id is the fixed prefix "RMA-", a YYMM component and a three-character
// uppercase suffix, e.g. "RMA-2610A3F". Generators do not consult the record
// table; collisions are rare enough that callers retry instead.
package idgen

import (
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/rmatrack/internal/rma"
)

// Prefix starts every generated id.
const Prefix = "RMA-"

// SuffixLen is the number of random characters after the timestamp.
const SuffixLen = 3

var idPattern = regexp.MustCompile(`^RMA-[0-9]{4}[0-9A-Z]{3}$`)

// Generator produces record ids.
type Generator interface {
	Generate() string
}

// RMAGenerator derives the suffix from a random UUID, so suffix characters
// are uppercase hex digits.
//
// Thread-safety: RMAGenerator is stateless and safe for concurrent use.
type RMAGenerator struct {
	Clock rma.Clock
}

// NewRMAGenerator creates a generator stamped by clock.
// A nil clock uses the system clock.
func NewRMAGenerator(clock rma.Clock) RMAGenerator {
	if clock == nil {
		clock = rma.SystemClock{}
	}
	return RMAGenerator{Clock: clock}
}

// Generate returns a new id.
//
// Panics if UUID generation fails (should never happen in practice).
func (g RMAGenerator) Generate() string {
	clock := g.Clock
	if clock == nil {
		clock = rma.SystemClock{}
	}
	suffix := strings.ToUpper(uuid.Must(uuid.NewRandom()).String()[:SuffixLen])
	return Prefix + clock.Now().Format("0601") + suffix
}

// Valid reports whether id has the generated shape.
func Valid(id string) bool {
	return idPattern.MatchString(id)
}

// FixedGenerator returns predetermined ids for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
//	gen := NewFixedGenerator("RMA-2610AAA", "RMA-2610AAB")
//	gen.Generate() // "RMA-2610AAA"
//	gen.Generate() // "RMA-2610AAB"
//	gen.Generate() // panic: all ids exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
//
// Panics if all ids have been consumed, so a test that creates more records
// than it planned for fails loudly.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}

// Remaining returns how many ids are left.
func (g *FixedGenerator) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.ids) - g.idx
}
