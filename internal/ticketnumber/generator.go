// Package ticketnumber produces the human-facing TCK<ddmmyyyy>-<nnnn> ticket identifiers.
//
// Numbers are collision-resistant, not unique: the suffix space is 9000 values per day.
// Uniqueness is enforced by the repository create path, which regenerates on conflict.
package ticketnumber

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/helpline/support-desk/internal/clock"
)

const (
	prefix    = "TCK"
	minSuffix = 1000
	maxSuffix = 9999
)

var pattern = regexp.MustCompile(`^TCK\d{8}-\d{4}$`)

// Source generates candidate ticket numbers.
type Source interface {
	Generate() string
}

// Generator builds ticket numbers from the clock's date and a random suffix.
type Generator struct {
	clock    clock.Clock
	location *time.Location

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand replaces the random source, mainly for tests.
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) { g.rng = rng }
}

// WithLocation sets the time zone used for the date part.
func WithLocation(loc *time.Location) Option {
	return func(g *Generator) {
		if loc != nil {
			g.location = loc
		}
	}
}

// NewGenerator returns a Generator reading dates from clk.
func NewGenerator(clk clock.Clock, opts ...Option) *Generator {
	g := &Generator{
		clock:    clk,
		location: time.UTC,
		rng:      rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a candidate such as TCK01012024-1234.
func (g *Generator) Generate() string {
	g.mu.Lock()
	suffix := minSuffix + g.rng.IntN(maxSuffix-minSuffix+1)
	g.mu.Unlock()
	return Format(g.clock.Now().In(g.location), suffix)
}

// Format renders a ticket number for the given date and suffix.
func Format(date time.Time, suffix int) string {
	return fmt.Sprintf("%s%s-%04d", prefix, date.Format("02012006"), suffix)
}

// Normalize canonicalizes user input for lookup: trimmed and upper-cased.
func Normalize(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}

// Valid reports whether number is in canonical form.
func Valid(number string) bool {
	return pattern.MatchString(number)
}
