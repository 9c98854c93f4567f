// Package id generates ULIDs for backtest runs and journaled trades.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator hands out monotonic ULIDs. IDs made for the same millisecond
// still sort in generation order.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewGenerator returns a generator drawing entropy from seed. A zero seed is
// replaced by one read from crypto/rand.
func NewGenerator(seed int64) *Generator {
	if seed == 0 {
		_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
	}
	return &Generator{entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)}
}

// At returns a ULID whose timestamp part is t. Trades are keyed by their
// entry time so the journal sorts them chronologically.
func (g *Generator) At(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), g.entropy)
	if err != nil {
		// Only possible with a timestamp beyond the ULID range or with
		// monotonic overflow inside one millisecond.
		panic(err)
	}
	return id.String()
}

func (g *Generator) New() string { return g.At(time.Now()) }

var std = NewGenerator(0)

// New returns a ULID for the current time from the package generator.
func New() string { return std.New() }

// At returns a ULID for t from the package generator.
func At(t time.Time) string { return std.At(t) }

// Time extracts the timestamp encoded in a ULID string.
func Time(s string) (time.Time, error) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()).UTC(), nil
}
