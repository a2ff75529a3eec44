// Package accesscode produces the short human-shareable codes used to join
// an event. Codes are stored uppercase and matched case-insensitively.
package accesscode

import (
	"math/rand"
	"strings"
	"sync"
	"time"
)

// Length is the fixed code length.
const Length = 6

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generator draws random codes. It does not check uniqueness itself; the
// caller retries on the store's uniqueness conflict. Safe for concurrent
// use: rand.Rand is not, so the source is guarded by a mutex.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func NewGenerator() *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewGeneratorWithSeed is test-only for deterministic codes.
func NewGeneratorWithSeed(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate returns a fresh uppercase alphanumeric code.
func (g *Generator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < Length; i++ {
		b.WriteByte(alphabet[g.rnd.Intn(len(alphabet))])
	}
	return b.String()
}

// Normalize maps user-entered codes onto the stored form.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
