package utils

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/google/uuid"
)

const memberNoAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Generator produces all identifiers the pledge workflow needs: opaque
// namespaced ids, fallback order references and human-facing member numbers.
// Clock and entropy are injected; the generator never checks uniqueness
// against storage - the unique indexes and the retry loop at the issuance
// site own that.
type Generator struct {
	Prefix string
	Clock  Clock
	rand   io.Reader
}

func NewGenerator(prefix string, clock Clock) *Generator {
	return &Generator{Prefix: prefix, Clock: clock, rand: rand.Reader}
}

// NewGeneratorWithRand allows tests to pin the entropy source.
func NewGeneratorWithRand(prefix string, clock Clock, r io.Reader) *Generator {
	return &Generator{Prefix: prefix, Clock: clock, rand: r}
}

func (g *Generator) Now() time.Time {
	return g.Clock.Now()
}

func (g *Generator) OrderID() string {
	return "ord_" + uuid.NewString()
}

func (g *Generator) MembershipID() string {
	return "mem_" + uuid.NewString()
}

// randInt draws from the injected entropy source, falling back to the
// system source when the injected reader is exhausted.
func (g *Generator) randInt(max int64) int64 {
	n, err := rand.Int(g.rand, big.NewInt(max))
	if err != nil {
		n, err = rand.Int(rand.Reader, big.NewInt(max))
		if err != nil {
			return 0
		}
	}
	return n.Int64()
}

// OrderRef generates a fallback idempotency reference when the caller did
// not supply one.
func (g *Generator) OrderRef() string {
	return fmt.Sprintf("REF-%d-%06d", g.Clock.Now().Unix(), g.randInt(999999))
}

// MemberNumber produces the human-facing code, e.g. NC-2026-7KQ4. The
// suffix alphabet drops ambiguous characters (0/O, 1/I).
func (g *Generator) MemberNumber() string {
	suffix := make([]byte, 4)
	for i := range suffix {
		suffix[i] = memberNoAlphabet[g.randInt(int64(len(memberNoAlphabet)))]
	}
	return fmt.Sprintf("%s-%d-%s", g.Prefix, g.Clock.Now().Year(), suffix)
}
