// Package reference stamps ledger transactions with unique, time-ordered references.
package reference

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	PrefixFunding      = "FND"
	PrefixDisbursement = "DSB"

	stampLayout = "20060102150405.000"
)

// Generator produces transaction references. Uniqueness is ultimately enforced
// by the unique index on the ledger table; a Generator only makes collisions unlikely.
type Generator interface {
	Next(prefix string) string
}

// UUIDGenerator renders PREFIX-<UTC millisecond stamp>-<20 random hex chars>.
// References sort lexically by creation time within a prefix.
type UUIDGenerator struct {
	now func() time.Time
}

// New returns a generator backed by the wall clock.
func New() *UUIDGenerator {
	return &UUIDGenerator{now: time.Now}
}

func (g *UUIDGenerator) Next(prefix string) string {
	stamp := strings.Replace(g.now().UTC().Format(stampLayout), ".", "", 1)
	u := uuid.New()
	// skip the version and variant bytes so every suffix bit is random
	var suffix [10]byte
	copy(suffix[:6], u[:6])
	copy(suffix[6:], u[12:16])
	return prefix + "-" + stamp + "-" + strings.ToUpper(hex.EncodeToString(suffix[:]))
}

// stampOf extracts the creation time encoded in ref.
func stampOf(ref string) (time.Time, bool) {
	parts := strings.Split(ref, "-")
	if len(parts) != 3 || len(parts[1]) != 17 {
		return time.Time{}, false
	}
	t, err := time.Parse(stampLayout, parts[1][:14]+"."+parts[1][14:])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
