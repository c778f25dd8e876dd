package utils

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/Protyush1995/Docto-friend/apperr"
	"github.com/Protyush1995/Docto-friend/counter"
	"github.com/Protyush1995/Docto-friend/metrics"
	"github.com/Protyush1995/Docto-friend/models"
)

// Scheme selects how an identifier is built.
type Scheme string

const (
	// SchemeTimestamp: <PREFIX>_<yyyyMMddHHmmssSSS><7 random digits>
	SchemeTimestamp Scheme = "timestamp"
	// SchemeCounter: <PREFIX>_<NORMALIZED SEED>_<n>
	SchemeCounter Scheme = "counter"
	// SchemeComposite: DOCLID_<CLINIC>_<cn>_<DOCTOR>_<dn>
	SchemeComposite Scheme = "composite"
)

func ParseScheme(s string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(s))) {
	case SchemeTimestamp:
		return SchemeTimestamp, nil
	case SchemeCounter:
		return SchemeCounter, nil
	case SchemeComposite:
		return SchemeComposite, nil
	}
	return "", fmt.Errorf("unknown identifier scheme %q", s)
}

// Seed fields read by the counter and composite schemes.
const (
	SeedLastName   = "lastname"
	SeedClinicName = "clinic_name"
)

const (
	doctorScope = "DOCID"
	clinicScope = "CLINID"
	linkPrefix  = "DOCLID"

	stampLayout  = "20060102150405"
	randomDigits = 7
	randomSpace  = 10_000_000
	maxRandDraws = 100
)

var timestampPrefixes = map[models.EntityKind]string{
	models.KindDoctor:  "DOC_ID",
	models.KindClinic:  "CLINIC_ID",
	models.KindPatient: "P",
}

var counterSeeds = map[models.EntityKind]struct {
	scope string
	field string
}{
	models.KindDoctor: {scope: doctorScope, field: SeedLastName},
	models.KindClinic: {scope: clinicScope, field: SeedClinicName},
}

// LinkIDs are the three identifiers minted when a doctor is tied to a clinic.
type LinkIDs struct {
	ClinicID string
	DoctorID string
	LinkID   string
}

// IDGenerator issues identifiers for every entity kind. Timestamp ids are
// unique within the process; counter ids are unique wherever the counter
// store is shared.
type IDGenerator struct {
	counters counter.Store
	now      func() time.Time
	random   io.Reader
	metrics  *metrics.Metrics

	mutex     sync.Mutex
	lastStamp string
	last      time.Time
	// suffixes issued within lastStamp's millisecond
	usedIDs map[int64]bool
}

type GeneratorOption func(*IDGenerator)

func WithClock(now func() time.Time) GeneratorOption {
	return func(g *IDGenerator) { g.now = now }
}

func WithRand(r io.Reader) GeneratorOption {
	return func(g *IDGenerator) { g.random = r }
}

func WithMetrics(m *metrics.Metrics) GeneratorOption {
	return func(g *IDGenerator) { g.metrics = m }
}

func NewIDGenerator(counters counter.Store, opts ...GeneratorOption) *IDGenerator {
	g := &IDGenerator{
		counters: counters,
		now:      time.Now,
		random:   rand.Reader,
		usedIDs:  make(map[int64]bool),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate issues an identifier of kind using scheme. Counter and composite
// schemes read their seeds from seed; invalid seeds fail before any counter
// is touched.
func (g *IDGenerator) Generate(ctx context.Context, kind models.EntityKind, scheme Scheme, seed map[string]string) (models.Identifier, error) {
	if !kind.Valid() {
		return models.Identifier{}, apperr.InvalidSeed("kind", fmt.Sprintf("unknown entity kind %q", kind))
	}

	switch scheme {
	case SchemeTimestamp:
		return g.Timestamp(kind)
	case SchemeCounter:
		cfg, ok := counterSeeds[kind]
		if !ok {
			return models.Identifier{}, apperr.InvalidSeed("scheme", fmt.Sprintf("counter identifiers are not issued for %s", kind))
		}
		return g.Counter(ctx, kind, seed[cfg.field])
	case SchemeComposite:
		if kind != models.KindDoctorLink {
			return models.Identifier{}, apperr.InvalidSeed("scheme", fmt.Sprintf("composite identifiers are only issued for %s", models.KindDoctorLink))
		}
		ids, err := g.Link(ctx, seed[SeedClinicName], seed[SeedLastName])
		if err != nil {
			return models.Identifier{}, err
		}
		return models.Identifier{Kind: kind, Value: ids.LinkID}, nil
	default:
		return models.Identifier{}, apperr.InvalidSeed("scheme", fmt.Sprintf("unknown identifier scheme %q", scheme))
	}
}

// Timestamp issues <PREFIX>_<yyyyMMddHHmmssSSS><7 digits>. The clock never
// runs backwards from the generator's point of view and the random suffix is
// redrawn until it is unused within the current millisecond.
func (g *IDGenerator) Timestamp(kind models.EntityKind) (models.Identifier, error) {
	prefix, ok := timestampPrefixes[kind]
	if !ok {
		return models.Identifier{}, apperr.InvalidSeed("scheme", fmt.Sprintf("timestamp identifiers are not issued for %s", kind))
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	t := g.now().UTC()
	if t.Before(g.last) {
		t = g.last
	}
	stamp := fmt.Sprintf("%s%03d", t.Format(stampLayout), t.Nanosecond()/int(time.Millisecond))
	if stamp != g.lastStamp {
		g.lastStamp = stamp
		g.usedIDs = make(map[int64]bool)
	}
	g.last = t

	for attempts := 0; attempts < maxRandDraws; attempts++ {
		n, err := rand.Int(g.random, big.NewInt(randomSpace))
		if err != nil {
			return models.Identifier{}, fmt.Errorf("failed to draw random suffix: %w", err)
		}
		suffix := n.Int64()
		if g.usedIDs[suffix] {
			continue
		}
		g.usedIDs[suffix] = true
		g.metrics.IdentifierIssued(string(kind), string(SchemeTimestamp))
		return models.Identifier{
			Kind:  kind,
			Value: fmt.Sprintf("%s_%s%0*d", prefix, stamp, randomDigits, suffix),
		}, nil
	}
	return models.Identifier{}, fmt.Errorf("failed to generate unique %s identifier after %d attempts", kind, maxRandDraws)
}

// Counter issues <PREFIX>_<NORMALIZED SEED>_<n> from the shared counter store.
func (g *IDGenerator) Counter(ctx context.Context, kind models.EntityKind, rawSeed string) (models.Identifier, error) {
	cfg, ok := counterSeeds[kind]
	if !ok {
		return models.Identifier{}, apperr.InvalidSeed("scheme", fmt.Sprintf("counter identifiers are not issued for %s", kind))
	}
	key := Normalize(rawSeed)
	if key == "" {
		return models.Identifier{}, apperr.InvalidSeed(cfg.field, "seed is empty after normalization")
	}

	n, err := g.counters.Increment(ctx, cfg.scope, key)
	if err != nil {
		return models.Identifier{}, err
	}
	g.metrics.IdentifierIssued(string(kind), string(SchemeCounter))
	return models.Identifier{Kind: kind, Value: fmt.Sprintf("%s_%s_%d", cfg.scope, key, n)}, nil
}

// Link mints the clinic, doctor and composite link ids used when a doctor is
// seeded into a clinic. Both seeds are validated before either counter moves.
func (g *IDGenerator) Link(ctx context.Context, clinicName, doctorLastName string) (LinkIDs, error) {
	clinicKey := Normalize(clinicName)
	if clinicKey == "" {
		return LinkIDs{}, apperr.InvalidSeed(SeedClinicName, "seed is empty after normalization")
	}
	doctorKey := Normalize(doctorLastName)
	if doctorKey == "" {
		return LinkIDs{}, apperr.InvalidSeed(SeedLastName, "seed is empty after normalization")
	}

	cn, err := g.counters.Increment(ctx, clinicScope, clinicKey)
	if err != nil {
		return LinkIDs{}, err
	}
	dn, err := g.counters.Increment(ctx, doctorScope, doctorKey)
	if err != nil {
		return LinkIDs{}, err
	}

	g.metrics.IdentifierIssued(string(models.KindDoctorLink), string(SchemeComposite))
	return LinkIDs{
		ClinicID: fmt.Sprintf("%s_%s_%d", clinicScope, clinicKey, cn),
		DoctorID: fmt.Sprintf("%s_%s_%d", doctorScope, doctorKey, dn),
		LinkID:   fmt.Sprintf("%s_%s_%d_%s_%d", linkPrefix, clinicKey, cn, doctorKey, dn),
	}, nil
}

// Normalize reduces a free-text seed to an id component: letters, digits,
// '_' and '-' are kept, whitespace runs become a single '_', everything else
// is dropped, and the result is upper-cased.
func Normalize(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.ToUpper(strings.Join(strings.Fields(b.String()), "_"))
}
