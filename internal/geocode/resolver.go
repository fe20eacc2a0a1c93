package geocode

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kjstillabower/clima-service/internal/models"
	"github.com/kjstillabower/clima-service/internal/observability"
)

// MinQueryLength is the minimum trimmed query length, in characters, that reaches a provider.
const MinQueryLength = 2

// Outcome classifies a lookup so callers can tell "nothing matched" from "nobody answered".
type Outcome int

const (
	OutcomeFound Outcome = iota
	OutcomeNotFound
	OutcomeQueryTooShort
	OutcomeUnavailable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFound:
		return "found"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeQueryTooShort:
		return "query_too_short"
	case OutcomeUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// MarshalText renders the outcome by name in JSON responses.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Result is the tagged outcome of a lookup. Locations is empty unless Outcome is OutcomeFound.
// Provider names the provider that produced Locations. Err joins the provider errors seen.
type Result struct {
	Locations []models.Location
	Outcome   Outcome
	Provider  string
	Err       error
}

// Resolver runs the primary provider, a diacritic-free retry on the primary, then the
// secondary provider. Steps are sequential; geocoding responses are not cached.
type Resolver struct {
	primary   Provider
	secondary Provider
	logger    *zap.Logger
}

// NewResolver creates a Resolver. secondary may be nil to disable the fallback.
func NewResolver(primary, secondary Provider, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{primary: primary, secondary: secondary, logger: logger}
}

// Resolve returns at most MaxResults candidates for query. It never fails: too-short
// queries, no matches, and provider failures all yield an empty slice.
func (r *Resolver) Resolve(ctx context.Context, query, country string) []models.Location {
	return r.Lookup(ctx, query, country).Locations
}

// Lookup is Resolve with the outcome kept.
func (r *Resolver) Lookup(ctx context.Context, query, country string) Result {
	res := r.lookup(ctx, query, country)
	if len(res.Locations) > MaxResults {
		res.Locations = res.Locations[:MaxResults]
	}
	observability.GeocodeOutcomesTotal.WithLabelValues(res.Outcome.String()).Inc()
	observability.LoggerFromContext(ctx, r.logger).Debug("place lookup",
		zap.String("query", query),
		zap.String("outcome", res.Outcome.String()),
		zap.String("provider", res.Provider),
		zap.Int("results", len(res.Locations)),
		zap.Error(res.Err))
	return res
}

func (r *Resolver) lookup(ctx context.Context, query, country string) Result {
	q := strings.TrimSpace(query)
	if utf8.RuneCountInString(q) < MinQueryLength {
		return Result{Locations: []models.Location{}, Outcome: OutcomeQueryTooShort}
	}

	var errs []error
	answered := false

	locs, err := r.primary.Search(ctx, q, country)
	if err == nil {
		answered = true
		if len(locs) > 0 {
			return Result{Locations: locs, Outcome: OutcomeFound, Provider: r.primary.Name()}
		}
		if plain := StripDiacritics(q); plain != q {
			locs, err = r.primary.Search(ctx, plain, country)
			if err == nil && len(locs) > 0 {
				return Result{Locations: locs, Outcome: OutcomeFound, Provider: r.primary.Name()}
			}
		}
	}
	if err != nil {
		errs = append(errs, err)
	}

	if r.secondary != nil {
		locs, err = r.secondary.Search(ctx, q, country)
		if err != nil {
			errs = append(errs, err)
		} else {
			answered = true
			if len(locs) > 0 {
				return Result{Locations: locs, Outcome: OutcomeFound, Provider: r.secondary.Name(), Err: errors.Join(errs...)}
			}
		}
	}

	outcome := OutcomeNotFound
	if !answered {
		outcome = OutcomeUnavailable
	}
	return Result{Locations: []models.Location{}, Outcome: outcome, Err: errors.Join(errs...)}
}
