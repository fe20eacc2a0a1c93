package service

import (
	"context"
	"fmt"

	"github.com/kjstillabower/clima-service/internal/geocode"
	"github.com/kjstillabower/clima-service/internal/models"
)

// PlaceResolver is the part of geocode.Resolver the Preloader needs.
type PlaceResolver interface {
	Lookup(ctx context.Context, query, country string) geocode.Result
}

// Preloader resolves a place name and loads its report, leaving both forecast
// kinds in the cache. It is the cache.Loader used by the warmer.
type Preloader struct {
	resolver PlaceResolver
	fetcher  *Fetcher
	country  string
}

// NewPreloader creates a Preloader. country is the hint passed to the resolver.
func NewPreloader(resolver PlaceResolver, fetcher *Fetcher, country string) *Preloader {
	return &Preloader{resolver: resolver, fetcher: fetcher, country: country}
}

// Preload loads the first candidate for query.
func (p *Preloader) Preload(ctx context.Context, query string, unit models.Unit) error {
	res := p.resolver.Lookup(ctx, query, p.country)
	if len(res.Locations) == 0 {
		if res.Err != nil {
			return fmt.Errorf("resolve %q: %s: %w", query, res.Outcome, res.Err)
		}
		return fmt.Errorf("resolve %q: %s", query, res.Outcome)
	}
	_, err := p.fetcher.Load(ctx, res.Locations[0], unit)
	return err
}
