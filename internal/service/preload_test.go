package service

import (
	"context"
	"errors"
	"testing"

	"github.com/kjstillabower/clima-service/internal/geocode"
	"github.com/kjstillabower/clima-service/internal/models"
)

type stubResolver struct {
	result  geocode.Result
	queries []string
}

func (s *stubResolver) Lookup(ctx context.Context, query, country string) geocode.Result {
	s.queries = append(s.queries, query+"|"+country)
	return s.result
}

func TestPreloader_Preload(t *testing.T) {
	fc := &fakeForecastClient{
		current: map[models.Unit]string{models.UnitFahrenheit: saoPauloCurrent},
		daily:   map[models.Unit]string{models.UnitFahrenheit: saoPauloDaily},
	}
	f, s := newTestFetcher(fc)
	r := &stubResolver{result: geocode.Result{
		Locations: []models.Location{{Name: "São Paulo", Latitude: -23.55, Longitude: -46.63}, {Name: "Other"}},
		Outcome:   geocode.OutcomeFound,
	}}

	p := NewPreloader(r, f, "BR")
	if err := p.Preload(context.Background(), "São Paulo", models.UnitFahrenheit); err != nil {
		t.Fatalf("Preload() error = %v", err)
	}
	if len(r.queries) != 1 || r.queries[0] != "São Paulo|BR" {
		t.Errorf("resolver queries = %v", r.queries)
	}
	if s.Len() != 2 {
		t.Errorf("store entries = %d, want 2 (current and forecast)", s.Len())
	}
}

func TestPreloader_NoMatch(t *testing.T) {
	fc := &fakeForecastClient{}
	f, _ := newTestFetcher(fc)
	boom := errors.New("both down")
	r := &stubResolver{result: geocode.Result{Locations: []models.Location{}, Outcome: geocode.OutcomeUnavailable, Err: boom}}

	err := NewPreloader(r, f, "").Preload(context.Background(), "Atlantis", models.UnitCelsius)
	if !errors.Is(err, boom) {
		t.Errorf("Preload() error = %v, want wrapped resolver error", err)
	}
	if len(fc.calls) != 0 {
		t.Errorf("forecast calls = %d, want 0", len(fc.calls))
	}
}
