package presentation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kjstillabower/clima-service/internal/geocode"
	"github.com/kjstillabower/clima-service/internal/models"
	"github.com/kjstillabower/clima-service/internal/observability"
)

// DefaultLocation is selected before the user picks anything.
var DefaultLocation = models.Location{Name: "São Paulo", Country: "Brazil", Latitude: -23.55, Longitude: -46.63}

// DefaultCountry is the country hint sent with searches.
const DefaultCountry = "BR"

// Searcher resolves place names.
type Searcher interface {
	Lookup(ctx context.Context, query, country string) geocode.Result
}

// ReportLoader loads a report for a selected location.
type ReportLoader interface {
	Load(ctx context.Context, loc models.Location, unit models.Unit) (models.Report, error)
}

// Suggestion is one search candidate with its display label.
type Suggestion struct {
	models.Location
	Label string `json:"label"`
}

// SearchView is the rendered result of a search.
type SearchView struct {
	Query       string          `json:"query"`
	Outcome     geocode.Outcome `json:"outcome"`
	Message     string          `json:"message,omitempty"`
	Suggestions []Suggestion    `json:"results"`
}

// App holds the interactive state: the selected location, the temperature unit and
// the country hint. It is not safe for concurrent use; use Clone per request.
type App struct {
	Selected models.Location
	Unit     models.Unit
	Country  string
	// DistinguishUnavailable shows MsgSearchFailed instead of MsgNoResults when no
	// geocoding provider answered.
	DistinguishUnavailable bool

	searcher Searcher
	loader   ReportLoader
	logger   *zap.Logger
}

// NewApp creates an App with São Paulo selected, celsius, and the BR country hint.
func NewApp(searcher Searcher, loader ReportLoader, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		Selected: DefaultLocation,
		Unit:     models.UnitCelsius,
		Country:  DefaultCountry,
		searcher: searcher,
		loader:   loader,
		logger:   logger,
	}
}

// Clone returns an independent copy sharing the searcher and loader.
func (a *App) Clone() *App {
	c := *a
	return &c
}

// Search looks up q and renders the candidates. Queries too short to search produce
// an empty view without a message.
func (a *App) Search(ctx context.Context, q string) SearchView {
	res := a.searcher.Lookup(ctx, q, a.Country)
	view := SearchView{
		Query:       q,
		Outcome:     res.Outcome,
		Message:     a.messageFor(res.Outcome),
		Suggestions: make([]Suggestion, 0, len(res.Locations)),
	}
	for _, loc := range res.Locations {
		view.Suggestions = append(view.Suggestions, Suggestion{Location: loc, Label: SuggestionLabel(loc)})
	}
	return view
}

func (a *App) messageFor(o geocode.Outcome) string {
	switch o {
	case geocode.OutcomeNotFound:
		return MsgNoResults
	case geocode.OutcomeUnavailable:
		if a.DistinguishUnavailable {
			return MsgSearchFailed
		}
		return MsgNoResults
	}
	return ""
}

// Select makes loc the location Load renders.
func (a *App) Select(loc models.Location) {
	a.Selected = loc
}

// SetUnit changes the unit for subsequent loads.
func (a *App) SetUnit(u models.Unit) error {
	parsed, err := models.ParseUnit(string(u))
	if err != nil {
		return fmt.Errorf("set unit %q: %w", u, err)
	}
	a.Unit = parsed
	return nil
}

// Load fetches and renders the selected location. On error the caller shows MsgWeatherFailed.
func (a *App) Load(ctx context.Context) (View, error) {
	report, err := a.loader.Load(ctx, a.Selected, a.Unit)
	if err != nil {
		observability.LoggerFromContext(ctx, a.logger).Warn("weather load failed",
			zap.String("location", a.Selected.Name),
			zap.String("unit", string(a.Unit)),
			zap.Error(err))
		return View{}, fmt.Errorf("load weather for %s: %w", a.Selected.Name, err)
	}
	return RenderReport(report), nil
}
