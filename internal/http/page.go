package http

import (
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/kjstillabower/clima-service/internal/models"
	"github.com/kjstillabower/clima-service/internal/observability"
	"github.com/kjstillabower/clima-service/internal/presentation"
	"github.com/kjstillabower/clima-service/internal/traffic"
	"github.com/kjstillabower/clima-service/internal/validation"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Clima{{if .View}} · {{.View.Title}}{{end}}</title>
</head>
<body>
<form method="get" action="/">
  <input type="search" name="q" value="{{.Query}}" placeholder="Cidade, BR" autocomplete="off">
  <input type="hidden" name="unit" value="{{.Unit}}">
  <button type="submit">Buscar</button>
</form>
{{if .SearchMessage}}<p class="message">{{.SearchMessage}}</p>{{end}}
{{if .Suggestions}}
<ul class="suggestions">
  {{range .Suggestions}}<li><a href="{{.Href}}">{{.Label}}</a></li>
  {{end}}
</ul>
{{end}}
<nav class="units">
  <a href="{{.CelsiusHref}}">°C</a> | <a href="{{.FahrenheitHref}}">°F</a>
</nav>
{{if .WeatherMessage}}<p class="message">{{.WeatherMessage}}</p>{{end}}
{{with .View}}
<section class="current">
  <h1>{{.Title}}</h1>
  <p class="temperature">{{.Temperature}}</p>
  <p class="description">{{.Description}}</p>
  <p class="wind">{{.Wind}}</p>
  <p class="period">{{.Period}}</p>
</section>
<section class="forecast">
  {{range .Days}}<div class="day"><span class="date">{{.Date}}</span> <span class="min">{{.Min}}°</span> / <span class="max">{{.Max}}°</span></div>
  {{end}}
</section>
{{end}}
</body>
</html>
`))

type pageSuggestion struct {
	Label string
	Href  string
}

type pageData struct {
	Query          string
	Unit           models.Unit
	SearchMessage  string
	Suggestions    []pageSuggestion
	WeatherMessage string
	View           *presentation.View
	CelsiusHref    string
	FahrenheitHref string
}

// Page handles GET /. It renders the search form, the suggestions for q and the
// report for the location in name/country/lat/lon, or the default location.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	app := h.app.Clone()
	data := pageData{}
	status := http.StatusOK

	if u := trimmed(r, "unit"); u != "" {
		if err := app.SetUnit(models.Unit(u)); err != nil {
			status = http.StatusBadRequest
			data.WeatherMessage = "unit: " + models.ErrInvalidUnit.Error()
		}
	}
	data.Unit = app.Unit

	if raw := trimmed(r, "q"); raw != "" {
		q, err := validation.ValidateQuery(raw, validation.MaxQueryLength)
		if err != nil {
			status = http.StatusBadRequest
			data.SearchMessage = "q: " + err.Error()
		} else {
			data.Query = q
			sv := app.Search(r.Context(), q)
			data.SearchMessage = sv.Message
			for _, s := range sv.Suggestions {
				data.Suggestions = append(data.Suggestions, pageSuggestion{
					Label: s.Label,
					Href:  pageHref(s.Location, app.Unit),
				})
			}
		}
	}

	if trimmed(r, "name") != "" || trimmed(r, "lat") != "" || trimmed(r, "lon") != "" {
		loc, err := locationFromQuery(r)
		if err != nil {
			status = http.StatusBadRequest
			data.WeatherMessage = err.Error()
		} else {
			app.Select(loc)
		}
	}
	data.CelsiusHref = pageHref(app.Selected, models.UnitCelsius)
	data.FahrenheitHref = pageHref(app.Selected, models.UnitFahrenheit)

	if status == http.StatusOK {
		view, err := app.Load(r.Context())
		if err != nil {
			traffic.RecordError()
			data.WeatherMessage = presentation.MsgWeatherFailed
		} else {
			traffic.RecordSuccess()
			data.View = &view
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTemplate.Execute(w, data); err != nil {
		observability.LoggerFromContext(r.Context(), h.logger).Error("render page", zap.Error(err))
	}
}

// pageHref links to the page with loc selected in unit.
func pageHref(loc models.Location, unit models.Unit) string {
	v := url.Values{}
	v.Set("name", loc.Name)
	v.Set("country", loc.Country)
	if loc.Admin1 != "" {
		v.Set("admin1", loc.Admin1)
	}
	v.Set("lat", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	v.Set("lon", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	v.Set("unit", string(unit))
	return "/?" + v.Encode()
}
