package presentation

import (
	"math"
	"strconv"

	"github.com/kjstillabower/clima-service/internal/models"
)

// User-facing messages.
const (
	MsgNoResults     = "Nenhum resultado. Tente sem acentos ou inclua o país (ex: “Cidade, BR”)."
	MsgSearchFailed  = "Erro na busca. Verifique sua rede/DNS/antivírus e tente novamente."
	MsgWeatherFailed = "Falha ao carregar clima. Verifique sua rede/DNS/antivírus e tente novamente."
)

const (
	labelDay        = "Dia"
	labelNight      = "Noite"
	dateLayout      = "02/01/2006"
	titleSeparator  = " — "
	windLabelPrefix = "Vento: "
	windLabelSuffix = " km/h"
)

// View is a rendered report.
type View struct {
	Title       string    `json:"title"`
	Temperature string    `json:"temperature"`
	Description string    `json:"description"`
	Wind        string    `json:"wind"`
	Period      string    `json:"period"`
	Days        []DayCard `json:"days"`
}

// DayCard is one forecast day. Min and Max are rounded and carry no unit suffix.
type DayCard struct {
	Date string `json:"date"`
	Min  int    `json:"min"`
	Max  int    `json:"max"`
}

// RoundHalfUp rounds to the nearest integer with halves toward positive infinity,
// so 2.5 becomes 3 and -2.5 becomes -2.
func RoundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// SuggestionLabel renders a candidate as "Name, Admin1 — Country", omitting Admin1 when empty.
func SuggestionLabel(loc models.Location) string {
	label := loc.Name
	if loc.Admin1 != "" {
		label += ", " + loc.Admin1
	}
	return label + titleSeparator + loc.Country
}

// Title renders "Name — Country".
func Title(loc models.Location) string {
	return loc.Name + titleSeparator + loc.Country
}

// RenderReport formats a report for display.
func RenderReport(r models.Report) View {
	period := labelNight
	if r.Current.IsDay {
		period = labelDay
	}
	days := make([]DayCard, 0, len(r.Daily))
	for _, d := range r.Daily {
		days = append(days, DayCard{
			Date: d.Date.Format(dateLayout),
			Min:  RoundHalfUp(d.Min),
			Max:  RoundHalfUp(d.Max),
		})
	}
	unit := r.Unit
	if unit == "" {
		unit = models.UnitCelsius
	}
	return View{
		Title:       Title(r.Location),
		Temperature: strconv.Itoa(RoundHalfUp(r.Current.Temperature)) + unit.Symbol(),
		Description: Describe(r.Current.WeatherCode),
		Wind:        windLabelPrefix + strconv.Itoa(RoundHalfUp(r.Current.WindSpeedKmh)) + windLabelSuffix,
		Period:      period,
		Days:        days,
	}
}
