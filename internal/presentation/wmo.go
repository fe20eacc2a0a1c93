// Package presentation turns reports and lookup results into display strings.
// Texts are pt-BR.
package presentation

import (
	"strconv"

	"github.com/kjstillabower/clima-service/internal/models"
)

var wmoDescriptions = map[int]string{
	0:  "Céu limpo",
	1:  "Principalmente limpo",
	2:  "Parcialmente nublado",
	3:  "Nublado",
	45: "Nevoeiro",
	48: "Nevoeiro com gelo",
	51: "Garoa fraca",
	53: "Garoa moderada",
	55: "Garoa intensa",
	61: "Chuva fraca",
	63: "Chuva moderada",
	65: "Chuva forte",
	71: "Neve fraca",
	73: "Neve moderada",
	75: "Neve forte",
	80: "Aguaceiros fracos",
	81: "Aguaceiros moderados",
	82: "Aguaceiros fortes",
	95: "Trovoadas",
	96: "Trovoadas com granizo",
	99: "Trovoadas fortes com granizo",
}

// Describe returns the description of a WMO weather code, or "WMO: <code>" for codes outside
// the table. An unknown code renders "WMO: -".
func Describe(code int) string {
	if code == models.UnknownWeatherCode {
		return "WMO: -"
	}
	if d, ok := wmoDescriptions[code]; ok {
		return d
	}
	return "WMO: " + strconv.Itoa(code)
}
