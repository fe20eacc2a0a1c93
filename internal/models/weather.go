package models

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidUnit is returned by ParseUnit for anything other than celsius or fahrenheit.
var ErrInvalidUnit = errors.New("invalid temperature unit")

// Unit is the temperature unit requested from the forecast provider.
type Unit string

const (
	UnitCelsius    Unit = "celsius"
	UnitFahrenheit Unit = "fahrenheit"
)

// ParseUnit parses a unit name case-insensitively. Empty input means celsius.
func ParseUnit(s string) (Unit, error) {
	switch Unit(strings.ToLower(strings.TrimSpace(s))) {
	case "", UnitCelsius:
		return UnitCelsius, nil
	case UnitFahrenheit:
		return UnitFahrenheit, nil
	}
	return "", ErrInvalidUnit
}

// Symbol returns the display suffix for temperatures in this unit.
func (u Unit) Symbol() string {
	if u == UnitFahrenheit {
		return "°F"
	}
	return "°C"
}

// Location is a geocoding candidate. Admin1 is the region or state and may be empty.
type Location struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Admin1    string  `json:"admin1,omitempty"`
}

// UnknownWeatherCode marks current conditions whose payload carried no weather code.
const UnknownWeatherCode = -1

// CurrentConditions are the current weather values as returned by the forecast provider.
type CurrentConditions struct {
	Temperature  float64 `json:"temperature"`
	WeatherCode  int     `json:"weatherCode"`
	WindSpeedKmh float64 `json:"windSpeedKmh"`
	IsDay        bool    `json:"isDay"`
}

// DailyTemperature is one day of the short-range forecast.
type DailyTemperature struct {
	Date time.Time `json:"date"`
	Min  float64   `json:"min"`
	Max  float64   `json:"max"`
}

// DailyForecast is ordered by date ascending, as returned by the provider.
type DailyForecast []DailyTemperature

// Report joins current conditions and the daily forecast for one location and unit.
type Report struct {
	Location Location          `json:"location"`
	Unit     Unit              `json:"unit"`
	Current  CurrentConditions `json:"current"`
	Daily    DailyForecast     `json:"daily"`
}
