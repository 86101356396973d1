package models

import (
	"strconv"
	"strings"
)

// Column names of the forecast data files. Stored documents use the same keys.
const (
	FieldLatitude          = "Latitude"
	FieldLongitude         = "Longitude"
	FieldForecastTime      = "forecast_time"
	FieldTemperatureC      = "Temperature Celsius"
	FieldPrecipitationMmHr = "Precipitation Rate mm/hr"
	FieldPrecipitationInHr = "Precipitation Rate in/hr"
)

// MillimetersPerInch converts in/hr precipitation rates to mm/hr
const MillimetersPerInch = 25.4

// ForecastRecord represents one data row, keyed by column name.
// Values are kept exactly as read so coordinates compare by string identity.
// Records are never mutated after they are written.
type ForecastRecord map[string]string

// Latitude returns the stored latitude value
func (r ForecastRecord) Latitude() string {
	return r[FieldLatitude]
}

// Longitude returns the stored longitude value
func (r ForecastRecord) Longitude() string {
	return r[FieldLongitude]
}

// ForecastTime returns the opaque forecast timestamp
func (r ForecastRecord) ForecastTime() string {
	return r[FieldForecastTime]
}

// TemperatureCelsius parses the temperature field
func (r ForecastRecord) TemperatureCelsius() (float64, error) {
	return r.float(FieldTemperatureC)
}

// PrecipitationMm returns the precipitation rate in mm/hr.
// The mm field wins when present; otherwise the inch field is converted.
func (r ForecastRecord) PrecipitationMm() (float64, error) {
	if r.has(FieldPrecipitationMmHr) {
		return r.float(FieldPrecipitationMmHr)
	}
	if r.has(FieldPrecipitationInHr) {
		inches, err := r.float(FieldPrecipitationInHr)
		if err != nil {
			return 0, err
		}
		return inches * MillimetersPerInch, nil
	}
	return 0, &MissingFieldError{Field: "precipitationRate"}
}

func (r ForecastRecord) has(field string) bool {
	v, ok := r[field]
	return ok && strings.TrimSpace(v) != ""
}

func (r ForecastRecord) float(field string) (float64, error) {
	if !r.has(field) {
		return 0, &MissingFieldError{Field: field}
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(r[field]), 64)
	if err != nil {
		return 0, &ParseError{Source: "record", Row: -1, Field: field, Err: err}
	}
	return v, nil
}

// InsightResult is one entry of an insight query response
type InsightResult struct {
	ForecastTime string `json:"forecastTime"`
	ConditionMet bool   `json:"conditionMet"`
}
