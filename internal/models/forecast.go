package models

import "time"

// ForecastEntry is one day of a shaped forecast: the daytime period paired
// with the night that follows it.
type ForecastEntry struct {
	AfternoonIcon        string `json:"afternoon_icon"`
	AfternoonName        string `json:"afternoon_name"`
	AfternoonTemperature int    `json:"afternoon_temperature"`
	NightIcon            string `json:"night_icon"`
	NightName            string `json:"night_name"`
	NightTemperature     int    `json:"night_temperature"`
}

// Forecast is the shaped result of a weather lookup: daily entries in
// chronological order and the current temperature from the first hourly period.
type Forecast struct {
	Zip                string          `json:"zip,omitempty"`
	Days               []ForecastEntry `json:"days"`
	CurrentTemperature int             `json:"current_temperature"`
	ExpiresAt          time.Time       `json:"expires_at,omitzero"`
}
