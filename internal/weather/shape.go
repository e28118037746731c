package weather

import "weather-lookup/internal/models"

// shapePeriods pairs 12-hour periods into day/night forecast entries.
//
// A forecast issued at night starts with the remainder of that night and ends
// with a lone daytime period, so both ends are dropped to realign on day/night
// boundaries. A trailing unpaired period is ignored.
func shapePeriods(periods []period) []models.ForecastEntry {
	if len(periods) > 0 && !periods[0].IsDaytime {
		periods = periods[1:]
		if len(periods) > 0 {
			periods = periods[:len(periods)-1]
		}
	}

	days := make([]models.ForecastEntry, 0, len(periods)/2)
	for i := 0; i+1 < len(periods); i += 2 {
		afternoon, night := periods[i], periods[i+1]
		days = append(days, models.ForecastEntry{
			AfternoonIcon:        afternoon.Icon,
			AfternoonName:        afternoon.Name,
			AfternoonTemperature: afternoon.Temperature,
			NightIcon:            night.Icon,
			NightName:            night.Name,
			NightTemperature:     night.Temperature,
		})
	}
	return days
}
