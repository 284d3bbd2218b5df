package models

// TableSource locates a sheet inside a workbook.
type TableSource struct {
	Path       string `json:"path"`
	Sheet      string `json:"sheet,omitempty"`
	DateColumn string `json:"date_column"`
}

// MeteoSource is a meteorological covariate workbook.
type MeteoSource struct {
	Name  string      `json:"name"`
	Label string      `json:"label"`
	Unit  string      `json:"unit,omitempty"`
	Table TableSource `json:"table"`
}

// ForecastSource is an out-of-band forecast, read either from a CSV file or a model endpoint.
type ForecastSource struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Color string `json:"color"`
	Path  string `json:"path,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Dataset is one configured analysis: a commodity at an administrative level
// with a fixed region whitelist.
type Dataset struct {
	Name        string           `json:"name"`
	Commodity   string           `json:"commodity"`
	Level       string           `json:"level"`
	Regions     []string         `json:"regions"`
	Price       TableSource      `json:"price"`
	PriceWindow DateWindow       `json:"price_window"`
	MeteoWindow DateWindow       `json:"meteo_window"`
	Meteo       []MeteoSource    `json:"meteo,omitempty"`
	Forecasts   []ForecastSource `json:"forecasts,omitempty"`
}

// HasRegion reports whether region is on the dataset whitelist.
func (d Dataset) HasRegion(region string) bool {
	for _, r := range d.Regions {
		if r == region {
			return true
		}
	}
	return false
}

// Forecast returns the forecast source with the given name.
func (d Dataset) Forecast(name string) (ForecastSource, bool) {
	for _, f := range d.Forecasts {
		if f.Name == name {
			return f, true
		}
	}
	return ForecastSource{}, false
}
