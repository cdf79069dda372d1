package model

// WeatherInfo is display-only forecast text attached to the trip.
type WeatherInfo struct {
	Temp      string `json:"temp"`
	Condition string `json:"cond"`
	Advice    string `json:"advice,omitempty"`
}

// TripInfo is the trip's shared metadata.
type TripInfo struct {
	Title      string      `json:"title"`
	Date       string      `json:"date"`
	Location   string      `json:"location"`
	Weather    WeatherInfo `json:"weather"`
	WeatherURL string      `json:"weatherUrl,omitempty"`
	AlbumURL   string      `json:"albumUrl,omitempty"`
}
