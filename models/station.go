package models

// Line is a reference railway line with its stations
type Line struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Stations []Station `json:"stations" yaml:"stations"`
}

// Station is a reference station on a line
type Station struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// AccessEntry is one line/station segment of a transit-access string
type AccessEntry struct {
	LineName       string `json:"line_name"`
	StationName    string `json:"station_name"`
	WalkingMinutes *int   `json:"walking_minutes"`
	RawText        string `json:"raw_text"`
}

// ResolvedAccess is an access entry matched against the reference lines
type ResolvedAccess struct {
	Entry       AccessEntry `json:"entry"`
	LineID      string      `json:"line_id"`
	LineName    string      `json:"line_name"`
	StationID   string      `json:"station_id"`
	StationName string      `json:"station_name"`
}
