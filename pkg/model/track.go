package model

// TrackInfo describes a track entry of the catalog together with the telemetry
// file recorded for it.
//
//nolint:tagliatelle //different structs need to be mapped
type TrackInfo struct {
	ID        string  `json:"id" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	File      string  `json:"file" yaml:"file"`
	TotalLaps int     `json:"totalLaps" yaml:"totalLaps"`
	Length    float64 `json:"lengthKm" yaml:"lengthKm"`
	TyreWear  string  `json:"tyreWear" yaml:"tyreWear"`
	Flag      string  `json:"flag" yaml:"flag"`
}
