package domain

// Position is a map location picked for a rating.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DefaultPosition is where the location picker starts (central Paris).
var DefaultPosition = Position{Lat: 48.8588, Lng: 2.3468}

// FillMissing sets lat and lng in data from p when they are absent. Present
// values, valid or not, are left for Validate to judge.
func (p Position) FillMissing(data map[string]any) {
	if _, ok := data["lat"]; !ok {
		data["lat"] = p.Lat
	}
	if _, ok := data["lng"]; !ok {
		data["lng"] = p.Lng
	}
}
