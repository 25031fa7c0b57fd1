package models

// GeoPoint is a GeoJSON point, stored [lng, lat] so MongoDB 2dsphere indexes
// apply directly.
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{
		Type:        "Point",
		Coordinates: []float64{lng, lat},
	}
}

func (p GeoPoint) Lng() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[0]
}

func (p GeoPoint) Lat() float64 {
	if len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

// Place couples a geographic point with its human-readable address.
type Place struct {
	Point   GeoPoint `json:"point" bson:"point"`
	Address string   `json:"address" bson:"address"`
}
