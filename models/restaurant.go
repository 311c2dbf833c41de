package models

import "time"

// GeoPointType is the only geometry type stored on a restaurant
const GeoPointType = "Point"

type Restaurant struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null" validate:"required"`
	CuisineType  string    `json:"cuisineType" gorm:"not null" validate:"required"`
	LocationText string    `json:"locationText" gorm:"not null" validate:"required"`
	Description  string    `json:"description"`
	ImageURL     string    `json:"imageUrl" validate:"omitempty,url"`
	Geo          *GeoPoint `json:"geo,omitempty" gorm:"serializer:json" validate:"-"`
	Owners       []string  `json:"owners" gorm:"serializer:json;not null" validate:"min=1,dive,required"`
	Visits       []Visit   `json:"visits" gorm:"serializer:json"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// GeoPoint is a GeoJSON point: coordinates are [longitude, latitude].
// A restaurant either carries a complete GeoPoint or none at all.
type GeoPoint struct {
	Type        string    `json:"type" validate:"eq=Point"`
	Coordinates []float64 `json:"coordinates" validate:"len=2"`
	PlaceName   string    `json:"placeName,omitempty"`
}

// NewGeoPoint builds a complete point from a longitude/latitude pair
func NewGeoPoint(lng, lat float64, placeName string) *GeoPoint {
	return &GeoPoint{
		Type:        GeoPointType,
		Coordinates: []float64{lng, lat},
		PlaceName:   placeName,
	}
}

type Visit struct {
	Date    time.Time `json:"date"`
	Comment string    `json:"comment"`
}

// HasVisits reports whether at least one visit was recorded
func (r *Restaurant) HasVisits() bool {
	return len(r.Visits) > 0
}

// LastVisit returns the most recently appended visit, which is not
// necessarily the one with the latest date.
func (r *Restaurant) LastVisit() (Visit, bool) {
	if len(r.Visits) == 0 {
		return Visit{}, false
	}
	return r.Visits[len(r.Visits)-1], true
}

// IsOwnedBy reports whether email is listed among the owners
func (r *Restaurant) IsOwnedBy(email string) bool {
	if email == "" {
		return false
	}
	for _, o := range r.Owners {
		if o == email {
			return true
		}
	}
	return false
}
