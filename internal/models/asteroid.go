package models

import (
	"time"

	"gorm.io/datatypes"
)

// Asteroid: околоземный объект из NeoWs с ключом NASA id.
type Asteroid struct {
	ID                   string `gorm:"primaryKey;size:20"`
	Name                 string `gorm:"size:255;not null;index"`
	AbsoluteMagnitude    *float64
	IsHazardous          bool `gorm:"not null;index"`
	EstimatedDiameterMin *float64
	EstimatedDiameterMax *float64
	NasaJPLURL           string    `gorm:"size:500"`
	LastUpdated          time.Time `gorm:"not null;index"`
	OrbitalData          datatypes.JSON

	CloseApproaches  []CloseApproach `gorm:"foreignKey:AsteroidID;constraint:OnDelete:CASCADE"`
	WatchlistEntries []Watchlist     `gorm:"foreignKey:AsteroidID;constraint:OnDelete:CASCADE"`
	Alerts           []Alert         `gorm:"foreignKey:AsteroidID;constraint:OnDelete:CASCADE"`
}

// CloseApproach уникален по (asteroid_id, approach_date).
type CloseApproach struct {
	ID                uint      `gorm:"primaryKey"`
	AsteroidID        string    `gorm:"size:20;not null;uniqueIndex:idx_approach_asteroid_date,priority:1"`
	ApproachDate      time.Time `gorm:"type:date;not null;index;uniqueIndex:idx_approach_asteroid_date,priority:2"`
	ApproachDateFull  *time.Time
	VelocityKmh       *float64
	MissDistanceKm    *float64
	MissDistanceLunar *float64
	OrbitingBody      string `gorm:"size:50;not null;default:Earth"`

	Asteroid *Asteroid `gorm:"foreignKey:AsteroidID"`
}

const DefaultOrbitingBody = "Earth"

// DedupTime: момент сближения, по которому дедуплицируются алерты.
// Если точного времени нет, берем полночь даты сближения (UTC).
func (a *CloseApproach) DedupTime() time.Time {
	if a.ApproachDateFull != nil {
		return a.ApproachDateFull.UTC()
	}
	d := a.ApproachDate.UTC()
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
