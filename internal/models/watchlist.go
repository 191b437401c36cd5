package models

import "time"

const DefaultAlertDistanceKm = 1_000_000.0

type Watchlist struct {
	ID              uint      `gorm:"primaryKey"`
	UserID          uint      `gorm:"not null;uniqueIndex:idx_watchlist_user_asteroid,priority:1"`
	AsteroidID      string    `gorm:"size:20;not null;index;uniqueIndex:idx_watchlist_user_asteroid,priority:2"`
	AlertDistanceKm float64   `gorm:"not null"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`

	Asteroid *Asteroid `gorm:"foreignKey:AsteroidID;constraint:OnDelete:CASCADE"`
}

func (Watchlist) TableName() string {
	return "watchlist"
}
