package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey"`
	Email        string    `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string    `gorm:"size:255;not null"`
	IsActive     bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`

	Watchlist []Watchlist `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Alerts    []Alert     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
