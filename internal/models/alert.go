package models

import "time"

const AlertTypeCloseApproach = "close_approach"

// Alert создается только генератором; ключ дедупликации: (user_id, asteroid_id, approach_date).
type Alert struct {
	ID           uint      `gorm:"primaryKey"`
	UserID       uint      `gorm:"not null;uniqueIndex:idx_alert_dedup,priority:1"`
	AsteroidID   string    `gorm:"size:20;not null;index;uniqueIndex:idx_alert_dedup,priority:2"`
	Message      string    `gorm:"size:500;not null"`
	AlertType    string    `gorm:"size:50;not null"`
	IsRead       bool      `gorm:"not null;index"`
	ApproachDate time.Time `gorm:"not null;uniqueIndex:idx_alert_dedup,priority:3"`
	CreatedAt    time.Time `gorm:"autoCreateTime;index"`

	Asteroid *Asteroid `gorm:"foreignKey:AsteroidID;constraint:OnDelete:CASCADE"`
}
