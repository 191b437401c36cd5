package handlers

import (
	"encoding/json"
	"time"

	"cosmicwatch/internal/models"
	"cosmicwatch/internal/service"
)

const dateLayout = "2006-01-02"

type CloseApproachResponse struct {
	ID                uint       `json:"id"`
	AsteroidID        string     `json:"asteroid_id"`
	ApproachDate      string     `json:"approach_date"`
	ApproachDateFull  *time.Time `json:"approach_date_full"`
	VelocityKmh       *float64   `json:"velocity_kmh"`
	MissDistanceKm    *float64   `json:"miss_distance_km"`
	MissDistanceLunar *float64   `json:"miss_distance_lunar"`
	OrbitingBody      string     `json:"orbiting_body"`
}

type AsteroidResponse struct {
	ID                   string                  `json:"id"`
	Name                 string                  `json:"name"`
	AbsoluteMagnitude    *float64                `json:"absolute_magnitude"`
	IsHazardous          bool                    `json:"is_hazardous"`
	EstimatedDiameterMin *float64                `json:"estimated_diameter_min"`
	EstimatedDiameterMax *float64                `json:"estimated_diameter_max"`
	NasaJPLURL           string                  `json:"nasa_jpl_url"`
	LastUpdated          time.Time               `json:"last_updated"`
	OrbitalData          json.RawMessage         `json:"orbital_data,omitempty"`
	CloseApproaches      []CloseApproachResponse `json:"close_approaches"`
	RiskScore            *string                 `json:"risk_score"`
	RiskPoints           *int                    `json:"risk_points,omitempty"`
	RiskColor            *string                 `json:"risk_color,omitempty"`
}

type FeedResponse struct {
	Count     int                `json:"count"`
	Asteroids []AsteroidResponse `json:"asteroids"`
}

type UpcomingApproachResponse struct {
	CloseApproachResponse
	AsteroidName string  `json:"asteroid_name"`
	IsHazardous  bool    `json:"is_hazardous"`
	RiskScore    *string `json:"risk_score"`
	RiskColor    *string `json:"risk_color,omitempty"`
}

type WatchlistResponse struct {
	ID              uint      `json:"id"`
	UserID          uint      `json:"user_id"`
	AsteroidID      string    `json:"asteroid_id"`
	AlertDistanceKm float64   `json:"alert_distance_km"`
	CreatedAt       time.Time `json:"created_at"`
	AsteroidName    *string   `json:"asteroid_name"`
	IsHazardous     *bool     `json:"is_hazardous,omitempty"`
}

type AlertResponse struct {
	ID           uint      `json:"id"`
	UserID       uint      `json:"user_id"`
	AsteroidID   string    `json:"asteroid_id"`
	Message      string    `json:"message"`
	AlertType    string    `json:"alert_type"`
	IsRead       bool      `json:"is_read"`
	ApproachDate time.Time `json:"approach_date"`
	CreatedAt    time.Time `json:"created_at"`
	AsteroidName *string   `json:"asteroid_name"`
}

type UserResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func newCloseApproachResponse(a models.CloseApproach) CloseApproachResponse {
	return CloseApproachResponse{
		ID:                a.ID,
		AsteroidID:        a.AsteroidID,
		ApproachDate:      a.ApproachDate.UTC().Format(dateLayout),
		ApproachDateFull:  a.ApproachDateFull,
		VelocityKmh:       a.VelocityKmh,
		MissDistanceKm:    a.MissDistanceKm,
		MissDistanceLunar: a.MissDistanceLunar,
		OrbitingBody:      a.OrbitingBody,
	}
}

func newAsteroidResponse(view service.AsteroidView) AsteroidResponse {
	a := view.Asteroid
	resp := AsteroidResponse{
		ID:                   a.ID,
		Name:                 a.Name,
		AbsoluteMagnitude:    a.AbsoluteMagnitude,
		IsHazardous:          a.IsHazardous,
		EstimatedDiameterMin: a.EstimatedDiameterMin,
		EstimatedDiameterMax: a.EstimatedDiameterMax,
		NasaJPLURL:           a.NasaJPLURL,
		LastUpdated:          a.LastUpdated,
		CloseApproaches:      make([]CloseApproachResponse, 0, len(a.CloseApproaches)),
	}
	if len(a.OrbitalData) > 0 && string(a.OrbitalData) != "null" {
		resp.OrbitalData = json.RawMessage(a.OrbitalData)
	}
	for _, approach := range a.CloseApproaches {
		resp.CloseApproaches = append(resp.CloseApproaches, newCloseApproachResponse(approach))
	}

	if view.HasRisk {
		score := string(view.Risk)
		color := service.RiskColor(view.Risk)
		points := view.RiskPoints
		resp.RiskScore = &score
		resp.RiskColor = &color
		resp.RiskPoints = &points
	}
	return resp
}

func newAsteroidList(views []service.AsteroidView) []AsteroidResponse {
	list := make([]AsteroidResponse, 0, len(views))
	for _, view := range views {
		list = append(list, newAsteroidResponse(view))
	}
	return list
}

func newUpcomingResponse(item service.UpcomingApproach) UpcomingApproachResponse {
	resp := UpcomingApproachResponse{CloseApproachResponse: newCloseApproachResponse(item.Approach)}
	if item.Approach.Asteroid != nil {
		resp.AsteroidName = item.Approach.Asteroid.Name
		resp.IsHazardous = item.Approach.Asteroid.IsHazardous
		score := string(item.Risk)
		color := service.RiskColor(item.Risk)
		resp.RiskScore = &score
		resp.RiskColor = &color
	}
	return resp
}

func newWatchlistResponse(entry models.Watchlist) WatchlistResponse {
	resp := WatchlistResponse{
		ID:              entry.ID,
		UserID:          entry.UserID,
		AsteroidID:      entry.AsteroidID,
		AlertDistanceKm: entry.AlertDistanceKm,
		CreatedAt:       entry.CreatedAt,
	}
	if entry.Asteroid != nil {
		name := entry.Asteroid.Name
		hazardous := entry.Asteroid.IsHazardous
		resp.AsteroidName = &name
		resp.IsHazardous = &hazardous
	}
	return resp
}

func newAlertResponse(alert models.Alert) AlertResponse {
	resp := AlertResponse{
		ID:           alert.ID,
		UserID:       alert.UserID,
		AsteroidID:   alert.AsteroidID,
		Message:      alert.Message,
		AlertType:    alert.AlertType,
		IsRead:       alert.IsRead,
		ApproachDate: alert.ApproachDate,
		CreatedAt:    alert.CreatedAt,
	}
	if alert.Asteroid != nil {
		name := alert.Asteroid.Name
		resp.AsteroidName = &name
	}
	return resp
}

func newUserResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}
