package service

import (
	"math"
	"time"

	"cosmicwatch/internal/models"
)

type RiskTier string

const (
	RiskLow      RiskTier = "LOW"
	RiskModerate RiskTier = "MODERATE"
	RiskHigh     RiskTier = "HIGH"
	RiskExtreme  RiskTier = "EXTREME"
)

// RiskPoints считает аддитивную оценку: флаг опасности, максимальный диаметр (км)
// и расстояние промаха в лунных дистанциях. Отсутствующий диаметр считается
// нулем, отсутствующее расстояние считается бесконечностью.
func RiskPoints(asteroid *models.Asteroid, approach *models.CloseApproach) int {
	points := 0

	if asteroid.IsHazardous {
		points += 50
	}

	diameter := 0.0
	if asteroid.EstimatedDiameterMax != nil {
		diameter = *asteroid.EstimatedDiameterMax
	}
	switch {
	case diameter > 1.0:
		points += 30
	case diameter > 0.5:
		points += 20
	case diameter > 0.1:
		points += 10
	case diameter > 0.05:
		points += 5
	}

	lunar := math.Inf(1)
	if approach != nil && approach.MissDistanceLunar != nil {
		lunar = *approach.MissDistanceLunar
	}
	switch {
	case lunar < 1:
		points += 20
	case lunar < 5:
		points += 15
	case lunar < 10:
		points += 10
	case lunar < 20:
		points += 5
	}

	return points
}

func TierForPoints(points int) RiskTier {
	switch {
	case points >= 70:
		return RiskExtreme
	case points >= 50:
		return RiskHigh
	case points >= 30:
		return RiskModerate
	default:
		return RiskLow
	}
}

func ScoreRisk(asteroid *models.Asteroid, approach *models.CloseApproach) RiskTier {
	return TierForPoints(RiskPoints(asteroid, approach))
}

func RiskColor(tier RiskTier) string {
	switch tier {
	case RiskExtreme:
		return "#ff0000"
	case RiskHigh:
		return "#ff6600"
	case RiskModerate:
		return "#ffcc00"
	default:
		return "#00cc00"
	}
}

// ClosestApproach возвращает сближение с минимальным расстоянием промаха.
// Сближения без расстояния проигрывают любым измеренным.
func ClosestApproach(approaches []models.CloseApproach) *models.CloseApproach {
	var (
		closest *models.CloseApproach
		best    = math.Inf(1)
	)
	for i := range approaches {
		distance := math.Inf(1)
		if approaches[i].MissDistanceKm != nil {
			distance = *approaches[i].MissDistanceKm
		}
		if closest == nil || distance < best {
			closest = &approaches[i]
			best = distance
		}
	}
	return closest
}

// NextApproach возвращает ближайшее сближение начиная с today; если все в прошлом, первое из списка.
func NextApproach(approaches []models.CloseApproach, today time.Time) *models.CloseApproach {
	if len(approaches) == 0 {
		return nil
	}

	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	var next *models.CloseApproach
	for i := range approaches {
		date := approaches[i].ApproachDate
		if date.Before(day) {
			continue
		}
		if next == nil || date.Before(next.ApproachDate) {
			next = &approaches[i]
		}
	}
	if next == nil {
		return &approaches[0]
	}
	return next
}
