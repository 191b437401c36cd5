package utils

import (
	"fmt"
	"math"
)

// LunarDistanceKm: среднее расстояние Земля-Луна.
const LunarDistanceKm = 384400.0

func KmToLunar(km float64) float64 {
	return km / LunarDistanceKm
}

func LunarToKm(lunar float64) float64 {
	return lunar * LunarDistanceKm
}

// FormatDistance печатает километры с разделителями тысяч и лунные дистанции в скобках.
func FormatDistance(km float64) string {
	return fmt.Sprintf("%s km (%.2f LD)", formatThousands(math.Round(km)), KmToLunar(km))
}

func formatThousands(v float64) string {
	s := fmt.Sprintf("%.0f", math.Abs(v))

	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}

	if v < 0 {
		return "-" + string(out)
	}
	return string(out)
}
