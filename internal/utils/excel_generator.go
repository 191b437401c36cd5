package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"cosmicwatch/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	alertsSheet = "Alerts"
	infoSheet   = "Info"
	timeLayout  = "2006-01-02 15:04:05"
)

var alertHeaders = []string{
	"ID", "Asteroid ID", "Asteroid", "Message", "Type", "Read", "Approach Date", "Miss Distance", "Created At",
}

// WriteAlertsExcel пишет алерты пользователя в xlsx: лист с алертами и лист со сводкой.
func WriteAlertsExcel(w io.Writer, alerts []models.Alert) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", alertsSheet); err != nil {
		return err
	}

	for i, header := range alertHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(alertsSheet, cell, header); err != nil {
			return err
		}
	}

	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		lastHeader, _ := excelize.CoordinatesToCellName(len(alertHeaders), 1)
		f.SetCellStyle(alertsSheet, "A1", lastHeader, style)
	}

	for rowIdx, alert := range alerts {
		for colIdx, value := range alertRow(alert) {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2) // Заголовок в первой строке
			if err := f.SetCellValue(alertsSheet, cell, value); err != nil {
				return err
			}
		}
	}

	// Ширина колонок; сообщение длинное
	for i := 1; i <= len(alertHeaders); i++ {
		colName, _ := excelize.ColumnNumberToName(i)
		width := 20.0
		if alertHeaders[i-1] == "Message" {
			width = 90
		}
		f.SetColWidth(alertsSheet, colName, colName, width)
	}

	// Непрочитанные подсвечиваем
	if len(alerts) > 0 {
		unreadRule := []excelize.ConditionalFormatOptions{
			{
				Type:     "cell",
				Criteria: "==",
				Value:    "FALSE",
				Format:   getConditionalFormatStyle(f, "#FFE5CC"),
			},
		}
		if err := f.SetConditionalFormat(alertsSheet, fmt.Sprintf("F2:F%d", len(alerts)+1), unreadRule); err != nil {
			return err
		}
	}

	if err := createInfoSheet(f, alerts); err != nil {
		return err
	}

	index, err := f.GetSheetIndex(alertsSheet)
	if err == nil {
		f.SetActiveSheet(index)
	}

	return f.Write(w)
}

// WriteAlertsCSV: те же колонки, что и в xlsx.
func WriteAlertsCSV(w io.Writer, alerts []models.Alert) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(alertHeaders); err != nil {
		return err
	}

	for _, alert := range alerts {
		row := alertRow(alert)
		record := make([]string, len(row))
		for i, value := range row {
			switch v := value.(type) {
			case uint:
				record[i] = strconv.FormatUint(uint64(v), 10)
			case bool:
				record[i] = strconv.FormatBool(v)
			default:
				record[i] = fmt.Sprint(v)
			}
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func alertRow(alert models.Alert) []interface{} {
	name := ""
	if alert.Asteroid != nil {
		name = alert.Asteroid.Name
	}

	return []interface{}{
		alert.ID,
		alert.AsteroidID,
		name,
		alert.Message,
		alert.AlertType,
		alert.IsRead,
		alert.ApproachDate.UTC().Format(timeLayout),
		missDistance(alert),
		alert.CreatedAt.UTC().Format(timeLayout),
	}
}

// missDistance ищет сближение алерта среди подгруженных сближений объекта.
// Если километров нет, пересчитывает из лунных дистанций.
func missDistance(alert models.Alert) string {
	if alert.Asteroid == nil {
		return ""
	}
	for i := range alert.Asteroid.CloseApproaches {
		approach := &alert.Asteroid.CloseApproaches[i]
		if !approach.DedupTime().Equal(alert.ApproachDate) {
			continue
		}
		switch {
		case approach.MissDistanceKm != nil:
			return FormatDistance(*approach.MissDistanceKm)
		case approach.MissDistanceLunar != nil:
			return FormatDistance(LunarToKm(*approach.MissDistanceLunar))
		}
		return ""
	}
	return ""
}

func createInfoSheet(f *excelize.File, alerts []models.Alert) error {
	if _, err := f.NewSheet(infoSheet); err != nil {
		return err
	}

	unread := 0
	for _, alert := range alerts {
		if !alert.IsRead {
			unread++
		}
	}

	metadata := [][2]interface{}{
		{"Report Generated", time.Now().UTC().Format(timeLayout)},
		{"Total Alerts", len(alerts)},
		{"Unread Alerts", unread},
	}
	if len(alerts) > 0 {
		first, last := alerts[0].ApproachDate, alerts[0].ApproachDate
		for _, alert := range alerts {
			if alert.ApproachDate.Before(first) {
				first = alert.ApproachDate
			}
			if alert.ApproachDate.After(last) {
				last = alert.ApproachDate
			}
		}
		metadata = append(metadata, [2]interface{}{
			"Approach Range",
			fmt.Sprintf("%s to %s", first.UTC().Format(timeLayout), last.UTC().Format(timeLayout)),
		})
	}

	for i, entry := range metadata {
		row := i + 1
		f.SetCellValue(infoSheet, fmt.Sprintf("A%d", row), entry[0])
		f.SetCellValue(infoSheet, fmt.Sprintf("B%d", row), entry[1])
	}
	f.SetColWidth(infoSheet, "A", "B", 30)

	return nil
}

// getConditionalFormatStyle создает стиль для условного форматирования
func getConditionalFormatStyle(f *excelize.File, color string) *int {
	style, err := f.NewConditionalStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{color},
			Pattern: 1,
		},
	})
	if err != nil {
		return nil
	}
	return &style
}
