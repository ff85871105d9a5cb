// Package excel imports a timetable spreadsheet into events.
//
// The first sheet is read. Each row is
//
//	Name | URL | Date | Time | Recurring until
//
// and an optional header row whose first cell is "Name" is ignored.
package excel

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/starosta-app/starosta-back/internal/models"
)

const (
	colName = iota
	colURL
	colDate
	colTime
	colRecurringUntil
)

// Parser turns spreadsheets into unsaved events.
type Parser struct {
	Log *zap.Logger
}

func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{Log: log}
}

// Result holds the events that parsed cleanly and one message per skipped row.
type Result struct {
	Events  []models.Event
	Skipped []string
}

// Parse reads the first sheet of an xlsx document. Events are assigned to
// groupID and marked active.
func (p *Parser) Parse(r io.Reader, groupID uint) (*Result, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := sheets[0]

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	res := &Result{}
	for i, row := range rows {
		rowNum := i + 1
		if i == 0 && strings.EqualFold(cell(row, colName), "name") {
			continue
		}
		if isBlank(row) {
			continue
		}

		e, err := parseRow(row)
		if err != nil {
			msg := fmt.Sprintf("Row %d: %v.", rowNum, err)
			res.Skipped = append(res.Skipped, msg)
			p.Log.Debug("skipped timetable row", zap.Int("row", rowNum), zap.Error(err))
			continue
		}
		e.GroupID = groupID
		res.Events = append(res.Events, *e)
	}

	p.Log.Info("parsed timetable",
		zap.String("sheet", sheet),
		zap.Int("events", len(res.Events)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

func parseRow(row []string) (*models.Event, error) {
	name := cell(row, colName)
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if len([]rune(name)) > 255 {
		return nil, fmt.Errorf("name is longer than 255 characters")
	}
	url := cell(row, colURL)
	if url == "" {
		return nil, fmt.Errorf("url is required")
	}

	date, err := parseDate(cell(row, colDate))
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", cell(row, colDate))
	}
	clock, err := parseTime(cell(row, colTime))
	if err != nil {
		return nil, fmt.Errorf("invalid time %q", cell(row, colTime))
	}

	e := &models.Event{
		Name:     name,
		URL:      url,
		Date:     date,
		Time:     clock,
		Weekday:  models.WeekdayOf(date),
		IsActive: true,
	}

	if raw := cell(row, colRecurringUntil); raw != "" {
		until, err := parseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid recurring until %q", raw)
		}
		e.Recurring = true
		e.RecurringUntil = &until
	}
	return e, nil
}

// parseDate accepts ISO dates and Excel serial day numbers.
func parseDate(s string) (time.Time, error) {
	if d, err := models.ParseDate(s); err == nil {
		return d, nil
	}
	serial, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return time.Time{}, err
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, err
	}
	return models.DateOnly(t), nil
}

// parseTime accepts HH:MM[:SS] and Excel day fractions such as 0.375.
func parseTime(s string) (string, error) {
	if t, err := models.ParseClock(s); err == nil {
		return t, nil
	}
	frac, err := strconv.ParseFloat(s, 64)
	if err != nil || frac < 0 || frac >= 1 {
		return "", fmt.Errorf("invalid time of day %q", s)
	}
	secs := int(math.Round(frac * 24 * 60 * 60))
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, secs/60%60, secs%60), nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
