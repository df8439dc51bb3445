// Package report writes the device security report as an xlsx workbook.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"iot-posture-monitor/internal/domain/device"
	"iot-posture-monitor/internal/domain/posture"
	"iot-posture-monitor/internal/logger"
	appErrors "iot-posture-monitor/pkg/errors"
)

const (
	SheetName = "Report"

	yes = "Yes"
	no  = "No"
)

// Columns is the header row of the report sheet.
var Columns = []string{"name", "ip", "strong_password", "up_to_date", "status"}

// Result describes a written report file.
type Result struct {
	Path  string `json:"path"`
	Rows  int    `json:"rows"`
	Bytes int64  `json:"bytes"`
}

// Row is one report line read back from a workbook.
type Row struct {
	Name           string
	IP             string
	StrongPassword bool
	UpToDate       bool
	Status         posture.Status
}

// FormatBool is the one place a boolean becomes report text.
func FormatBool(b bool) string {
	if b {
		return yes
	}
	return no
}

func parseBool(s string) (bool, error) {
	switch s {
	case yes:
		return true, nil
	case no:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected boolean cell %q", s)
	}
}

// Generate analyzes every record against policy and writes the workbook to
// destination, replacing any existing file.
func Generate(records []*device.Device, policy posture.Policy, destination string) (*Result, error) {
	f, err := build(posture.AnalyzeAll(records, policy))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := f.SaveAs(destination); err != nil {
		return nil, appErrors.IO(destination, err)
	}

	info, err := os.Stat(destination)
	if err != nil {
		return nil, appErrors.IO(destination, err)
	}

	logger.Info("Report saved",
		zap.String("path", destination),
		zap.Int("rows", len(records)),
		zap.Int64("bytes", info.Size()),
	)

	return &Result{Path: destination, Rows: len(records), Bytes: info.Size()}, nil
}

// Write streams the same workbook Generate would save.
func Write(w io.Writer, records []*device.Device, policy posture.Policy) (int64, error) {
	f, err := build(posture.AnalyzeAll(records, policy))
	if err != nil {
		return 0, err
	}
	defer f.Close()

	n, err := f.WriteTo(w)
	if err != nil {
		return n, appErrors.IO("stream", err)
	}
	return n, nil
}

func build(verdicts []posture.Verdict) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		f.Close()
		return nil, appErrors.IO(SheetName, err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		f.Close()
		return nil, appErrors.IO(SheetName, err)
	}

	for i, v := range verdicts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, appErrors.IO(SheetName, err)
		}
		row := []interface{}{v.Name, v.IP, FormatBool(v.StrongPassword), FormatBool(v.UpToDate), string(v.Status)}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			f.Close()
			return nil, appErrors.IO(SheetName, err)
		}
	}

	styleSheet(f, SheetName)
	return f, nil
}

// styleSheet bolds the header row and widens the columns. Failures are logged
// and leave the data intact.
func styleSheet(f *excelize.File, sheet string) {
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		logger.Warn("Failed to create report header style", zap.Error(err))
	} else if err := f.SetRowStyle(sheet, 1, 1, style); err != nil {
		logger.Warn("Failed to style report header", zap.String("sheet", sheet), zap.Error(err))
	}
	if err := f.SetColWidth(sheet, "A", "E", 18); err != nil {
		logger.Warn("Failed to set report column widths", zap.String("sheet", sheet), zap.Error(err))
	}
}

// Load reads the data rows of a report written by Generate.
func Load(path string) ([]Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, appErrors.IO(path, err)
	}
	defer f.Close()

	cells, err := f.GetRows(SheetName)
	if err != nil {
		return nil, appErrors.IO(path, err)
	}
	if len(cells) == 0 {
		return nil, appErrors.IO(path, fmt.Errorf("sheet %s has no header", SheetName))
	}

	rows := make([]Row, 0, len(cells)-1)
	for i, c := range cells[1:] {
		if len(c) < len(Columns) {
			return nil, appErrors.IO(path, fmt.Errorf("row %d has %d cells", i+2, len(c)))
		}
		strong, err := parseBool(c[2])
		if err != nil {
			return nil, appErrors.IO(path, err)
		}
		upToDate, err := parseBool(c[3])
		if err != nil {
			return nil, appErrors.IO(path, err)
		}
		rows = append(rows, Row{
			Name:           c[0],
			IP:             c[1],
			StrongPassword: strong,
			UpToDate:       upToDate,
			Status:         posture.Status(c[4]),
		})
	}
	return rows, nil
}
