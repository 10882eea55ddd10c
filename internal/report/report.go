package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"energy-import/internal/backfill/application"
)

// BuildRunCSV renders a per-metric CSV for one backfill run.
func BuildRunCSV(result application.RunResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{
		"metric",
		"statistic_id",
		"baseline",
		"baseline_strategy",
		"attempted",
		"written",
		"boundary_shift",
		"skipped",
		"error",
	}); err != nil {
		return nil, err
	}
	for _, m := range result.Metrics {
		if err := writer.Write([]string{
			string(m.Metric),
			m.StatisticID,
			formatFloat(m.Baseline),
			m.Strategy,
			strconv.Itoa(m.Attempted),
			strconv.Itoa(m.Written),
			formatFloat(m.Shift),
			strconv.FormatBool(m.Skipped),
			m.Error,
		}); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildRunPDF renders a minimal PDF summary for one backfill run.
func BuildRunPDF(result application.RunResult) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Energy Import Run Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Range: %s to %s", result.RangeStart.Format("2006-01-02"), result.RangeEnd.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Timezone: %s", result.Timezone))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Mode: %s", result.Mode))
	pdf.Ln(5)
	if result.DryRun {
		pdf.Cell(0, 6, "Dry run: yes")
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Started: %s", result.StartedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Finished: %s", result.FinishedAt.Format(time.RFC3339)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Total points written: %d", result.TotalWritten()))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(45, 6, "Metric", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Baseline (kWh)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Attempted", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Written", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Shift (kWh)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, m := range result.Metrics {
		pdf.CellFormat(45, 6, string(m.Metric), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.3f", m.Baseline), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, strconv.Itoa(m.Attempted), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, strconv.Itoa(m.Written), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%+.3f", m.Shift), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, metricStatus(m), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildRunXLSX renders a minimal XLSX for one backfill run.
func BuildRunXLSX(result application.RunResult) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	metricsSheet := "metrics"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(metricsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Energy Import Run Report")
	_ = f.SetCellValue(summarySheet, "A3", "Range Start")
	_ = f.SetCellValue(summarySheet, "B3", result.RangeStart.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A4", "Range End")
	_ = f.SetCellValue(summarySheet, "B4", result.RangeEnd.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A5", "Timezone")
	_ = f.SetCellValue(summarySheet, "B5", result.Timezone)
	_ = f.SetCellValue(summarySheet, "A6", "Mode")
	_ = f.SetCellValue(summarySheet, "B6", string(result.Mode))
	_ = f.SetCellValue(summarySheet, "A7", "Dry Run")
	_ = f.SetCellValue(summarySheet, "B7", result.DryRun)
	_ = f.SetCellValue(summarySheet, "A8", "Started")
	_ = f.SetCellValue(summarySheet, "B8", result.StartedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A9", "Finished")
	_ = f.SetCellValue(summarySheet, "B9", result.FinishedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A10", "Total Written")
	_ = f.SetCellValue(summarySheet, "B10", result.TotalWritten())

	_ = f.SetCellValue(metricsSheet, "A1", "Metric")
	_ = f.SetCellValue(metricsSheet, "B1", "Statistic ID")
	_ = f.SetCellValue(metricsSheet, "C1", "Baseline (kWh)")
	_ = f.SetCellValue(metricsSheet, "D1", "Strategy")
	_ = f.SetCellValue(metricsSheet, "E1", "Attempted")
	_ = f.SetCellValue(metricsSheet, "F1", "Written")
	_ = f.SetCellValue(metricsSheet, "G1", "Shift (kWh)")
	_ = f.SetCellValue(metricsSheet, "H1", "Status")
	for i, m := range result.Metrics {
		row := i + 2
		_ = f.SetCellValue(metricsSheet, fmt.Sprintf("A%d", row), string(m.Metric))
		_ = f.SetCellValue(metricsSheet, fmt.Sprintf("B%d", row), m.StatisticID)
		_ = f.SetCellValue(metricsSheet, fmt.Sprintf("C%d", row), m.Baseline)
		_ = f.SetCellValue(metricsSheet, fmt.Sprintf("D%d", row), m.Strategy)
		_ = f.SetCellValue(metricsSheet, fmt.Sprintf("E%d", row), m.Attempted)
		_ = f.SetCellValue(metricsSheet, fmt.Sprintf("F%d", row), m.Written)
		_ = f.SetCellValue(metricsSheet, fmt.Sprintf("G%d", row), m.Shift)
		_ = f.SetCellValue(metricsSheet, fmt.Sprintf("H%d", row), metricStatus(m))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func metricStatus(m application.MetricResult) string {
	switch {
	case m.Error != "":
		return "error"
	case m.Skipped:
		return "skipped"
	default:
		return "ok"
	}
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
