package export

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/coc-extractor/constants"
	"github.com/joseph-ayodele/coc-extractor/internal/aggregate"
)

const (
	sheetSamples = "Samples"
	sheetGeneral = "General Information"
)

// Service renders an aggregated extraction result as an XLSX workbook.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportSamplesXLSX returns an XLSX workbook (as bytes) with one sheet of
// flattened sample rows and one sheet of general information. Standard
// records produce one row per (sample, checked analysis); a sample with no
// checked analyses still gets a row. R&C Work Order records produce one row
// per (sample, parameter).
func (s *Service) ExportSamplesXLSX(resp *aggregate.Response) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetSamples); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	if _, err := f.NewSheet(sheetGeneral); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	activeIndex, _ := f.GetSheetIndex(sheetSamples)
	f.SetActiveSheet(activeIndex)

	rows, err := writeSampleSheet(f, resp.SampleDataInformation)
	if err != nil {
		return nil, err
	}
	if err := writeGeneralSheet(f, resp); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"samples", len(resp.SampleDataInformation),
		"rows", rows,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeSampleSheet(f *excelize.File, entries []aggregate.SampleEntry) (int, error) {
	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheetSamples, cell, v)
	}

	headers := standardHeaders
	if isRCDocument(entries) {
		headers = rcHeaders
	}
	for i, h := range headers {
		write(i+1, 1, h)
	}

	row := 2
	for _, entry := range entries {
		switch rec := entry.(type) {
		case *aggregate.SampleRecord:
			row = writeStandardRows(write, rec, row)
		case *aggregate.RCSampleRecord:
			row = writeRCRows(write, rec, row)
		}
	}

	_ = f.SetColWidth(sheetSamples, "A", "A", 22)
	_ = f.SetColWidth(sheetSamples, "B", "G", 14)
	_ = f.SetColWidth(sheetSamples, "H", "L", 18)

	return row - 2, nil
}

var standardHeaders = []string{
	"Customer Sample ID",
	"Matrix",
	"Comp/Grab",
	"Composite Start Date",
	"Composite Start Time",
	"Composite or Collected End Date",
	"Composite or Collected End Time",
	"# Cont",
	"Residual Chloride Result",
	"Residual Chloride Units",
	"Sample Comment",
	"Analysis Request",
}

var rcHeaders = []string{
	"SAMPLE DESCRIPTION",
	"R & C Work Order",
	"YR__ DATE",
	"TIME",
	"Total Number of Containers",
	"Parameter",
	"State",
	"Filtered (Y/N)",
	"Cooled (Y/N)",
	"Container Type (Plastic (P) / Glass (G))",
	"Container Volume in mL",
	"Sample Type (Grab (G) / Composite (C))",
	"Sample Source (WW, GW, DW, SW, S, Others)",
}

func isRCDocument(entries []aggregate.SampleEntry) bool {
	if len(entries) == 0 {
		return false
	}
	_, ok := entries[0].(*aggregate.RCSampleRecord)
	return ok
}

// writeStandardRows emits one row per checked analysis so the workbook stays
// flat; a sample with nothing checked still appears once.
func writeStandardRows(write func(col, row int, v any), rec *aggregate.SampleRecord, row int) int {
	var checked []string
	for code, state := range rec.AnalysisRequest {
		if state == constants.Checked {
			checked = append(checked, code)
		}
	}
	sort.Strings(checked)
	if len(checked) == 0 {
		checked = []string{constants.AbsentValue}
	}

	for _, analysis := range checked {
		write(1, row, rec.CustomerSampleID)
		write(2, row, rec.Matrix)
		write(3, row, rec.CompGrab)
		write(4, row, rec.StartDate)
		write(5, row, rec.StartTime)
		write(6, row, rec.EndDate)
		write(7, row, rec.EndTime)
		write(8, row, rec.Containers)
		write(9, row, rec.ResidualResult)
		write(10, row, rec.ResidualUnits)
		write(11, row, truncate(rec.SampleComment, 140))
		write(12, row, analysis)
		row++
	}
	return row
}

func writeRCRows(write func(col, row int, v any), rec *aggregate.RCSampleRecord, row int) int {
	codes := make([]string, 0, len(rec.Parameters))
	for code := range rec.Parameters {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	base := func(r int) {
		write(1, r, rec.Description)
		write(2, r, rec.WorkOrder)
		write(3, r, rec.Date)
		write(4, r, rec.Time)
		write(5, r, rec.TotalContainers)
	}

	if len(codes) == 0 {
		base(row)
		write(6, row, constants.AbsentValue)
		write(7, row, string(constants.Unchecked))
		return row + 1
	}

	for _, code := range codes {
		meta := rec.Parameters[code]
		base(row)
		write(6, row, code)
		write(7, row, string(meta.State))
		write(8, row, meta.Filtered)
		write(9, row, meta.Cooled)
		write(10, row, meta.ContainerType)
		write(11, row, meta.ContainerVolume)
		write(12, row, meta.SampleType)
		write(13, row, meta.SampleSource)
		row++
	}
	return row
}

func writeGeneralSheet(f *excelize.File, resp *aggregate.Response) error {
	write := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheetGeneral, cell, v)
	}

	for i, h := range []string{"Key", "Value", "Page"} {
		write(i+1, 1, h)
	}
	row := 2
	for _, field := range resp.GeneralInformation {
		write(1, row, field.Key)
		write(2, row, truncate(field.Value, 200))
		write(3, row, field.Page)
		row++
	}

	_ = f.SetColWidth(sheetGeneral, "A", "A", 36)
	_ = f.SetColWidth(sheetGeneral, "B", "B", 60)
	return nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
