package export

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/repository"
)

const (
	LogsSheet  = "Logs"
	CostsSheet = "Costs"
)

// Service turns the processing log and cost ledger into an XLSX workbook.
type Service struct {
	logs   repository.OCRLogRepository
	costs  repository.APICostRepository
	logger *slog.Logger
}

func NewService(logs repository.OCRLogRepository, costs repository.APICostRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logs: logs, costs: costs, logger: logger}
}

// ReportXLSX returns a workbook with one row per ocr_logs entry and one row of
// accumulated cost per entry that was billed.
func (s *Service) ReportXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	rows, err := s.logs.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("query ocr_logs: %w", err)
	}
	totals, err := s.costs.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("query ocr_api_cost: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("export.xlsx.close_failed", "error", err)
		}
	}()
	if err := f.SetSheetName("Sheet1", LogsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(CostsSheet); err != nil {
		return nil, err
	}

	writeRow(f, LogsSheet, 1, "Log ID", "Doc ID", "User ID", "File Type", "Read Status", "Status", "DOB", "Reason", "File Path")
	for i, r := range rows {
		dob := ""
		if r.DOB != nil {
			dob = *r.DOB
		}
		writeRow(f, LogsSheet, i+2,
			r.ID, r.DocID, r.UserID, r.FileType,
			string(r.ReadStatus), string(r.Status), dob,
			common.Truncate(r.StatusReason, 140, "…"), r.FilePath,
		)
	}

	ids := make([]int64, 0, len(totals))
	for id := range totals {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	writeRow(f, CostsSheet, 1, "Log ID", "Cost")
	var grand float64
	for i, id := range ids {
		writeRow(f, CostsSheet, i+2, id, totals[id])
		grand += totals[id]
	}
	writeRow(f, CostsSheet, len(ids)+2, "Total", grand)

	_ = f.SetColWidth(LogsSheet, "A", "C", 10)
	_ = f.SetColWidth(LogsSheet, "D", "G", 14)
	_ = f.SetColWidth(LogsSheet, "H", "H", 48) // reason
	_ = f.SetColWidth(LogsSheet, "I", "I", 60) // path
	_ = f.SetColWidth(CostsSheet, "A", "B", 12)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"billed", len(ids),
		"cost", grand,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}
