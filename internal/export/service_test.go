package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/entity"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/repository"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/repository/repotest"
)

func TestReportXLSX(t *testing.T) {
	ctx := context.Background()
	db := repotest.Open(t)
	logs := repository.NewOCRLogRepository(db, repotest.Discard())
	costs := repository.NewAPICostRepository(db, repotest.Discard())

	for _, docID := range []int64{1, 2} {
		doc := entity.Document{ID: docID, UserID: docID + 100, FileType: "image/png"}
		if err := logs.Create(ctx, entity.NewOCRLog(doc, "https://x/doc.png", "/srv/doc.png", time.Now())); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	rows, _ := logs.ListAll(ctx)
	first := rows[0].ID
	if err := logs.CompleteOCR(ctx, first, "DOB 1990-05-14"); err != nil {
		t.Fatalf("CompleteOCR() error = %v", err)
	}
	if err := logs.SaveDOBOutcome(ctx, first, entity.DOBExtracted("1990-05-14")); err != nil {
		t.Fatalf("SaveDOBOutcome() error = %v", err)
	}
	for _, c := range []float64{0.25, 0.5} {
		if _, err := costs.Insert(ctx, first, c); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	data, err := NewService(logs, costs, repotest.Discard()).ReportXLSX(ctx)
	if err != nil {
		t.Fatalf("ReportXLSX() error = %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer func() { _ = f.Close() }()

	logRows, err := f.GetRows(LogsSheet)
	if err != nil {
		t.Fatalf("GetRows(%s) error = %v", LogsSheet, err)
	}
	if len(logRows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(logRows))
	}
	if got := logRows[1]; got[5] != "dob_extracted" || got[6] != "1990-05-14" {
		t.Fatalf("unexpected first log row: %v", got)
	}
	if got := logRows[2]; got[4] != "pending" || got[5] != "0" {
		t.Fatalf("unexpected second log row: %v", got)
	}

	costRows, err := f.GetRows(CostsSheet)
	if err != nil {
		t.Fatalf("GetRows(%s) error = %v", CostsSheet, err)
	}
	if len(costRows) != 3 || costRows[1][1] != "0.75" || costRows[2][0] != "Total" || costRows[2][1] != "0.75" {
		t.Fatalf("unexpected cost rows: %v", costRows)
	}
}
