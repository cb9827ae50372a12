package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/avs-dob-pipeline/constants"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/entity"
)

type OCRLogRepository interface {
	Exists(ctx context.Context, docID, userID int64) (bool, error)
	Create(ctx context.Context, row entity.OCRLog) error
	GetByID(ctx context.Context, id int64) (*entity.OCRLog, error)
	ListPendingImages(ctx context.Context) ([]entity.OCRLog, error)
	ListAwaitingDOB(ctx context.Context) ([]entity.OCRLog, error)
	ListAll(ctx context.Context) ([]entity.OCRLog, error)
	CompleteOCR(ctx context.Context, id int64, text string) error
	SaveDOBOutcome(ctx context.Context, id int64, outcome entity.DOBOutcome) error
}

var ocrLogColumns = []string{
	"id", "doc_id", "user_id", "file_path", "file_disk_path", "file_type",
	"status", "status_reason", "read_status", "response_data", "dob",
}

type ocrLogRepo struct {
	db  *DB
	log *slog.Logger
	now func() time.Time
}

func NewOCRLogRepository(db *DB, log *slog.Logger) OCRLogRepository {
	if log == nil {
		log = slog.Default()
	}
	return &ocrLogRepo{db: db, log: log, now: time.Now}
}

func (r *ocrLogRepo) Exists(ctx context.Context, docID, userID int64) (bool, error) {
	b := r.db.builder()
	query, args := b.Select("id").
		From(b.Table(TableOCRLogs)).
		Where(entsql.And(entsql.EQ("doc_id", docID), entsql.EQ("user_id", userID))).
		Limit(1).
		Query()

	var id int64
	err := r.db.sql.QueryRowContext(ctx, query, args...).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		r.log.Error("ocr_logs existence check failed", "doc_id", docID, "user_id", userID, "err", err)
		return false, common.KindError(common.ErrDatabase, "check ocr_logs duplicate", err)
	}
	return true, nil
}

func (r *ocrLogRepo) Create(ctx context.Context, row entity.OCRLog) error {
	now := row.CreatedAt
	if now.IsZero() {
		now = r.now().UTC()
	}
	if row.Status == "" {
		row.Status = constants.DOBStatusPending
	}
	if row.ReadStatus == "" {
		row.ReadStatus = constants.ReadStatusPending
	}
	// stored lower-case so the image prefix match is case-insensitive on every dialect
	row.FileType = constants.NormalizeMIME(row.FileType)
	query, args := r.db.builder().Insert(TableOCRLogs).
		Columns("doc_id", "user_id", "file_path", "file_disk_path", "file_type", "status", "read_status", "created_at", "updated_at").
		Values(row.DocID, row.UserID, row.FilePath, nullString(row.FileDiskPath), row.FileType,
			string(row.Status), string(row.ReadStatus), now, now).
		Query()

	if _, err := r.db.sql.ExecContext(ctx, query, args...); err != nil {
		r.log.Error("ocr_logs insert failed", "doc_id", row.DocID, "user_id", row.UserID, "err", err)
		return common.KindError(common.ErrDatabase, "insert ocr_logs", err)
	}
	r.log.Info("ocr_logs row inserted", "doc_id", row.DocID, "user_id", row.UserID, "file_type", row.FileType)
	return nil
}

func (r *ocrLogRepo) GetByID(ctx context.Context, id int64) (*entity.OCRLog, error) {
	rows, err := r.list(ctx, entsql.EQ("id", id))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, common.KindError(common.ErrNotFound, fmt.Sprintf("ocr_logs id %d", id), nil)
	}
	return &rows[0], nil
}

// ListPendingImages returns rows awaiting OCR whose file_type is an image.
func (r *ocrLogRepo) ListPendingImages(ctx context.Context) ([]entity.OCRLog, error) {
	return r.list(ctx, entsql.And(
		entsql.EQ("read_status", string(constants.ReadStatusPending)),
		entsql.HasPrefix("file_type", constants.ImageMIMEPrefix),
	))
}

// ListAwaitingDOB returns rows with OCR text that the DOB stage has not attempted.
func (r *ocrLogRepo) ListAwaitingDOB(ctx context.Context) ([]entity.OCRLog, error) {
	return r.list(ctx, entsql.And(
		entsql.EQ("read_status", string(constants.ReadStatusCompleted)),
		entsql.EQ("status", string(constants.DOBStatusPending)),
	))
}

func (r *ocrLogRepo) ListAll(ctx context.Context) ([]entity.OCRLog, error) {
	return r.list(ctx, nil)
}

func (r *ocrLogRepo) list(ctx context.Context, where *entsql.Predicate) ([]entity.OCRLog, error) {
	b := r.db.builder()
	sel := b.Select(ocrLogColumns...).From(b.Table(TableOCRLogs))
	if where != nil {
		sel = sel.Where(where)
	}
	query, args := sel.OrderBy("doc_id", "id").Query()

	rows, err := r.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error("ocr_logs query failed", "err", err)
		return nil, common.KindError(common.ErrDatabase, "query ocr_logs", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.log.Warn("ocr_logs rows close failed", "err", err)
		}
	}(rows)

	var out []entity.OCRLog
	for rows.Next() {
		row, err := scanOCRLog(rows)
		if err != nil {
			return nil, common.KindError(common.ErrDatabase, "scan ocr_logs", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, common.KindError(common.ErrDatabase, "iterate ocr_logs", err)
	}
	return out, nil
}

func scanOCRLog(rows *sql.Rows) (entity.OCRLog, error) {
	var (
		row                             entity.OCRLog
		diskPath, reason, response, dob sql.NullString
		status, readStatus              string
	)
	err := rows.Scan(
		&row.ID, &row.DocID, &row.UserID, &row.FilePath, &diskPath, &row.FileType,
		&status, &reason, &readStatus, &response, &dob,
	)
	if err != nil {
		return entity.OCRLog{}, err
	}
	row.FileDiskPath = diskPath.String
	row.StatusReason = reason.String
	row.Status = constants.DOBStatus(status)
	row.ReadStatus = constants.ReadStatus(readStatus)
	if response.Valid {
		row.ResponseData = &response.String
	}
	if dob.Valid {
		row.DOB = &dob.String
	}
	return row, nil
}

// CompleteOCR stores the recognized text and flips read_status to completed.
// The transition only applies to a row that is still pending.
func (r *ocrLogRepo) CompleteOCR(ctx context.Context, id int64, text string) error {
	query, args := r.db.builder().Update(TableOCRLogs).
		Set("response_data", text).
		Set("read_status", string(constants.ReadStatusCompleted)).
		Set("updated_at", r.now().UTC()).
		Where(entsql.And(
			entsql.EQ("id", id),
			entsql.EQ("read_status", string(constants.ReadStatusPending)),
		)).
		Query()

	if err := r.execOne(ctx, query, args, fmt.Sprintf("pending ocr_logs id %d", id)); err != nil {
		r.log.Error("ocr_logs complete(OCR) failed", "log_id", id, "err", err)
		return err
	}
	r.log.Info("ocr_logs completed (OCR)", "log_id", id, "bytes", len(text))
	return nil
}

// SaveDOBOutcome records the DOB stage result for a row still at status '0'.
func (r *ocrLogRepo) SaveDOBOutcome(ctx context.Context, id int64, outcome entity.DOBOutcome) error {
	upd := r.db.builder().Update(TableOCRLogs).
		Set("dob", outcome.DOB).
		Set("status", string(outcome.Status)).
		Set("updated_at", r.now().UTC())
	if outcome.Succeeded() {
		upd = upd.SetNull("status_reason")
	} else {
		upd = upd.Set("status_reason", outcome.Reason)
	}
	query, args := upd.Where(entsql.And(
		entsql.EQ("id", id),
		entsql.EQ("read_status", string(constants.ReadStatusCompleted)),
		entsql.EQ("status", string(constants.DOBStatusPending)),
	)).Query()

	if err := r.execOne(ctx, query, args, fmt.Sprintf("dob-pending ocr_logs id %d", id)); err != nil {
		r.log.Error("ocr_logs save(DOB) failed", "log_id", id, "status", outcome.Status, "err", err)
		return err
	}
	if outcome.Succeeded() {
		r.log.Info("ocr_logs finished (DOB)", "log_id", id, "status", outcome.Status)
	} else {
		r.log.Warn("ocr_logs finished (DOB failed)", "log_id", id, "reason", outcome.Reason)
	}
	return nil
}

func (r *ocrLogRepo) execOne(ctx context.Context, query string, args []any, what string) error {
	res, err := r.db.sql.ExecContext(ctx, query, args...)
	if err != nil {
		return common.KindError(common.ErrDatabase, "update "+what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return common.KindError(common.ErrDatabase, "rows affected "+what, err)
	}
	if n == 0 {
		return common.KindError(common.ErrNotFound, what, nil)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
