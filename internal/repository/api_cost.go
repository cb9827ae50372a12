package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/entity"
)

// APICostRepository is the append-only ledger of LLM spend. Rows are never
// updated or removed.
type APICostRepository interface {
	Insert(ctx context.Context, fileID int64, cost float64) (int64, error)
	List(ctx context.Context) ([]entity.APICost, error)
	// Totals sums cost per ocr_logs id.
	Totals(ctx context.Context) (map[int64]float64, error)
}

type apiCostRepo struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewAPICostRepository(db *DB, logger *slog.Logger) APICostRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &apiCostRepo{db: db, logger: logger, now: time.Now}
}

func (r *apiCostRepo) Insert(ctx context.Context, fileID int64, cost float64) (int64, error) {
	query, args := r.db.builder().Insert(TableAPICost).
		Columns("file_id", "cost", "created_at").
		Values(fileID, cost, r.now().UTC()).
		Query()

	res, err := r.db.sql.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to record api cost", "log_id", fileID, "cost", cost, "error", err)
		return 0, common.KindError(common.ErrDatabase, "insert ocr_api_cost", err)
	}
	// postgres via pgx does not report LastInsertId; the id is informational only
	id, err := res.LastInsertId()
	if err != nil {
		id = 0
	}
	r.logger.Debug("api cost recorded", "log_id", fileID, "cost", cost)
	return id, nil
}

func (r *apiCostRepo) List(ctx context.Context) ([]entity.APICost, error) {
	b := r.db.builder()
	query, args := b.Select("id", "file_id", "cost").
		From(b.Table(TableAPICost)).
		OrderBy("id").
		Query()

	rows, err := r.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.KindError(common.ErrDatabase, "query ocr_api_cost", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.logger.Warn("failed to close cost rows", "error", err)
		}
	}(rows)

	var out []entity.APICost
	for rows.Next() {
		var c entity.APICost
		if err := rows.Scan(&c.ID, &c.FileID, &c.Cost); err != nil {
			return nil, common.KindError(common.ErrDatabase, "scan ocr_api_cost", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, common.KindError(common.ErrDatabase, "iterate ocr_api_cost", err)
	}
	return out, nil
}

func (r *apiCostRepo) Totals(ctx context.Context) (map[int64]float64, error) {
	costs, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	totals := make(map[int64]float64, len(costs))
	for _, c := range costs {
		totals[c.FileID] += c.Cost
	}
	return totals, nil
}
