package repository

import (
	"context"
	"database/sql"
	"log/slog"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/entity"
)

// VerifiedFlag is the users.age_verified / avsdocs.doc_approved value that marks
// a user or document as resolved.
const VerifiedFlag = "YES"

type DocumentRepository interface {
	// ListCandidates returns every live, unresolved document owned by a user who
	// is not age-verified, ordered by user_id ascending then doc id descending
	// (newest document of each user first).
	ListCandidates(ctx context.Context) ([]entity.Document, error)
}

type documentRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepo{db: db, logger: logger}
}

func (r *documentRepo) ListCandidates(ctx context.Context) ([]entity.Document, error) {
	b := r.db.builder()
	d := b.Table(TableDocuments).As("d")
	u := b.Table(TableUsers).As("u")
	query, args := b.Select(
		d.C("id"), d.C("user_id"), d.C("doc_url"), d.C("doc_file_type"), d.C("doc_approved"), d.C("is_deleted"),
	).
		From(d).
		Join(u).On(d.C("user_id"), u.C("id")).
		Where(entsql.And(
			entsql.Or(entsql.IsNull(u.C("age_verified")), entsql.NEQ(u.C("age_verified"), VerifiedFlag)),
			entsql.Or(entsql.IsNull(d.C("doc_approved")), entsql.NEQ(d.C("doc_approved"), VerifiedFlag)),
			entsql.EQ(d.C("is_deleted"), false),
		)).
		OrderBy(d.C("user_id"), entsql.Desc(d.C("id"))).
		Query()

	rows, err := r.db.sql.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to query candidate documents", "error", err)
		return nil, common.KindError(common.ErrDatabase, "query candidate documents", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			r.logger.Warn("failed to close candidate rows", "error", err)
		}
	}(rows)

	var out []entity.Document
	for rows.Next() {
		var (
			doc      entity.Document
			url      sql.NullString
			fileType sql.NullString
			approved sql.NullString
			deleted  sql.NullBool
		)
		if err := rows.Scan(&doc.ID, &doc.UserID, &url, &fileType, &approved, &deleted); err != nil {
			return nil, common.KindError(common.ErrDatabase, "scan candidate document", err)
		}
		doc.URL = url.String
		doc.FileType = fileType.String
		doc.Approved = approved.String
		doc.Deleted = deleted.Bool
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, common.KindError(common.ErrDatabase, "iterate candidate documents", err)
	}
	r.logger.Debug("candidate documents loaded", "count", len(out))
	return out, nil
}
