package repository

import (
	"context"
	"log/slog"

	"entgo.io/ent/dialect"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
)

// Table names shared by the repositories.
const (
	TableDocuments = "avsdocs"
	TableUsers     = "users"
	TableOCRLogs   = "ocr_logs"
	TableAPICost   = "ocr_api_cost"
)

var pipelineDDL = map[string][]string{
	dialect.MySQL: {
		"CREATE TABLE IF NOT EXISTS `ocr_logs` (" +
			"`id` BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY," +
			"`doc_id` BIGINT NOT NULL," +
			"`user_id` BIGINT NOT NULL," +
			"`file_path` VARCHAR(1024) NOT NULL," +
			"`file_disk_path` VARCHAR(1024) NULL," +
			"`file_type` VARCHAR(128) NOT NULL," +
			"`status` VARCHAR(32) NOT NULL DEFAULT '0'," +
			"`status_reason` TEXT NULL," +
			"`read_status` VARCHAR(32) NOT NULL DEFAULT 'pending'," +
			"`response_data` LONGTEXT NULL," +
			"`dob` VARCHAR(32) NULL," +
			"`created_at` DATETIME NULL," +
			"`updated_at` DATETIME NULL," +
			"UNIQUE KEY `ocr_logs_doc_user` (`doc_id`, `user_id`)," +
			"KEY `ocr_logs_progress` (`read_status`, `status`))",
		"CREATE TABLE IF NOT EXISTS `ocr_api_cost` (" +
			"`id` BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY," +
			"`file_id` BIGINT NOT NULL," +
			"`cost` DECIMAL(12,6) NOT NULL," +
			"`created_at` DATETIME NOT NULL," +
			"KEY `ocr_api_cost_file` (`file_id`))",
	},
	dialect.Postgres: {
		`CREATE TABLE IF NOT EXISTS ocr_logs (
	id BIGSERIAL PRIMARY KEY,
	doc_id BIGINT NOT NULL,
	user_id BIGINT NOT NULL,
	file_path TEXT NOT NULL,
	file_disk_path TEXT,
	file_type TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT '0',
	status_reason TEXT,
	read_status TEXT NOT NULL DEFAULT 'pending',
	response_data TEXT,
	dob TEXT,
	created_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ,
	UNIQUE (doc_id, user_id)
)`,
		`CREATE INDEX IF NOT EXISTS ocr_logs_progress ON ocr_logs(read_status, status)`,
		`CREATE TABLE IF NOT EXISTS ocr_api_cost (
	id BIGSERIAL PRIMARY KEY,
	file_id BIGINT NOT NULL,
	cost NUMERIC(12,6) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS ocr_api_cost_file ON ocr_api_cost(file_id)`,
	},
	dialect.SQLite: {
		`CREATE TABLE IF NOT EXISTS ocr_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	doc_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	file_path TEXT NOT NULL,
	file_disk_path TEXT,
	file_type TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT '0',
	status_reason TEXT,
	read_status TEXT NOT NULL DEFAULT 'pending',
	response_data TEXT,
	dob TEXT,
	created_at DATETIME,
	updated_at DATETIME,
	UNIQUE (doc_id, user_id)
)`,
		`CREATE INDEX IF NOT EXISTS ocr_logs_progress ON ocr_logs(read_status, status)`,
		`CREATE TABLE IF NOT EXISTS ocr_api_cost (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_id INTEGER NOT NULL,
	cost REAL NOT NULL,
	created_at DATETIME NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS ocr_api_cost_file ON ocr_api_cost(file_id)`,
	},
}

// EnsureSchema creates the pipeline-owned tables (ocr_logs, ocr_api_cost) when
// missing. avsdocs and users belong to the user-management system and are
// never created here.
func EnsureSchema(ctx context.Context, db *DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	stmts, ok := pipelineDDL[db.dialect]
	if !ok {
		return common.NewAppError("CONFIG_ERROR", "no schema for dialect "+db.dialect, common.ErrConfig)
	}
	for _, stmt := range stmts {
		if _, err := db.sql.ExecContext(ctx, stmt); err != nil {
			logger.Error("schema statement failed", "dialect", db.dialect, "error", err)
			return common.KindError(common.ErrDatabase, "ensure schema", err)
		}
	}
	logger.Info("schema ready", "dialect", db.dialect, "statements", len(stmts))
	return nil
}
