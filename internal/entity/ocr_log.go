package entity

import (
	"time"

	"github.com/joseph-ayodele/avs-dob-pipeline/constants"
)

// OCRLog is one ocr_logs row: the per-document progress record owned by the pipeline.
type OCRLog struct {
	ID           int64                `json:"id"`
	DocID        int64                `json:"doc_id"`
	UserID       int64                `json:"user_id"`
	FilePath     string               `json:"file_path"`
	FileDiskPath string               `json:"file_disk_path,omitempty"`
	FileType     string               `json:"file_type"`
	Status       constants.DOBStatus  `json:"status"`
	StatusReason string               `json:"status_reason,omitempty"`
	ReadStatus   constants.ReadStatus `json:"read_status"`
	ResponseData *string              `json:"response_data,omitempty"`
	DOB          *string              `json:"dob,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Text returns the OCR text or "" when the OCR stage has not run.
func (l *OCRLog) Text() string {
	if l.ResponseData == nil {
		return ""
	}
	return *l.ResponseData
}

// NewOCRLog builds the row intake inserts for a document found on disk.
func NewOCRLog(doc Document, publicPath, diskPath string, now time.Time) OCRLog {
	return OCRLog{
		DocID:        doc.ID,
		UserID:       doc.UserID,
		FilePath:     publicPath,
		FileDiskPath: diskPath,
		FileType:     constants.NormalizeMIME(doc.FileType),
		Status:       constants.DOBStatusPending,
		ReadStatus:   constants.ReadStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
