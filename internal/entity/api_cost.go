package entity

import "time"

// APICost is one ocr_api_cost row: the estimated price of a single LLM attempt.
// Append-only.
type APICost struct {
	ID        int64     `json:"id"`
	FileID    int64     `json:"file_id"` // ocr_logs.id
	Cost      float64   `json:"cost"`
	CreatedAt time.Time `json:"created_at"`
}
