package entity

// Document is a user-submitted file from avsdocs. Read-only to the pipeline.
type Document struct {
	ID       int64  `json:"doc_id"`
	UserID   int64  `json:"user_id"`
	URL      string `json:"doc_url"`
	FileType string `json:"doc_file_type"`
	Approved string `json:"doc_approved"`
	Deleted  bool   `json:"is_deleted"`
}
