package types

import "time"

// Document is the API representation of an audited document.
type Document struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedBy string    `json:"created_by"`
	UpdatedBy string    `json:"updated_by"`
	OwnerID   *uint     `json:"owner_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateDocumentRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body"`
}

// UpdateDocumentRequest changes the fields that are present in the body.
type UpdateDocumentRequest struct {
	Title *string `json:"title,omitempty"`
	Body  *string `json:"body,omitempty"`
}
