// Package document manages documents, the audited entity exposed by the API.
package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/auditbridge/auditbridge/internal/loggable"
	"github.com/auditbridge/auditbridge/internal/model"
	"gorm.io/gorm"
)

// ErrDocumentNotFound is returned when no document has the requested ID.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentService provides methods to manage documents in the database.
// Every method runs with the caller's context so that writes are attributed to the request.
type DocumentService struct {
	db   *gorm.DB
	logs *loggable.Repository
}

func NewDocumentService(db *gorm.DB) *DocumentService {
	return &DocumentService{
		db:   db,
		logs: loggable.NewRepository(db),
	}
}

// ListDocuments retrieves all documents, most recently updated first.
func (s *DocumentService) ListDocuments(ctx context.Context) ([]*model.Document, error) {
	var docs []*model.Document
	if err := s.db.WithContext(ctx).Order("updated_at DESC").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentService) GetDocument(ctx context.Context, id uint) (*model.Document, error) {
	var doc model.Document
	if err := s.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// CreateDocument inserts a document.
func (s *DocumentService) CreateDocument(ctx context.Context, title, body string) (*model.Document, error) {
	if title == "" {
		return nil, errors.New("title is required")
	}
	doc := &model.Document{Title: title, Body: body}
	if err := s.db.WithContext(ctx).Create(doc).Error; err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}

// UpdateDocument changes the title and body of a document.
// Nil arguments leave the field unchanged.
func (s *DocumentService) UpdateDocument(ctx context.Context, id uint, title, body *string) (*model.Document, error) {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if title != nil {
		if *title == "" {
			return nil, errors.New("title cannot be empty")
		}
		doc.Title = *title
	}
	if body != nil {
		doc.Body = *body
	}
	if err := s.db.WithContext(ctx).Save(doc).Error; err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}
	return doc, nil
}

// DeleteDocument removes a document.
// Deleting a document that does not exist returns ErrDocumentNotFound.
func (s *DocumentService) DeleteDocument(ctx context.Context, id uint) error {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(doc).Error; err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// History returns the log entries of a document, newest first.
// The history of a deleted document stays readable.
func (s *DocumentService) History(ctx context.Context, id uint, limit int) ([]model.LogEntry, error) {
	entries, err := s.logs.LogEntriesFor(ctx, &model.Document{Model: gorm.Model{ID: id}}, limit)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
