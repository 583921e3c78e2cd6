package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ConfirmationDocument struct {
	ID             uuid.UUID `db:"id"`
	ConfirmationID string    `db:"confirmation_id"`
	PDF            []byte    `db:"pdf"`
	CreatedAt      time.Time `db:"created_at"`
}

const sqlCreateConfirmationDocument = `
INSERT INTO confirmation_documents (confirmation_id, pdf)
VALUES ($1, $2)
ON CONFLICT (confirmation_id) DO UPDATE SET pdf = EXCLUDED.pdf
RETURNING id, confirmation_id, pdf, created_at`

func (s *Store) CreateConfirmationDocument(ctx context.Context, confirmationID string, pdf []byte) (*ConfirmationDocument, error) {
	var doc ConfirmationDocument
	err := s.db.GetContext(ctx, &doc, sqlCreateConfirmationDocument, confirmationID, pdf)
	if err != nil {
		s.logger.Error(ctx, "failed to create confirmation document", err)
		return nil, fmt.Errorf("failed to create confirmation document: %w", err)
	}
	return &doc, nil
}

const sqlGetConfirmationDocument = `
SELECT * FROM confirmation_documents WHERE confirmation_id = $1`

func (s *Store) GetConfirmationDocument(ctx context.Context, confirmationID string) (*ConfirmationDocument, error) {
	var doc ConfirmationDocument
	err := s.db.GetContext(ctx, &doc, sqlGetConfirmationDocument, confirmationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get confirmation document", err)
		return nil, fmt.Errorf("failed to get confirmation document: %w", err)
	}
	return &doc, nil
}
