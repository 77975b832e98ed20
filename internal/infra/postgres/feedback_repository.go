package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/feedback"
	"github.com/northstarhq/api/pkg/domain/shared"
)

// FeedbackRepository implements feedback.Repository using PostgreSQL.
// Visibility filtering happens in SQL: private rows of other users are
// never returned to the application at all.
type FeedbackRepository struct {
	db *DB
}

// NewFeedbackRepository creates a new FeedbackRepository.
func NewFeedbackRepository(db *DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

const selectFeedback = `
	SELECT id, tenant_id, author_id, recipient_id, message, visibility, created_at
	FROM feedback`

// Create persists a new feedback entry.
func (r *FeedbackRepository) Create(ctx context.Context, f *feedback.Feedback) error {
	query := `
		INSERT INTO feedback (id, tenant_id, author_id, recipient_id, message, visibility, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		f.ID().String(),
		f.TenantID().String(),
		f.AuthorID().String(),
		f.RecipientID().String(),
		f.Message(),
		string(f.Visibility()),
		f.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}

	return nil
}

// GetByID retrieves a feedback entry within a tenant. Visibility is
// enforced by the service layer, which knows the viewer.
func (r *FeedbackRepository) GetByID(ctx context.Context, tenantID, id shared.ID) (*feedback.Feedback, error) {
	query := selectFeedback + ` WHERE tenant_id = $1 AND id = $2`
	return r.scanFeedback(r.db.QueryRowContext(ctx, query, tenantID.String(), id.String()))
}

// Delete removes a feedback entry.
func (r *FeedbackRepository) Delete(ctx context.Context, tenantID, id shared.ID) error {
	query := `DELETE FROM feedback WHERE tenant_id = $1 AND id = $2`

	result, err := r.db.ExecContext(ctx, query, tenantID.String(), id.String())
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// List returns feedback entries visible to viewerID, newest first:
// public entries plus private ones where the viewer is a participant.
func (r *FeedbackRepository) List(ctx context.Context, tenantID, viewerID shared.ID, filter feedback.Filter) ([]*feedback.Feedback, int, error) {
	where := `WHERE tenant_id = $1 AND (visibility = 'public' OR author_id = $2 OR recipient_id = $2)`
	args := []any{tenantID.String(), viewerID.String()}

	if filter.AuthorID != nil {
		args = append(args, filter.AuthorID.String())
		where += fmt.Sprintf(" AND author_id = $%d", len(args))
	}
	if filter.RecipientID != nil {
		args = append(args, filter.RecipientID.String())
		where += fmt.Sprintf(" AND recipient_id = $%d", len(args))
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM feedback ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count feedback: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)
	query := selectFeedback + ` ` + where + orderByCreatedAtDesc + fmt.Sprintf(" LIMIT $%d", len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	var entries []*feedback.Feedback
	for rows.Next() {
		f, err := r.scanFeedbackRow(rows)
		if err != nil {
			return nil, 0, err
		}
		entries = append(entries, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate feedback: %w", err)
	}

	return entries, total, nil
}

func (r *FeedbackRepository) scanFeedback(row *sql.Row) (*feedback.Feedback, error) {
	var (
		rawID, rawTenantID, rawAuthorID, rawRecipientID string
		message, visibility                             string
		createdAt                                       time.Time
	)

	err := row.Scan(&rawID, &rawTenantID, &rawAuthorID, &rawRecipientID, &message, &visibility, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan feedback: %w", err)
	}

	return buildFeedback(rawID, rawTenantID, rawAuthorID, rawRecipientID, message, visibility, createdAt)
}

func (r *FeedbackRepository) scanFeedbackRow(rows *sql.Rows) (*feedback.Feedback, error) {
	var (
		rawID, rawTenantID, rawAuthorID, rawRecipientID string
		message, visibility                             string
		createdAt                                       time.Time
	)

	if err := rows.Scan(&rawID, &rawTenantID, &rawAuthorID, &rawRecipientID, &message, &visibility, &createdAt); err != nil {
		return nil, fmt.Errorf("failed to scan feedback: %w", err)
	}

	return buildFeedback(rawID, rawTenantID, rawAuthorID, rawRecipientID, message, visibility, createdAt)
}

func buildFeedback(rawID, rawTenantID, rawAuthorID, rawRecipientID, message, visibility string, createdAt time.Time) (*feedback.Feedback, error) {
	id, err := shared.IDFromString(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid feedback ID: %w", err)
	}
	tenantID, err := shared.IDFromString(rawTenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant ID: %w", err)
	}
	authorID, err := shared.IDFromString(rawAuthorID)
	if err != nil {
		return nil, fmt.Errorf("invalid author ID: %w", err)
	}
	recipientID, err := shared.IDFromString(rawRecipientID)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient ID: %w", err)
	}

	return feedback.Reconstitute(id, tenantID, authorID, recipientID, message, feedback.Visibility(visibility), createdAt), nil
}
