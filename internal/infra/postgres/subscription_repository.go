package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/northstarhq/api/pkg/domain/billing"
	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
)

// SubscriptionRepository implements billing.Repository using PostgreSQL.
type SubscriptionRepository struct {
	db *DB
}

// NewSubscriptionRepository creates a new SubscriptionRepository.
func NewSubscriptionRepository(db *DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const selectSubscription = `
	SELECT id, tenant_id, plan, status, provider_customer_id, provider_subscription_id,
	       current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at
	FROM subscriptions`

// Create persists a new subscription.
func (r *SubscriptionRepository) Create(ctx context.Context, s *billing.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, tenant_id, plan, status, provider_customer_id, provider_subscription_id,
		                           current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID().String(),
		s.TenantID().String(),
		s.Plan().String(),
		string(s.Status()),
		s.ProviderCustomerID(),
		s.ProviderSubscriptionID(),
		timeOrNull(s.CurrentPeriodStart()),
		timeOrNull(s.CurrentPeriodEnd()),
		s.CancelAtPeriodEnd(),
		s.CreatedAt(),
		s.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

// GetByTenant retrieves a tenant's subscription.
func (r *SubscriptionRepository) GetByTenant(ctx context.Context, tenantID shared.ID) (*billing.Subscription, error) {
	query := selectSubscription + ` WHERE tenant_id = $1`

	s, err := r.scanSubscription(r.db.QueryRowContext(ctx, query, tenantID.String()))
	if errors.Is(err, shared.ErrNotFound) {
		return nil, billing.ErrNoSubscription
	}
	return s, err
}

// GetByProviderSubscriptionID retrieves a subscription by the provider's
// identifier. Webhook handlers resolve events through this lookup.
func (r *SubscriptionRepository) GetByProviderSubscriptionID(ctx context.Context, providerSubID string) (*billing.Subscription, error) {
	query := selectSubscription + ` WHERE provider_subscription_id = $1`
	return r.scanSubscription(r.db.QueryRowContext(ctx, query, providerSubID))
}

// Update updates an existing subscription.
func (r *SubscriptionRepository) Update(ctx context.Context, s *billing.Subscription) error {
	query := `
		UPDATE subscriptions
		SET plan = $2, status = $3, current_period_start = $4, current_period_end = $5,
		    cancel_at_period_end = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		s.ID().String(),
		s.Plan().String(),
		string(s.Status()),
		timeOrNull(s.CurrentPeriodStart()),
		timeOrNull(s.CurrentPeriodEnd()),
		s.CancelAtPeriodEnd(),
		s.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// RecordEvent stores a processed webhook event ID. The primary key on
// event_id makes replayed webhooks surface as ErrDuplicateEvent.
func (r *SubscriptionRepository) RecordEvent(ctx context.Context, eventID string, eventType billing.EventType, receivedAt time.Time) error {
	query := `
		INSERT INTO billing_events (event_id, event_type, received_at)
		VALUES ($1, $2, $3)
	`

	_, err := r.db.ExecContext(ctx, query, eventID, string(eventType), receivedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return billing.ErrDuplicateEvent
		}
		return fmt.Errorf("failed to record billing event: %w", err)
	}

	return nil
}

// DeleteEvent removes a recorded webhook event ID, reopening it for the
// provider's retry after a failed apply.
func (r *SubscriptionRepository) DeleteEvent(ctx context.Context, eventID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM billing_events WHERE event_id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("failed to delete billing event: %w", err)
	}
	return nil
}

// ListExpiring returns canceling subscriptions whose billing period ends
// before the cutoff.
func (r *SubscriptionRepository) ListExpiring(ctx context.Context, cutoff time.Time) ([]*billing.Subscription, error) {
	query := selectSubscription + `
		WHERE status = $1 AND current_period_end IS NOT NULL AND current_period_end < $2
		ORDER BY current_period_end ASC
	`

	rows, err := r.db.QueryContext(ctx, query, string(billing.StatusCanceling), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*billing.Subscription
	for rows.Next() {
		s, err := r.scanSubscriptionRow(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subscriptions: %w", err)
	}

	return subs, nil
}

// timeOrNull maps the zero time to NULL for optional timestamp columns.
func timeOrNull(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func timeValue(nt sql.NullTime) time.Time {
	if nt.Valid {
		return nt.Time
	}
	return time.Time{}
}

func (r *SubscriptionRepository) scanSubscription(row *sql.Row) (*billing.Subscription, error) {
	var (
		rawID, rawTenantID, plan, status         string
		providerCustomerID, providerSubID        string
		periodStart, periodEnd                   sql.NullTime
		cancelAtPeriodEnd                        bool
		createdAt, updatedAt                     time.Time
	)

	err := row.Scan(&rawID, &rawTenantID, &plan, &status, &providerCustomerID, &providerSubID,
		&periodStart, &periodEnd, &cancelAtPeriodEnd, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan subscription: %w", err)
	}

	return buildSubscription(rawID, rawTenantID, plan, status, providerCustomerID, providerSubID,
		periodStart, periodEnd, cancelAtPeriodEnd, createdAt, updatedAt)
}

func (r *SubscriptionRepository) scanSubscriptionRow(rows *sql.Rows) (*billing.Subscription, error) {
	var (
		rawID, rawTenantID, plan, status  string
		providerCustomerID, providerSubID string
		periodStart, periodEnd            sql.NullTime
		cancelAtPeriodEnd                 bool
		createdAt, updatedAt              time.Time
	)

	if err := rows.Scan(&rawID, &rawTenantID, &plan, &status, &providerCustomerID, &providerSubID,
		&periodStart, &periodEnd, &cancelAtPeriodEnd, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan subscription: %w", err)
	}

	return buildSubscription(rawID, rawTenantID, plan, status, providerCustomerID, providerSubID,
		periodStart, periodEnd, cancelAtPeriodEnd, createdAt, updatedAt)
}

func buildSubscription(
	rawID, rawTenantID, plan, status, providerCustomerID, providerSubID string,
	periodStart, periodEnd sql.NullTime,
	cancelAtPeriodEnd bool,
	createdAt, updatedAt time.Time,
) (*billing.Subscription, error) {
	id, err := shared.IDFromString(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid subscription ID: %w", err)
	}
	tenantID, err := shared.IDFromString(rawTenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant ID: %w", err)
	}

	return billing.Reconstitute(
		id,
		tenantID,
		tenant.Plan(plan),
		billing.Status(status),
		providerCustomerID,
		providerSubID,
		timeValue(periodStart),
		timeValue(periodEnd),
		cancelAtPeriodEnd,
		createdAt,
		updatedAt,
	), nil
}
