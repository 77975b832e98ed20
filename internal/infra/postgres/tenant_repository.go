package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/northstarhq/api/pkg/domain/shared"
	"github.com/northstarhq/api/pkg/domain/tenant"
)

// TenantRepository implements tenant.Repository using PostgreSQL.
type TenantRepository struct {
	db *DB
}

// NewTenantRepository creates a new TenantRepository.
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// =============================================================================
// Tenant CRUD
// =============================================================================

// Create persists a new tenant.
func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	settings, err := json.Marshal(t.Settings())
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	query := `
		INSERT INTO tenants (id, name, slug, description, logo_url, plan, max_users, status, settings, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.ExecContext(ctx, query,
		t.ID().String(),
		t.Name(),
		t.Slug(),
		t.Description(),
		t.LogoURL(),
		t.Plan().String(),
		t.MaxUsers(),
		t.Status().String(),
		settings,
		t.CreatedBy().String(),
		t.CreatedAt(),
		t.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return tenant.ErrSlugTaken
		}
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	return nil
}

// GetByID retrieves a tenant by ID.
func (r *TenantRepository) GetByID(ctx context.Context, id shared.ID) (*tenant.Tenant, error) {
	query := selectTenant + ` WHERE id = $1`
	return r.scanTenant(r.db.QueryRowContext(ctx, query, id.String()))
}

// GetBySlug retrieves a tenant by slug.
func (r *TenantRepository) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	query := selectTenant + ` WHERE slug = $1`
	return r.scanTenant(r.db.QueryRowContext(ctx, query, strings.ToLower(slug)))
}

// Update updates an existing tenant.
func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	settings, err := json.Marshal(t.Settings())
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	query := `
		UPDATE tenants
		SET name = $2, slug = $3, description = $4, logo_url = $5, plan = $6,
		    max_users = $7, status = $8, settings = $9, updated_at = $10
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		t.ID().String(),
		t.Name(),
		t.Slug(),
		t.Description(),
		t.LogoURL(),
		t.Plan().String(),
		t.MaxUsers(),
		t.Status().String(),
		settings,
		t.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return tenant.ErrSlugTaken
		}
		return fmt.Errorf("failed to update tenant: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// ExistsBySlug checks if a tenant with the given slug exists.
func (r *TenantRepository) ExistsBySlug(ctx context.Context, slug string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM tenants WHERE slug = $1)`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(slug)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug existence: %w", err)
	}

	return exists, nil
}

// ListActiveTenantIDs returns IDs of all tenants that may serve requests.
// Used by background controllers (check-in reminders, subscription sweeps).
func (r *TenantRepository) ListActiveTenantIDs(ctx context.Context) ([]shared.ID, error) {
	query := `SELECT id FROM tenants WHERE status != $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, tenant.StatusCancelled.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list active tenant IDs: %w", err)
	}
	defer rows.Close()

	var ids []shared.ID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan tenant ID: %w", err)
		}
		id, err := shared.IDFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid tenant ID in database: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tenant IDs: %w", err)
	}

	return ids, nil
}

// =============================================================================
// Memberships
// =============================================================================

// CreateMembership persists a new membership.
func (r *TenantRepository) CreateMembership(ctx context.Context, m *tenant.Membership) error {
	query := `
		INSERT INTO tenant_members (id, user_id, tenant_id, role, is_default, invited_by, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		m.ID().String(),
		m.UserID().String(),
		m.TenantID().String(),
		m.Role().String(),
		m.IsDefault(),
		nullID(m.InvitedBy()),
		m.JoinedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return tenant.ErrAlreadyMember
		}
		return fmt.Errorf("failed to create membership: %w", err)
	}

	return nil
}

// GetMembership retrieves a user's membership in a tenant.
func (r *TenantRepository) GetMembership(ctx context.Context, userID, tenantID shared.ID) (*tenant.Membership, error) {
	query := selectMembership + ` WHERE user_id = $1 AND tenant_id = $2`
	return r.scanMembership(r.db.QueryRowContext(ctx, query, userID.String(), tenantID.String()))
}

// GetDefaultMembership retrieves the user's default membership, if any.
func (r *TenantRepository) GetDefaultMembership(ctx context.Context, userID shared.ID) (*tenant.Membership, error) {
	query := selectMembership + ` WHERE user_id = $1 AND is_default = TRUE`
	return r.scanMembership(r.db.QueryRowContext(ctx, query, userID.String()))
}

// UpdateMembershipRole persists a role change.
func (r *TenantRepository) UpdateMembershipRole(ctx context.Context, m *tenant.Membership) error {
	query := `UPDATE tenant_members SET role = $3 WHERE user_id = $1 AND tenant_id = $2`

	result, err := r.db.ExecContext(ctx, query,
		m.UserID().String(),
		m.TenantID().String(),
		m.Role().String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update membership role: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// ListMembersByTenant lists all memberships of a tenant.
func (r *TenantRepository) ListMembersByTenant(ctx context.Context, tenantID shared.ID) ([]*tenant.Membership, error) {
	query := selectMembership + ` WHERE tenant_id = $1 ORDER BY joined_at ASC`

	rows, err := r.db.QueryContext(ctx, query, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*tenant.Membership
	for rows.Next() {
		m, err := r.scanMembershipRow(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// ListMembersWithUserInfo lists tenant memberships joined with user details.
func (r *TenantRepository) ListMembersWithUserInfo(ctx context.Context, tenantID shared.ID) ([]*tenant.MemberWithUser, error) {
	query := `
		SELECT tm.id, tm.user_id, tm.role, tm.is_default, tm.invited_by, tm.joined_at,
		       u.email, u.name, u.avatar_url, u.last_login_at
		FROM tenant_members tm
		JOIN users u ON u.id = tm.user_id
		WHERE tm.tenant_id = $1
		ORDER BY tm.joined_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list members with user info: %w", err)
	}
	defer rows.Close()

	var members []*tenant.MemberWithUser
	for rows.Next() {
		var (
			rawID, rawUserID, role string
			isDefault              bool
			invitedBy              sql.NullString
			joinedAt               time.Time
			email, name            string
			avatarURL              sql.NullString
			lastLoginAt            sql.NullTime
		)
		if err := rows.Scan(&rawID, &rawUserID, &role, &isDefault, &invitedBy, &joinedAt,
			&email, &name, &avatarURL, &lastLoginAt); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}

		id, err := shared.IDFromString(rawID)
		if err != nil {
			return nil, fmt.Errorf("invalid membership ID: %w", err)
		}
		userID, err := shared.IDFromString(rawUserID)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID: %w", err)
		}

		members = append(members, &tenant.MemberWithUser{
			ID:          id,
			UserID:      userID,
			Role:        tenant.Role(role),
			IsDefault:   isDefault,
			InvitedBy:   parseNullID(invitedBy),
			JoinedAt:    joinedAt,
			Email:       email,
			Name:        name,
			AvatarURL:   nullStringValue(avatarURL),
			LastLoginAt: nullTimeValue(lastLoginAt),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

// ListTenantsByUser lists all tenants a user belongs to, with the user's
// role in each. Ordered with the default tenant first.
func (r *TenantRepository) ListTenantsByUser(ctx context.Context, userID shared.ID) ([]*tenant.TenantWithRole, error) {
	query := `
		SELECT t.id, t.name, t.slug, t.description, t.logo_url, t.plan, t.max_users,
		       t.status, t.settings, t.created_by, t.created_at, t.updated_at,
		       tm.role, tm.is_default, tm.joined_at
		FROM tenants t
		JOIN tenant_members tm ON tm.tenant_id = t.id
		WHERE tm.user_id = $1
		ORDER BY tm.is_default DESC, tm.joined_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants by user: %w", err)
	}
	defer rows.Close()

	var result []*tenant.TenantWithRole
	for rows.Next() {
		var (
			rawID, name, slug           string
			description, logoURL        sql.NullString
			plan                        string
			maxUsers                    int
			status                      string
			settingsRaw                 []byte
			rawCreatedBy                string
			createdAt, updatedAt        time.Time
			role                        string
			isDefault                   bool
			joinedAt                    time.Time
		)
		if err := rows.Scan(&rawID, &name, &slug, &description, &logoURL, &plan, &maxUsers,
			&status, &settingsRaw, &rawCreatedBy, &createdAt, &updatedAt,
			&role, &isDefault, &joinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant with role: %w", err)
		}

		t, err := reconstituteTenant(rawID, name, slug, description, logoURL, plan, maxUsers,
			status, settingsRaw, rawCreatedBy, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}

		result = append(result, &tenant.TenantWithRole{
			Tenant:    t,
			Role:      tenant.Role(role),
			IsDefault: isDefault,
			JoinedAt:  joinedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tenants: %w", err)
	}

	return result, nil
}

// CountMembersByTenant counts memberships in a tenant.
func (r *TenantRepository) CountMembersByTenant(ctx context.Context, tenantID shared.ID) (int64, error) {
	query := `SELECT COUNT(*) FROM tenant_members WHERE tenant_id = $1`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, tenantID.String()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}

	return count, nil
}

// CountOwnersByTenant counts owner memberships in a tenant.
func (r *TenantRepository) CountOwnersByTenant(ctx context.Context, tenantID shared.ID) (int64, error) {
	query := `SELECT COUNT(*) FROM tenant_members WHERE tenant_id = $1 AND role = $2`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, tenantID.String(), tenant.RoleOwner.String()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count owners: %w", err)
	}

	return count, nil
}

// SetDefaultMembershipTx atomically moves the user's default flag to the
// membership for the given tenant. Clearing and setting happen in one
// transaction so the user never holds two defaults. Idempotent.
func (r *TenantRepository) SetDefaultMembershipTx(ctx context.Context, userID, tenantID shared.ID) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM tenant_members WHERE user_id = $1 AND tenant_id = $2)`,
			userID.String(), tenantID.String(),
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check membership: %w", err)
		}
		if !exists {
			return shared.ErrNotFound
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE tenant_members SET is_default = FALSE WHERE user_id = $1 AND is_default = TRUE`,
			userID.String(),
		); err != nil {
			return fmt.Errorf("failed to clear previous default: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE tenant_members SET is_default = TRUE WHERE user_id = $1 AND tenant_id = $2`,
			userID.String(), tenantID.String(),
		); err != nil {
			return fmt.Errorf("failed to set default membership: %w", err)
		}

		return nil
	})
}

// RemoveMembershipTx removes a membership while holding row locks on the
// tenant's owner rows, so two concurrent removals cannot both observe a
// second owner and leave the tenant ownerless. If the removed membership
// was the user's default, the flag moves to the oldest remaining one.
func (r *TenantRepository) RemoveMembershipTx(ctx context.Context, userID, tenantID shared.ID) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		var (
			role      string
			isDefault bool
		)
		err := tx.QueryRowContext(ctx,
			`SELECT role, is_default FROM tenant_members WHERE user_id = $1 AND tenant_id = $2 FOR UPDATE`,
			userID.String(), tenantID.String(),
		).Scan(&role, &isDefault)
		if errors.Is(err, sql.ErrNoRows) {
			return shared.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to load membership: %w", err)
		}

		if tenant.Role(role) == tenant.RoleOwner {
			// Lock all owner rows of the tenant before counting.
			var owners int64
			err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM (
					SELECT 1 FROM tenant_members WHERE tenant_id = $1 AND role = $2 FOR UPDATE
				) locked`,
				tenantID.String(), tenant.RoleOwner.String(),
			).Scan(&owners)
			if err != nil {
				return fmt.Errorf("failed to count owners: %w", err)
			}
			if owners <= 1 {
				return tenant.ErrLastOwner
			}
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM tenant_members WHERE user_id = $1 AND tenant_id = $2`,
			userID.String(), tenantID.String(),
		); err != nil {
			return fmt.Errorf("failed to remove membership: %w", err)
		}

		if isDefault {
			// Reassign the default flag to the oldest remaining membership.
			if _, err := tx.ExecContext(ctx, `
				UPDATE tenant_members SET is_default = TRUE
				WHERE id = (
					SELECT id FROM tenant_members
					WHERE user_id = $1
					ORDER BY joined_at ASC
					LIMIT 1
				)`,
				userID.String(),
			); err != nil {
				return fmt.Errorf("failed to reassign default membership: %w", err)
			}
		}

		return nil
	})
}

// =============================================================================
// Invitations
// =============================================================================

// CreateInvitation persists a new invitation.
func (r *TenantRepository) CreateInvitation(ctx context.Context, inv *tenant.Invitation) error {
	query := `
		INSERT INTO tenant_invitations (id, tenant_id, email, role, token, invited_by, expires_at, accepted_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		inv.ID().String(),
		inv.TenantID().String(),
		inv.Email(),
		inv.Role().String(),
		inv.Token(),
		inv.InvitedBy().String(),
		inv.ExpiresAt(),
		nullTime(inv.AcceptedAt()),
		inv.CreatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create invitation: %w", err)
	}

	return nil
}

// GetInvitationByToken retrieves an invitation by its acceptance token.
func (r *TenantRepository) GetInvitationByToken(ctx context.Context, token string) (*tenant.Invitation, error) {
	query := selectInvitation + ` WHERE token = $1`
	return r.scanInvitation(r.db.QueryRowContext(ctx, query, token))
}

// GetInvitationByID retrieves an invitation by ID.
func (r *TenantRepository) GetInvitationByID(ctx context.Context, id shared.ID) (*tenant.Invitation, error) {
	query := selectInvitation + ` WHERE id = $1`
	return r.scanInvitation(r.db.QueryRowContext(ctx, query, id.String()))
}

// DeleteInvitation removes an invitation.
func (r *TenantRepository) DeleteInvitation(ctx context.Context, id shared.ID) error {
	query := `DELETE FROM tenant_invitations WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return shared.ErrNotFound
	}

	return nil
}

// ListPendingInvitationsByTenant lists unaccepted, unexpired invitations.
func (r *TenantRepository) ListPendingInvitationsByTenant(ctx context.Context, tenantID shared.ID) ([]*tenant.Invitation, error) {
	query := selectInvitation + `
		WHERE tenant_id = $1 AND accepted_at IS NULL AND expires_at > NOW()
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list pending invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*tenant.Invitation
	for rows.Next() {
		inv, err := r.scanInvitationRow(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invitations: %w", err)
	}

	return invitations, nil
}

// GetPendingInvitationByEmail finds an unaccepted, unexpired invitation
// for the given email in a tenant.
func (r *TenantRepository) GetPendingInvitationByEmail(ctx context.Context, tenantID shared.ID, email string) (*tenant.Invitation, error) {
	query := selectInvitation + `
		WHERE tenant_id = $1 AND email = $2 AND accepted_at IS NULL AND expires_at > NOW()
	`
	return r.scanInvitation(r.db.QueryRowContext(ctx, query, tenantID.String(), strings.ToLower(email)))
}

// DeleteExpiredInvitations removes all expired, unaccepted invitations.
// Returns the number of rows deleted. Used by the cleanup controller.
func (r *TenantRepository) DeleteExpiredInvitations(ctx context.Context) (int64, error) {
	query := `DELETE FROM tenant_invitations WHERE accepted_at IS NULL AND expires_at <= NOW()`

	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired invitations: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows, nil
}

// AcceptInvitationTx marks the invitation accepted and creates the
// membership in a single transaction.
func (r *TenantRepository) AcceptInvitationTx(ctx context.Context, inv *tenant.Invitation, m *tenant.Membership) error {
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE tenant_invitations SET accepted_at = $2 WHERE id = $1 AND accepted_at IS NULL`,
			inv.ID().String(), nullTime(inv.AcceptedAt()),
		)
		if err != nil {
			return fmt.Errorf("failed to mark invitation accepted: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return fmt.Errorf("%w: invitation already accepted", shared.ErrConflict)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tenant_members (id, user_id, tenant_id, role, is_default, invited_by, joined_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			m.ID().String(),
			m.UserID().String(),
			m.TenantID().String(),
			m.Role().String(),
			m.IsDefault(),
			nullID(m.InvitedBy()),
			m.JoinedAt(),
		); err != nil {
			if isUniqueViolation(err) {
				return tenant.ErrAlreadyMember
			}
			return fmt.Errorf("failed to create membership: %w", err)
		}

		return nil
	})
}

// =============================================================================
// Scanning
// =============================================================================

const selectTenant = `
	SELECT id, name, slug, description, logo_url, plan, max_users, status, settings, created_by, created_at, updated_at
	FROM tenants`

const selectMembership = `
	SELECT id, user_id, tenant_id, role, is_default, invited_by, joined_at
	FROM tenant_members`

const selectInvitation = `
	SELECT id, tenant_id, email, role, token, invited_by, expires_at, accepted_at, created_at
	FROM tenant_invitations`

func (r *TenantRepository) scanTenant(row *sql.Row) (*tenant.Tenant, error) {
	var (
		rawID, name, slug    string
		description, logoURL sql.NullString
		plan                 string
		maxUsers             int
		status               string
		settingsRaw          []byte
		rawCreatedBy         string
		createdAt, updatedAt time.Time
	)

	err := row.Scan(&rawID, &name, &slug, &description, &logoURL, &plan, &maxUsers,
		&status, &settingsRaw, &rawCreatedBy, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tenant: %w", err)
	}

	return reconstituteTenant(rawID, name, slug, description, logoURL, plan, maxUsers,
		status, settingsRaw, rawCreatedBy, createdAt, updatedAt)
}

func reconstituteTenant(
	rawID, name, slug string,
	description, logoURL sql.NullString,
	plan string,
	maxUsers int,
	status string,
	settingsRaw []byte,
	rawCreatedBy string,
	createdAt, updatedAt time.Time,
) (*tenant.Tenant, error) {
	id, err := shared.IDFromString(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant ID: %w", err)
	}
	createdBy, err := shared.IDFromString(rawCreatedBy)
	if err != nil {
		return nil, fmt.Errorf("invalid createdBy ID: %w", err)
	}

	var settings map[string]any
	if err := fromJSONB(settingsRaw, &settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}

	return tenant.Reconstitute(
		id,
		name,
		slug,
		nullStringValue(description),
		nullStringValue(logoURL),
		tenant.Plan(plan),
		maxUsers,
		tenant.Status(status),
		settings,
		createdBy,
		createdAt,
		updatedAt,
	), nil
}

func (r *TenantRepository) scanMembership(row *sql.Row) (*tenant.Membership, error) {
	var (
		rawID, rawUserID, rawTenantID, role string
		isDefault                           bool
		invitedBy                           sql.NullString
		joinedAt                            time.Time
	)

	err := row.Scan(&rawID, &rawUserID, &rawTenantID, &role, &isDefault, &invitedBy, &joinedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan membership: %w", err)
	}

	return buildMembership(rawID, rawUserID, rawTenantID, role, isDefault, invitedBy, joinedAt)
}

func (r *TenantRepository) scanMembershipRow(rows *sql.Rows) (*tenant.Membership, error) {
	var (
		rawID, rawUserID, rawTenantID, role string
		isDefault                           bool
		invitedBy                           sql.NullString
		joinedAt                            time.Time
	)

	if err := rows.Scan(&rawID, &rawUserID, &rawTenantID, &role, &isDefault, &invitedBy, &joinedAt); err != nil {
		return nil, fmt.Errorf("failed to scan membership: %w", err)
	}

	return buildMembership(rawID, rawUserID, rawTenantID, role, isDefault, invitedBy, joinedAt)
}

func buildMembership(rawID, rawUserID, rawTenantID, role string, isDefault bool, invitedBy sql.NullString, joinedAt time.Time) (*tenant.Membership, error) {
	id, err := shared.IDFromString(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid membership ID: %w", err)
	}
	userID, err := shared.IDFromString(rawUserID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}
	tenantID, err := shared.IDFromString(rawTenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant ID: %w", err)
	}

	return tenant.ReconstituteMembership(id, userID, tenantID, tenant.Role(role), isDefault, parseNullID(invitedBy), joinedAt), nil
}

func (r *TenantRepository) scanInvitation(row *sql.Row) (*tenant.Invitation, error) {
	var (
		rawID, rawTenantID, email, role, token string
		rawInvitedBy                           string
		expiresAt                              time.Time
		acceptedAt                             sql.NullTime
		createdAt                              time.Time
	)

	err := row.Scan(&rawID, &rawTenantID, &email, &role, &token, &rawInvitedBy, &expiresAt, &acceptedAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan invitation: %w", err)
	}

	return buildInvitation(rawID, rawTenantID, email, role, token, rawInvitedBy, expiresAt, acceptedAt, createdAt)
}

func (r *TenantRepository) scanInvitationRow(rows *sql.Rows) (*tenant.Invitation, error) {
	var (
		rawID, rawTenantID, email, role, token string
		rawInvitedBy                           string
		expiresAt                              time.Time
		acceptedAt                             sql.NullTime
		createdAt                              time.Time
	)

	if err := rows.Scan(&rawID, &rawTenantID, &email, &role, &token, &rawInvitedBy, &expiresAt, &acceptedAt, &createdAt); err != nil {
		return nil, fmt.Errorf("failed to scan invitation: %w", err)
	}

	return buildInvitation(rawID, rawTenantID, email, role, token, rawInvitedBy, expiresAt, acceptedAt, createdAt)
}

func buildInvitation(rawID, rawTenantID, email, role, token, rawInvitedBy string, expiresAt time.Time, acceptedAt sql.NullTime, createdAt time.Time) (*tenant.Invitation, error) {
	id, err := shared.IDFromString(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid invitation ID: %w", err)
	}
	tenantID, err := shared.IDFromString(rawTenantID)
	if err != nil {
		return nil, fmt.Errorf("invalid tenant ID: %w", err)
	}
	invitedBy, err := shared.IDFromString(rawInvitedBy)
	if err != nil {
		return nil, fmt.Errorf("invalid invitedBy ID: %w", err)
	}

	return tenant.ReconstituteInvitation(id, tenantID, email, tenant.Role(role), token, invitedBy, expiresAt, nullTimeValue(acceptedAt), createdAt), nil
}
