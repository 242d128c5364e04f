package tenants

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTenantNotFound is returned when no tenant matches the lookup key.
// A miss is a normal outcome during resolution, not a fault.
var ErrTenantNotFound = errors.New("tenant not found")

const tenantColumns = `id, name, subdomain, inbound_assistant_id, business_type, created_at, updated_at`

// Repository provides read access to the tenant directory.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new tenant repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetByID retrieves a tenant by its stable id.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Tenant, error) {
	return r.getOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)
}

// GetBySubdomain retrieves a tenant by its unique routing subdomain.
func (r *Repository) GetBySubdomain(ctx context.Context, subdomain string) (Tenant, error) {
	return r.getOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE subdomain = $1`, subdomain)
}

// GetByAssistantID retrieves a tenant by its unique inbound assistant id.
func (r *Repository) GetByAssistantID(ctx context.Context, assistantID string) (Tenant, error) {
	return r.getOne(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE inbound_assistant_id = $1`, assistantID)
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (Tenant, error) {
	var t Tenant
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&t.ID, &t.Name, &t.Subdomain, &t.InboundAssistantID, &t.BusinessType,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Tenant{}, ErrTenantNotFound
	}
	return t, err
}
