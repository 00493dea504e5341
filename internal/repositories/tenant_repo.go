package repositories

import (
	"context"
	"errors"
	"fmt"

	"invoiceflow/internal/common"
	"invoiceflow/internal/models"
	"invoiceflow/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type TenantRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindOrCreate(ctx context.Context, name string) (*models.Tenant, error)
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

type tenantRepo struct {
	db database.DB
}

func NewTenantRepo(db database.DB) TenantRepository {
	return &tenantRepo{db: db}
}

func (r *tenantRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	query := `
		SELECT id, name, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(&tenant.ID, &tenant.Name, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return tenant, nil
}

// FindOrCreate returns the tenant with the given name, creating it when absent.
// Concurrent registrations for the same company resolve to one row.
func (r *tenantRepo) FindOrCreate(ctx context.Context, name string) (*models.Tenant, error) {
	tenant := &models.Tenant{}
	query := `
		INSERT INTO tenants (id, name, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, uuid.New(), name).Scan(&tenant.ID, &tenant.Name, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create tenant: %w", err)
	}
	return tenant, nil
}

func (r *tenantRepo) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM tenants ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
