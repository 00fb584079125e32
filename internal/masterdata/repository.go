package masterdata

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// Repository provides PostgreSQL backed persistence for reference data. It
// also implements the rate lookups the productivity core depends on.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ============================================================================
// RATE LOOKUPS (productivity.RateSource)
// ============================================================================

// SalesPersonCommissionRate returns the configured rate, or nil when the
// person is unknown or has no rate set.
func (r *Repository) SalesPersonCommissionRate(ctx context.Context, salesPersonID int64) (*float64, error) {
	const query = `SELECT commission_rate FROM sales_persons WHERE id = $1`
	var rate *float64
	if err := r.pool.QueryRow(ctx, query, salesPersonID).Scan(&rate); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rate, nil
}

// ShareholderCommissionPercentage returns the configured percentage, or nil
// when the shareholder is unknown or has none set.
func (r *Repository) ShareholderCommissionPercentage(ctx context.Context, shareholderID int64) (*float64, error) {
	const query = `SELECT commission_percentage FROM shareholders WHERE id = $1`
	var pct *float64
	if err := r.pool.QueryRow(ctx, query, shareholderID).Scan(&pct); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return pct, nil
}

// ============================================================================
// SALES PERSONS
// ============================================================================

func (r *Repository) GetSalesPerson(ctx context.Context, id int64) (*SalesPerson, error) {
	const query = `
		SELECT id, code, name, commission_rate, is_active, created_at, updated_at
		FROM sales_persons WHERE id = $1`
	var sp SalesPerson
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&sp.ID, &sp.Code, &sp.Name, &sp.CommissionRate, &sp.IsActive, &sp.CreatedAt, &sp.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sp, nil
}

func (r *Repository) ListSalesPersons(ctx context.Context) ([]SalesPerson, error) {
	const query = `
		SELECT id, code, name, commission_rate, is_active, created_at, updated_at
		FROM sales_persons ORDER BY code`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var persons []SalesPerson
	for rows.Next() {
		var sp SalesPerson
		if err := rows.Scan(&sp.ID, &sp.Code, &sp.Name, &sp.CommissionRate, &sp.IsActive, &sp.CreatedAt, &sp.UpdatedAt); err != nil {
			return nil, err
		}
		persons = append(persons, sp)
	}
	return persons, rows.Err()
}

func (r *Repository) CreateSalesPerson(ctx context.Context, req CreateSalesPersonRequest) (int64, error) {
	const query = `
		INSERT INTO sales_persons (code, name, commission_rate, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, NOW(), NOW())
		RETURNING id`
	var id int64
	if err := r.pool.QueryRow(ctx, query, req.Code, req.Name, req.CommissionRate).Scan(&id); err != nil {
		return 0, mapUniqueViolation(err)
	}
	return id, nil
}

func (r *Repository) UpdateSalesPerson(ctx context.Context, id int64, req UpdateSalesPersonRequest) error {
	const query = `
		UPDATE sales_persons
		SET name = COALESCE($2, name),
		    commission_rate = COALESCE($3, commission_rate),
		    is_active = COALESCE($4, is_active),
		    updated_at = NOW()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, req.Name, req.CommissionRate, req.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ============================================================================
// SHAREHOLDERS
// ============================================================================

func (r *Repository) GetShareholder(ctx context.Context, id int64) (*Shareholder, error) {
	const query = `
		SELECT id, code, name, commission_percentage, created_at, updated_at
		FROM shareholders WHERE id = $1`
	var sh Shareholder
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&sh.ID, &sh.Code, &sh.Name, &sh.CommissionPercentage, &sh.CreatedAt, &sh.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sh, nil
}

func (r *Repository) ListShareholders(ctx context.Context) ([]Shareholder, error) {
	const query = `
		SELECT id, code, name, commission_percentage, created_at, updated_at
		FROM shareholders ORDER BY code`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shareholders []Shareholder
	for rows.Next() {
		var sh Shareholder
		if err := rows.Scan(&sh.ID, &sh.Code, &sh.Name, &sh.CommissionPercentage, &sh.CreatedAt, &sh.UpdatedAt); err != nil {
			return nil, err
		}
		shareholders = append(shareholders, sh)
	}
	return shareholders, rows.Err()
}

func (r *Repository) CreateShareholder(ctx context.Context, req CreateShareholderRequest) (int64, error) {
	const query = `
		INSERT INTO shareholders (code, name, commission_percentage, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id`
	var id int64
	if err := r.pool.QueryRow(ctx, query, req.Code, req.Name, req.CommissionPercentage).Scan(&id); err != nil {
		return 0, mapUniqueViolation(err)
	}
	return id, nil
}

func (r *Repository) UpdateShareholder(ctx context.Context, id int64, req UpdateShareholderRequest) error {
	const query = `
		UPDATE shareholders
		SET name = COALESCE($2, name),
		    commission_percentage = COALESCE($3, commission_percentage),
		    updated_at = NOW()
		WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, id, req.Name, req.CommissionPercentage)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrAlreadyExists
	}
	return err
}
