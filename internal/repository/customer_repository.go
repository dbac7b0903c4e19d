package repository

import (
	"context"
	"errors"
	"fmt"

	"shophub/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// customerRepository implements the CustomerRepository interface using PostgreSQL.
type customerRepository struct {
	db     DB
	logger zerolog.Logger
}

// NewCustomerRepository creates a new PostgreSQL-backed customer repository.
func NewCustomerRepository(db DB, logger zerolog.Logger) CustomerRepository {
	return &customerRepository{
		db:     db,
		logger: logger.With().Str("repository", "customer").Logger(),
	}
}

const customerColumns = `id, name, email, document, phone, address, city, state, zip_code, credit_limit, sales_rep_id, active, created_at`

func scanCustomer(row pgx.Row) (*model.Customer, error) {
	var c model.Customer
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Document,
		&c.Phone,
		&c.Address,
		&c.City,
		&c.State,
		&c.ZipCode,
		&c.CreditLimit,
		&c.SalesRepID,
		&c.Active,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID retrieves a single customer by its ID.
func (r *customerRepository) GetByID(ctx context.Context, id int64) (*model.Customer, error) {
	query := `
		SELECT ` + customerColumns + `
		FROM customers
		WHERE id = $1
	`

	customer, err := scanCustomer(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Int64("customer_id", id).Msg("customer not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Int64("customer_id", id).Msg("failed to query customer")
		return nil, fmt.Errorf("failed to query customer: %w", err)
	}

	return customer, nil
}

// GetByEmail retrieves a single customer by email.
func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*model.Customer, error) {
	query := `
		SELECT ` + customerColumns + `
		FROM customers
		WHERE email = $1
	`

	customer, err := scanCustomer(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("email", email).Msg("customer not found by email")
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to query customer by email")
		return nil, fmt.Errorf("failed to query customer by email: %w", err)
	}

	return customer, nil
}
