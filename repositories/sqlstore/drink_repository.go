package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/upb/coffee-shop/models"
	"github.com/upb/coffee-shop/repositories"
)

// DrinkRepository implements the repositories.DrinkRepository interface
type DrinkRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewDrinkRepository creates a new drink repository
func NewDrinkRepository(db *DB, logger *zap.Logger) repositories.DrinkRepository {
	return &DrinkRepository{
		db:     db,
		logger: logger,
	}
}

// List returns every drink ordered by id
func (r *DrinkRepository) List(ctx context.Context) ([]*models.Drink, error) {
	query := `
		SELECT id, title, recipe, created_at, updated_at
		FROM drinks
		ORDER BY id
	`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list drinks: %w", err)
	}
	defer rows.Close()

	drinks := make([]*models.Drink, 0)
	for rows.Next() {
		drink, err := scanDrink(rows)
		if err != nil {
			return nil, err
		}
		drinks = append(drinks, drink)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating drinks: %w", err)
	}

	return drinks, nil
}

// GetByID retrieves a drink by ID
func (r *DrinkRepository) GetByID(ctx context.Context, id int64) (*models.Drink, error) {
	query := r.db.driver.Rebind(`
		SELECT id, title, recipe, created_at, updated_at
		FROM drinks
		WHERE id = $1
	`)

	drink, err := scanDrink(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("drink %d: %w", id, repositories.ErrNotFound)
		}
		return nil, err
	}

	return drink, nil
}

// Create inserts a drink and sets its ID
func (r *DrinkRepository) Create(ctx context.Context, drink *models.Drink) error {
	recipe, err := drink.EncodeRecipe()
	if err != nil {
		return err
	}

	query := r.db.driver.Rebind(`
		INSERT INTO drinks (title, recipe, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`)

	err = GetExecutor(ctx, r.db).QueryRowContext(ctx, query,
		drink.Title,
		recipe,
		drink.CreatedAt,
		drink.UpdatedAt,
	).Scan(&drink.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("drink %q: %w", drink.Title, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create drink: %w", err)
	}

	r.logger.Debug("drink created", zap.Int64("id", drink.ID), zap.String("title", drink.Title))
	return nil
}

// Update replaces title and recipe of an existing drink
func (r *DrinkRepository) Update(ctx context.Context, drink *models.Drink) error {
	recipe, err := drink.EncodeRecipe()
	if err != nil {
		return err
	}

	drink.UpdatedAt = time.Now().UTC()
	query := r.db.driver.Rebind(`
		UPDATE drinks
		SET title = $1, recipe = $2, updated_at = $3
		WHERE id = $4
	`)

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		drink.Title,
		recipe,
		drink.UpdatedAt,
		drink.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("drink %q: %w", drink.Title, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to update drink: %w", err)
	}

	if err := expectOneRow(result, drink.ID); err != nil {
		return err
	}

	r.logger.Debug("drink updated", zap.Int64("id", drink.ID))
	return nil
}

// Delete removes a drink by ID
func (r *DrinkRepository) Delete(ctx context.Context, id int64) error {
	query := r.db.driver.Rebind(`DELETE FROM drinks WHERE id = $1`)

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete drink: %w", err)
	}

	if err := expectOneRow(result, id); err != nil {
		return err
	}

	r.logger.Debug("drink deleted", zap.Int64("id", id))
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDrink(row rowScanner) (*models.Drink, error) {
	var (
		drink  models.Drink
		recipe string
	)
	if err := row.Scan(&drink.ID, &drink.Title, &recipe, &drink.CreatedAt, &drink.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan drink: %w", err)
	}
	if err := drink.DecodeRecipe(recipe); err != nil {
		return nil, err
	}
	return &drink, nil
}

func expectOneRow(result sql.Result, id int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("drink %d: %w", id, repositories.ErrNotFound)
	}
	return nil
}

// isUniqueViolation recognises unique constraint failures from either driver
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
