package repositories

import (
	"context"
	"errors"

	"github.com/upb/coffee-shop/models"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique constraint is violated
	ErrDuplicate = errors.New("duplicate record")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns a context carrying the transaction. Repository calls
	// made with it run inside the transaction.
	Context() context.Context
}

// DrinkRepository handles drink data operations
type DrinkRepository interface {
	// List returns every drink ordered by id
	List(ctx context.Context) ([]*models.Drink, error)

	// GetByID retrieves a drink by ID
	GetByID(ctx context.Context, id int64) (*models.Drink, error)

	// Create inserts a drink and sets its ID
	Create(ctx context.Context, drink *models.Drink) error

	// Update replaces title and recipe of an existing drink
	Update(ctx context.Context, drink *models.Drink) error

	// Delete removes a drink by ID
	Delete(ctx context.Context, id int64) error
}

// Repositories holds all repository instances
type Repositories struct {
	Drinks    DrinkRepository
	TxManager TransactionManager
}
