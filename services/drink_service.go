package services

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/upb/coffee-shop/internal/observability"
	"github.com/upb/coffee-shop/models"
	"github.com/upb/coffee-shop/repositories"
	"github.com/upb/coffee-shop/utils"
)

// DrinkService implements the drink menu operations
type DrinkService struct {
	drinks  repositories.DrinkRepository
	txMgr   repositories.TransactionManager
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewDrinkService creates a new DrinkService instance
func NewDrinkService(drinks repositories.DrinkRepository, txMgr repositories.TransactionManager, metrics *observability.Metrics, logger *zap.Logger) *DrinkService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DrinkService{
		drinks:  drinks,
		txMgr:   txMgr,
		metrics: metrics,
		logger:  logger,
	}
}

// List returns the whole menu
func (s *DrinkService) List(ctx context.Context) (drinks []*models.Drink, err error) {
	defer func() { s.metrics.RecordDrinkOperation("list", err) }()

	drinks, err = s.drinks.List(ctx)
	if err != nil {
		return nil, s.translate(err, 0)
	}
	return drinks, nil
}

// Create validates input and stores a new drink
func (s *DrinkService) Create(ctx context.Context, input models.DrinkInput) (drink *models.Drink, err error) {
	defer func() { s.metrics.RecordDrinkOperation("create", err) }()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, invalidInput(err)
	}

	drink = models.NewDrink(input.Title, input.Recipe)
	if err := s.drinks.Create(ctx, drink); err != nil {
		return nil, s.translate(err, 0)
	}

	s.logger.Info("drink created",
		zap.Int64("drink_id", drink.ID),
		zap.String("title", drink.Title))
	return drink, nil
}

// Update applies patch to drink id. Empty title or recipe values leave the
// stored value unchanged; a patch that changes nothing is rejected.
func (s *DrinkService) Update(ctx context.Context, id int64, patch models.DrinkPatch) (drink *models.Drink, err error) {
	defer func() { s.metrics.RecordDrinkOperation("update", err) }()

	if err := utils.ValidateStruct(patch); err != nil {
		return nil, invalidInput(err)
	}

	drink, err = WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) (*models.Drink, error) {
		existing, err := s.drinks.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if patch.IsEmpty() {
			return nil, ErrEmptyPatch
		}

		if patch.Title != nil && *patch.Title != "" {
			existing.Title = *patch.Title
		}
		if len(patch.Recipe) > 0 {
			existing.Recipe = patch.Recipe
		}

		if err := s.drinks.Update(ctx, existing); err != nil {
			return nil, err
		}
		return existing, nil
	})
	if err != nil {
		return nil, s.translate(err, id)
	}

	s.logger.Info("drink updated", zap.Int64("drink_id", id))
	return drink, nil
}

// Delete removes drink id
func (s *DrinkService) Delete(ctx context.Context, id int64) (err error) {
	defer func() { s.metrics.RecordDrinkOperation("delete", err) }()

	if err := s.drinks.Delete(ctx, id); err != nil {
		return s.translate(err, id)
	}

	s.logger.Info("drink deleted", zap.Int64("drink_id", id))
	return nil
}

// translate maps repository errors onto domain errors
func (s *DrinkService) translate(err error, id int64) error {
	var domainErr *DomainError
	switch {
	case errors.As(err, &domainErr):
		return err
	case errors.Is(err, repositories.ErrNotFound):
		return ErrDrinkNotFound.WithDetail("id", id)
	case errors.Is(err, repositories.ErrDuplicate):
		return ErrDuplicateDrink.Wrap(err)
	default:
		s.logger.Error("drink storage failure", zap.Int64("drink_id", id), zap.Error(err))
		return ErrDatabaseError.Wrap(err)
	}
}

func invalidInput(err error) error {
	out := ErrInvalidInput.Wrap(err)
	for k, v := range utils.FieldDetails(err) {
		out = out.WithDetail(k, v)
	}
	return out
}
