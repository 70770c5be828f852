package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/upb/coffee-shop/middleware"
	"github.com/upb/coffee-shop/models"
	"github.com/upb/coffee-shop/services"
	"github.com/upb/coffee-shop/utils"
)

// DrinkService is the drink menu behaviour the handler depends on
type DrinkService interface {
	List(ctx context.Context) ([]*models.Drink, error)
	Create(ctx context.Context, input models.DrinkInput) (*models.Drink, error)
	Update(ctx context.Context, id int64, patch models.DrinkPatch) (*models.Drink, error)
	Delete(ctx context.Context, id int64) error
}

// DrinkHandler handles the drink menu endpoints
type DrinkHandler struct {
	drinks DrinkService
	logger *zap.Logger
}

// NewDrinkHandler creates a new DrinkHandler
func NewDrinkHandler(drinks DrinkService, logger *zap.Logger) *DrinkHandler {
	return &DrinkHandler{
		drinks: drinks,
		logger: logger,
	}
}

// ListShort handles GET /drinks (public, ingredient names hidden)
func (h *DrinkHandler) ListShort(w http.ResponseWriter, r *http.Request) {
	drinks, err := h.drinks.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	views := make([]models.ShortDrink, 0, len(drinks))
	for _, d := range drinks {
		views = append(views, d.Short())
	}
	_ = utils.WriteOK(w, utils.Envelope{"drinks": views})
}

// ListLong handles GET /drinks-detail
func (h *DrinkHandler) ListLong(w http.ResponseWriter, r *http.Request, _ []string) {
	drinks, err := h.drinks.List(r.Context())
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, utils.Envelope{"drinks": longViews(drinks...)})
}

// Create handles POST /drinks
func (h *DrinkHandler) Create(w http.ResponseWriter, r *http.Request, _ []string) {
	var input models.DrinkInput
	if err := utils.DecodeJSON(r, &input); err != nil {
		HandleDecodeError(w, err, h.logger)
		return
	}

	drink, err := h.drinks.Create(r.Context(), input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("drink added to menu",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.Int64("drink_id", drink.ID))
	_ = utils.WriteOK(w, utils.Envelope{"drinks": longViews(drink)})
}

// Update handles PATCH /drinks/{id}
func (h *DrinkHandler) Update(w http.ResponseWriter, r *http.Request, _ []string) {
	id, ok := drinkID(r)
	if !ok {
		_ = utils.WriteNotFound(w, "")
		return
	}

	var patch models.DrinkPatch
	if err := utils.DecodeJSON(r, &patch); err != nil {
		HandleDecodeError(w, err, h.logger)
		return
	}

	drink, err := h.drinks.Update(r.Context(), id, patch)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	_ = utils.WriteOK(w, utils.Envelope{"drinks": longViews(drink)})
}

// Delete handles DELETE /drinks/{id}
func (h *DrinkHandler) Delete(w http.ResponseWriter, r *http.Request, _ []string) {
	id, ok := drinkID(r)
	if !ok {
		_ = utils.WriteNotFound(w, "")
		return
	}

	if err := h.drinks.Delete(r.Context(), id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("drink removed from menu",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.Int64("drink_id", id))
	_ = utils.WriteOK(w, utils.Envelope{"delete": id})
}

// drinkID parses the {id} URL parameter. A non-numeric id can never match a
// row, so callers answer 404.
func drinkID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func longViews(drinks ...*models.Drink) []models.LongDrink {
	views := make([]models.LongDrink, 0, len(drinks))
	for _, d := range drinks {
		views = append(views, d.Long())
	}
	return views
}

var _ DrinkService = (*services.DrinkService)(nil)
