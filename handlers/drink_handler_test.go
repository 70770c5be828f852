package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/upb/coffee-shop/models"
	"github.com/upb/coffee-shop/services"
)

type MockDrinkService struct {
	mock.Mock
}

func (m *MockDrinkService) List(ctx context.Context) ([]*models.Drink, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Drink), args.Error(1)
}

func (m *MockDrinkService) Create(ctx context.Context, input models.DrinkInput) (*models.Drink, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Drink), args.Error(1)
}

func (m *MockDrinkService) Update(ctx context.Context, id int64, patch models.DrinkPatch) (*models.Drink, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Drink), args.Error(1)
}

func (m *MockDrinkService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func water() *models.Drink {
	return &models.Drink{
		ID:     1,
		Title:  "Water",
		Recipe: models.Recipe{{Name: "water", Color: "blue", Parts: 1}},
	}
}

// withURLParam attaches a chi route context so chi.URLParam resolves
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestDrinkHandler_ListShort(t *testing.T) {
	svc := new(MockDrinkService)
	svc.On("List", mock.Anything).Return([]*models.Drink{water()}, nil)

	h := NewDrinkHandler(svc, zap.NewNop())
	w := httptest.NewRecorder()
	h.ListShort(w, httptest.NewRequest(http.MethodGet, "/drinks", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"success":true,"drinks":[{"id":1,"title":"Water","recipe":[{"color":"blue","parts":1}]}]}`,
		w.Body.String())
	svc.AssertExpectations(t)
}

func TestDrinkHandler_ListShortEmpty(t *testing.T) {
	svc := new(MockDrinkService)
	svc.On("List", mock.Anything).Return([]*models.Drink{}, nil)

	h := NewDrinkHandler(svc, zap.NewNop())
	w := httptest.NewRecorder()
	h.ListShort(w, httptest.NewRequest(http.MethodGet, "/drinks", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"drinks":[]}`, w.Body.String())
}

func TestDrinkHandler_ListLong(t *testing.T) {
	svc := new(MockDrinkService)
	svc.On("List", mock.Anything).Return([]*models.Drink{water()}, nil)

	h := NewDrinkHandler(svc, zap.NewNop())
	w := httptest.NewRecorder()
	h.ListLong(w, httptest.NewRequest(http.MethodGet, "/drinks-detail", nil), nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t,
		`{"success":true,"drinks":[{"id":1,"title":"Water","recipe":[{"name":"water","color":"blue","parts":1}]}]}`,
		w.Body.String())
}

func TestDrinkHandler_ListDatabaseFailure(t *testing.T) {
	svc := new(MockDrinkService)
	svc.On("List", mock.Anything).Return(nil, services.ErrDatabaseError)

	h := NewDrinkHandler(svc, zap.NewNop())
	w := httptest.NewRecorder()
	h.ListShort(w, httptest.NewRequest(http.MethodGet, "/drinks", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestDrinkHandler_Create(t *testing.T) {
	t.Run("returns the new drink in long form", func(t *testing.T) {
		svc := new(MockDrinkService)
		input := models.DrinkInput{
			Title:  "Water",
			Recipe: models.Recipe{{Name: "water", Color: "blue", Parts: 1}},
		}
		svc.On("Create", mock.Anything, input).Return(water(), nil)

		h := NewDrinkHandler(svc, zap.NewNop())
		body := `{"title":"Water","recipe":[{"name":"water","color":"blue","parts":1}]}`
		w := httptest.NewRecorder()
		h.Create(w, httptest.NewRequest(http.MethodPost, "/drinks", strings.NewReader(body)), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t,
			`{"success":true,"drinks":[{"id":1,"title":"Water","recipe":[{"name":"water","color":"blue","parts":1}]}]}`,
			w.Body.String())
		svc.AssertExpectations(t)
	})

	t.Run("accepts a single ingredient object", func(t *testing.T) {
		svc := new(MockDrinkService)
		input := models.DrinkInput{
			Title:  "Water",
			Recipe: models.Recipe{{Name: "water", Color: "blue", Parts: 1}},
		}
		svc.On("Create", mock.Anything, input).Return(water(), nil)

		h := NewDrinkHandler(svc, zap.NewNop())
		body := `{"title":"Water","recipe":{"name":"water","color":"blue","parts":1}}`
		w := httptest.NewRecorder()
		h.Create(w, httptest.NewRequest(http.MethodPost, "/drinks", strings.NewReader(body)), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("malformed body is unprocessable", func(t *testing.T) {
		svc := new(MockDrinkService)
		h := NewDrinkHandler(svc, zap.NewNop())

		w := httptest.NewRecorder()
		h.Create(w, httptest.NewRequest(http.MethodPost, "/drinks", strings.NewReader(`{"title":`)), nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "unprocessable", body["message"])
		svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate title conflicts", func(t *testing.T) {
		svc := new(MockDrinkService)
		svc.On("Create", mock.Anything, mock.Anything).Return(nil, services.ErrDuplicateDrink)

		h := NewDrinkHandler(svc, zap.NewNop())
		body := `{"title":"Water","recipe":[{"name":"water","color":"blue","parts":1}]}`
		w := httptest.NewRecorder()
		h.Create(w, httptest.NewRequest(http.MethodPost, "/drinks", strings.NewReader(body)), nil)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("validation failure is unprocessable", func(t *testing.T) {
		svc := new(MockDrinkService)
		svc.On("Create", mock.Anything, mock.Anything).
			Return(nil, services.ErrInvalidInput.WithDetail("title", "title is required"))

		h := NewDrinkHandler(svc, zap.NewNop())
		w := httptest.NewRecorder()
		h.Create(w, httptest.NewRequest(http.MethodPost, "/drinks", strings.NewReader(`{"recipe":[]}`)), nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		details := decodeBody(t, w)["details"].(map[string]interface{})
		assert.Equal(t, "title is required", details["title"])
	})
}

func TestDrinkHandler_Update(t *testing.T) {
	t.Run("applies patch", func(t *testing.T) {
		svc := new(MockDrinkService)
		updated := water()
		updated.Title = "Sparkling Water"
		title := "Sparkling Water"
		svc.On("Update", mock.Anything, int64(1), models.DrinkPatch{Title: &title}).Return(updated, nil)

		h := NewDrinkHandler(svc, zap.NewNop())
		req := httptest.NewRequest(http.MethodPatch, "/drinks/1", strings.NewReader(`{"title":"Sparkling Water"}`))
		w := httptest.NewRecorder()
		h.Update(w, withURLParam(req, "id", "1"), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		drinks := decodeBody(t, w)["drinks"].([]interface{})
		require.Len(t, drinks, 1)
		assert.Equal(t, "Sparkling Water", drinks[0].(map[string]interface{})["title"])
		svc.AssertExpectations(t)
	})

	t.Run("missing drink", func(t *testing.T) {
		svc := new(MockDrinkService)
		svc.On("Update", mock.Anything, int64(42), mock.Anything).Return(nil, services.ErrDrinkNotFound)

		h := NewDrinkHandler(svc, zap.NewNop())
		req := httptest.NewRequest(http.MethodPatch, "/drinks/42", strings.NewReader(`{"title":"Tea"}`))
		w := httptest.NewRecorder()
		h.Update(w, withURLParam(req, "id", "42"), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non-numeric id is not found", func(t *testing.T) {
		svc := new(MockDrinkService)
		h := NewDrinkHandler(svc, zap.NewNop())

		req := httptest.NewRequest(http.MethodPatch, "/drinks/abc", strings.NewReader(`{"title":"Tea"}`))
		w := httptest.NewRecorder()
		h.Update(w, withURLParam(req, "id", "abc"), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
		svc.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty body is unprocessable", func(t *testing.T) {
		svc := new(MockDrinkService)
		h := NewDrinkHandler(svc, zap.NewNop())

		req := httptest.NewRequest(http.MethodPatch, "/drinks/1", strings.NewReader(""))
		w := httptest.NewRecorder()
		h.Update(w, withURLParam(req, "id", "1"), nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestDrinkHandler_Delete(t *testing.T) {
	tests := []struct {
		name           string
		id             string
		setup          func(*MockDrinkService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "deletes drink",
			id:   "1",
			setup: func(m *MockDrinkService) {
				m.On("Delete", mock.Anything, int64(1)).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"success":true,"delete":1}`,
		},
		{
			name: "missing drink",
			id:   "7",
			setup: func(m *MockDrinkService) {
				m.On("Delete", mock.Anything, int64(7)).Return(services.ErrDrinkNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "zero id",
			id:             "0",
			setup:          func(*MockDrinkService) {},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "non-numeric id",
			id:             "latte",
			setup:          func(*MockDrinkService) {},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockDrinkService)
			tt.setup(svc)

			h := NewDrinkHandler(svc, zap.NewNop())
			req := httptest.NewRequest(http.MethodDelete, "/drinks/"+tt.id, nil)
			w := httptest.NewRecorder()
			h.Delete(w, withURLParam(req, "id", tt.id), nil)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.JSONEq(t, tt.expectedBody, w.Body.String())
			}
			svc.AssertExpectations(t)
		})
	}
}
