package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/basketwise/basketwise-backend/api/responses"
	"github.com/basketwise/basketwise-backend/api/validators"
	productsvc "github.com/basketwise/basketwise-backend/internal/products"
	pkgerrors "github.com/basketwise/basketwise-backend/pkg/errors"
	"github.com/basketwise/basketwise-backend/pkg/logger"
	"github.com/basketwise/basketwise-backend/pkg/pagination"
)

const (
	maxQueryLength     = 255
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type resolveProductRequest struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Barcode     *string    `json:"barcode,omitempty" validate:"omitempty,max=32"`
	Brand       *string    `json:"brand,omitempty" validate:"omitempty,max=255"`
	Size        *string    `json:"size,omitempty" validate:"omitempty,max=64"`
	Unit        *string    `json:"unit,omitempty" validate:"omitempty,max=32"`
	ImageURL    *string    `json:"imageUrl,omitempty" validate:"omitempty,url"`
	CategoryID  *uuid.UUID `json:"categoryId,omitempty"`
	Description *string    `json:"description,omitempty"`
}

func (r resolveProductRequest) toInput() productsvc.ResolveProductInput {
	return productsvc.ResolveProductInput{
		Name:        r.Name,
		Barcode:     r.Barcode,
		Brand:       r.Brand,
		Size:        r.Size,
		Unit:        r.Unit,
		ImageURL:    r.ImageURL,
		CategoryID:  r.CategoryID,
		Description: r.Description,
	}
}

// ResolveProduct answers 201 when the submission created a product and 200
// when it matched (and possibly enriched) an existing one.
func ResolveProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}

		var payload resolveProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, created, err := svc.ResolveProduct(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, product)
	}
}

func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		id, err := uuidParam(r, "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ListProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := r.URL.Query()
		result, err := svc.ListProducts(r.Context(), productsvc.ListProductsInput{
			Pagination: pagination.Params{Limit: limit, Cursor: strings.TrimSpace(query.Get("cursor"))},
			Query:      validators.SanitizeString(query.Get("q"), maxQueryLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func SearchProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", defaultSearchLimit, 1, maxSearchLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		hits, err := svc.SearchProducts(r.Context(), validators.SanitizeString(r.URL.Query().Get("q"), maxQueryLength), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"hits": hits})
	}
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, name))
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+name).
			WithDetails(map[string]any{"field": name})
	}
	return id, nil
}
