package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/elite-cart/internal/domain/models"
	"github.com/linemk/elite-cart/internal/service"
	"github.com/linemk/elite-cart/internal/storage"
)

// CreateProductRequest requires the full set of product fields
type CreateProductRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description" validate:"required"`
	Price       float64 `json:"price" validate:"gte=0"`
	ImageURL    string  `json:"image_url" validate:"required"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Category    string  `json:"category" validate:"required"`
}

// UpdateProductRequest carries a partial update: absent fields stay as
// they are.
type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	ImageURL    *string  `json:"image_url"`
	Stock       *int     `json:"stock" validate:"omitempty,gte=0"`
	Category    *string  `json:"category"`
}

// ProductListResponse wraps the catalog listing
type ProductListResponse struct {
	Products []*models.Product `json:"products"`
	Count    int               `json:"count"`
}

// ListProductsHandler handles GET /api/products with optional query
// filters: category, min_price, max_price, in_stock.
func ListProductsHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ListProductsHandler"
		logger := log.With(slog.String("op", op))

		filter, err := parseProductFilter(r)
		if err != nil {
			logger.Warn("invalid filter", slog.Any("error", err))
			writeError(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		products, err := productService.ListProducts(r.Context(), filter)
		if err != nil {
			logger.Error("failed to list products", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}
		if products == nil {
			products = []*models.Product{}
		}

		writeJSON(w, logger, http.StatusOK, ProductListResponse{
			Products: products,
			Count:    len(products),
		})
	}
}

// parseProductFilter reads the query filters. The in_stock flag is enabled
// only by the literal value "true": the previous behavior treated any
// present value as truthy, which made in_stock=false enable the filter.
func parseProductFilter(r *http.Request) (storage.ProductFilter, error) {
	var filter storage.ProductFilter
	q := r.URL.Query()

	filter.Category = q.Get("category")

	if raw := q.Get("min_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, &badQueryParamError{param: "min_price"}
		}
		filter.MinPrice = &v
	}
	if raw := q.Get("max_price"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, &badQueryParamError{param: "max_price"}
		}
		filter.MaxPrice = &v
	}
	filter.InStockOnly = q.Get("in_stock") == "true"

	return filter, nil
}

type badQueryParamError struct {
	param string
}

func (e *badQueryParamError) Error() string {
	return "invalid value for query parameter " + e.param
}

// GetProductHandler handles GET /api/products/{id}
func GetProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.GetProductHandler"
		logger := log.With(slog.String("op", op))

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid product id")
			return
		}

		product, err := productService.GetProduct(r.Context(), id)
		if err != nil {
			logger.Warn("failed to get product", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, product)
	}
}

// CreateProductHandler handles POST /api/products (token required)
func CreateProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateProductHandler"
		logger := log.With(slog.String("op", op))

		var req CreateProductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeError(w, logger, http.StatusBadRequest, "invalid request")
			return
		}

		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			writeError(w, logger, http.StatusBadRequest, "missing required fields")
			return
		}

		id, err := productService.CreateProduct(r.Context(), &models.Product{
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			ImageURL:    req.ImageURL,
			Stock:       req.Stock,
			Category:    req.Category,
		})
		if err != nil {
			logger.Error("failed to create product", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusCreated, map[string]any{
			"message":    "Product created successfully",
			"product_id": id,
		})
	}
}

// UpdateProductHandler handles PUT /api/products/{id} (token required).
// Only the supplied fields change.
func UpdateProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.UpdateProductHandler"
		logger := log.With(slog.String("op", op))

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid product id")
			return
		}

		var req UpdateProductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			writeError(w, logger, http.StatusBadRequest, "invalid request")
			return
		}

		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			writeError(w, logger, http.StatusBadRequest, "invalid field values")
			return
		}

		err = productService.UpdateProduct(r.Context(), id, storage.ProductUpdate{
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			ImageURL:    req.ImageURL,
			Stock:       req.Stock,
			Category:    req.Category,
		})
		if err != nil {
			logger.Warn("failed to update product", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]any{
			"message":    "Product updated successfully",
			"product_id": id,
		})
	}
}

// DeleteProductHandler handles DELETE /api/products/{id} (token required)
func DeleteProductHandler(log *slog.Logger, productService service.ProductService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.DeleteProductHandler"
		logger := log.With(slog.String("op", op))

		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid product id")
			return
		}

		if err := productService.DeleteProduct(r.Context(), id); err != nil {
			logger.Warn("failed to delete product", slog.Any("error", err))
			writeServiceError(w, logger, err)
			return
		}

		writeJSON(w, logger, http.StatusOK, map[string]any{
			"message": "Product deleted successfully",
		})
	}
}
