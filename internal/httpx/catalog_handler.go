package httpx

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-shop-api/internal/apperr"
	"github.com/ariefcatur/go-shop-api/internal/catalog"
)

type CatalogHandler struct {
	Catalog *catalog.Service
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}", h.getProduct)
	r.Get("/brands", h.listBrands)
	r.Get("/categories", h.listCategories)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	f, err := filterFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, err := pageFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Catalog.ListProducts(r.Context(), f, page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func filterFrom(r *http.Request) (catalog.ProductFilter, error) {
	q := r.URL.Query()
	f := catalog.ProductFilter{
		CategoryID: strings.TrimSpace(q.Get("category")),
		BrandID:    strings.TrimSpace(q.Get("brand")),
		Search:     strings.TrimSpace(q.Get("search")),
	}
	if raw := q.Get("min_price"); raw != "" {
		d, err := catalog.ParsePrice(raw)
		if err != nil {
			return f, apperr.Validation("min_price must be a non-negative decimal")
		}
		f.MinPrice = &d
	}
	if raw := q.Get("max_price"); raw != "" {
		d, err := catalog.ParsePrice(raw)
		if err != nil {
			return f, apperr.Validation("max_price must be a non-negative decimal")
		}
		f.MaxPrice = &d
	}
	return f, nil
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.Catalog.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) listBrands(w http.ResponseWriter, r *http.Request) {
	bs, err := h.Catalog.ListBrands(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bs)
}

func (h *CatalogHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	cs, err := h.Catalog.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cs)
}

type productBody struct {
	Name        *string      `json:"name"`
	Description *string      `json:"description"`
	Price       *json.Number `json:"price"`
	Stock       *int         `json:"stock"`
	ImageURL    *string      `json:"image_url"`
	CategoryID  *string      `json:"category_id"`
	BrandID     *string      `json:"brand_id"`
}

// productInput reads a product from a JSON body or from url-encoded or multipart
// form fields.
func productInput(r *http.Request) (catalog.ProductInput, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return productInputFromForm(r)
	}

	var b productBody
	if err := decodeJSON(r, &b); err != nil {
		return catalog.ProductInput{}, err
	}
	in := catalog.ProductInput{
		Name:        b.Name,
		Description: b.Description,
		Stock:       b.Stock,
		ImageURL:    b.ImageURL,
		CategoryID:  b.CategoryID,
		BrandID:     b.BrandID,
	}
	if b.Price != nil {
		s := b.Price.String()
		in.Price = &s
	}
	return in, nil
}

func productInputFromForm(r *http.Request) (catalog.ProductInput, error) {
	if err := r.ParseMultipartForm(maxBody); err != nil && err != http.ErrNotMultipart {
		return catalog.ProductInput{}, apperr.Validation("invalid form: %v", err)
	}
	field := func(key string) *string {
		if _, ok := r.PostForm[key]; !ok {
			return nil
		}
		v := r.PostForm.Get(key)
		return &v
	}
	in := catalog.ProductInput{
		Name:        field("name"),
		Description: field("description"),
		Price:       field("price"),
		ImageURL:    field("image_url"),
		CategoryID:  field("category_id"),
		BrandID:     field("brand_id"),
	}
	if raw := field("stock"); raw != nil {
		n, err := strconv.Atoi(strings.TrimSpace(*raw))
		if err != nil {
			return catalog.ProductInput{}, apperr.Validation("stock must be an integer")
		}
		in.Stock = &n
	}
	return in, nil
}
