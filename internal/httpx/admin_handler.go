package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/go-shop-api/internal/catalog"
	"github.com/ariefcatur/go-shop-api/internal/orders"
	"github.com/ariefcatur/go-shop-api/internal/users"
)

// AdminHandler serves the /admin subtree. The router guards it with the ADMIN role.
type AdminHandler struct {
	Catalog *catalog.Service
	Users   *users.Service
	Orders  *orders.Service
}

func (h *AdminHandler) Register(r chi.Router) {
	r.Post("/products", h.createProduct)
	r.Put("/products/{id}", h.updateProduct)
	r.Delete("/products/{id}", h.deleteProduct)

	r.Post("/brands", h.createBrand)
	r.Put("/brands/{id}", h.renameBrand)
	r.Delete("/brands/{id}", h.deleteBrand)

	r.Post("/categories", h.createCategory)
	r.Put("/categories/{id}", h.renameCategory)
	r.Delete("/categories/{id}", h.deleteCategory)

	r.Get("/users", h.listUsers)
	r.Put("/users/{id}/role", h.changeRole)
	r.Delete("/users/{id}", h.deleteUser)

	r.Get("/orders", h.listOrders)
}

func (h *AdminHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	in, err := productInput(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Catalog.CreateProduct(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *AdminHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	in, err := productInput(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.Catalog.UpdateProduct(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *AdminHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type nameReq struct {
	Name string `json:"name"`
}

func (h *AdminHandler) createBrand(w http.ResponseWriter, r *http.Request) {
	var req nameReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	b, err := h.Catalog.CreateBrand(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *AdminHandler) renameBrand(w http.ResponseWriter, r *http.Request) {
	var req nameReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Catalog.RenameBrand(r.Context(), chi.URLParam(r, "id"), req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) deleteBrand(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteBrand(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req nameReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.Catalog.CreateCategory(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *AdminHandler) renameCategory(w http.ResponseWriter, r *http.Request) {
	var req nameReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Catalog.RenameCategory(r.Context(), chi.URLParam(r, "id"), req.Name); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.Users.List(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type roleReq struct {
	Role string `json:"role"`
}

func (h *AdminHandler) changeRole(w http.ResponseWriter, r *http.Request) {
	var req roleReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	role, err := users.ParseRole(req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	u, err := h.Users.ChangeRole(r.Context(), claimsOf(r).UserID(), chi.URLParam(r, "id"), role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *AdminHandler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.Users.Delete(r.Context(), claimsOf(r).UserID(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type orderPage struct {
	Items []orders.Order `json:"items"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

func (h *AdminHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	items, total, err := h.Orders.ListAll(r.Context(), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderPage{Items: items, Total: total, Page: page.Page, Limit: page.Limit})
}
