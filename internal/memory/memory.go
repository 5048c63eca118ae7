// Package memory keeps every store in process memory behind one mutex. It backs the
// STORE=memory run mode and the service tests.
package memory

import (
	"sync"
	"time"

	"github.com/ariefcatur/go-shop-api/internal/cart"
	"github.com/ariefcatur/go-shop-api/internal/catalog"
	"github.com/ariefcatur/go-shop-api/internal/orders"
	"github.com/ariefcatur/go-shop-api/internal/users"
)

type DB struct {
	mu sync.Mutex

	products   map[string]catalog.Product
	brands     map[string]catalog.Brand
	categories map[string]catalog.Category
	cartItems  map[string]cart.Item
	orders     map[string]orders.Order
	users      map[string]users.User

	// Now stamps created/updated times. Tests move it to age orders.
	Now func() time.Time
}

func New() *DB {
	return &DB{
		products:   map[string]catalog.Product{},
		brands:     map[string]catalog.Brand{},
		categories: map[string]catalog.Category{},
		cartItems:  map[string]cart.Item{},
		orders:     map[string]orders.Order{},
		users:      map[string]users.User{},
		Now:        time.Now,
	}
}

func (db *DB) Catalog() *CatalogRepo { return &CatalogRepo{db: db} }
func (db *DB) Carts() *CartRepo      { return &CartRepo{db: db} }
func (db *DB) Orders() *OrderStore   { return &OrderStore{db: db} }
func (db *DB) Users() *UserRepo      { return &UserRepo{db: db} }

func (db *DB) now() time.Time { return db.Now().UTC() }

func paginate[T any](all []T, page catalog.Page) []T {
	page = page.Normalize()
	start := page.Offset()
	if start >= len(all) {
		return []T{}
	}
	end := start + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}
