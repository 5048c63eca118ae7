package orders

import (
	"context"
	"sort"
	"time"

	"github.com/ariefcatur/go-shop-api/internal/catalog"
)

// Store persists orders. CreatePending and FailAndRelease move stock together with the
// order rows, so the two never disagree.
type Store interface {
	// CreatePending decrements stock for every line and inserts a PENDING order with
	// its items in one atomic step. A short line aborts everything with
	// apperr.InsufficientStock carrying the stock seen at commit time.
	CreatePending(ctx context.Context, userID string, lines []Line) (Order, error)
	Get(ctx context.Context, id string) (Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListAll(ctx context.Context, page catalog.Page) ([]Order, int, error)
	AttachInvoice(ctx context.Context, id, invoiceID, invoiceURL string) error
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]Order, error)

	// MarkPaid and FailAndRelease only act on PENDING orders and report whether they
	// changed anything.
	MarkPaid(ctx context.Context, id string) (bool, error)
	FailAndRelease(ctx context.Context, id string) (bool, error)
}

// NormalizeLines merges duplicate products and sorts by product id. Every writer takes
// row locks in this order.
func NormalizeLines(lines []Line) []Line {
	qty := make(map[string]int, len(lines))
	for _, l := range lines {
		qty[l.ProductID] += l.Quantity
	}
	out := make([]Line, 0, len(qty))
	for id, q := range qty {
		out = append(out, Line{ProductID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
