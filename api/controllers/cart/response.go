package cart

import (
	cartsvc "github.com/phenomboxing/storefront/internal/cart"
	"github.com/phenomboxing/storefront/pkg/money"
)

type LineItemView struct {
	Key        string `json:"key"`
	ProductID  string `json:"product_id"`
	Variant    string `json:"variant,omitempty"`
	Name       string `json:"name"`
	Image      string `json:"image"`
	Category   string `json:"category"`
	UnitPrice  string `json:"unit_price"`
	Quantity   int    `json:"quantity"`
	LineTotal  string `json:"line_total"`
	TotalCents int64  `json:"line_total_cents"`
}

// CartView is the cart as returned to the storefront. Totals are derived from
// the same snapshot as the items.
type CartView struct {
	SessionID  string         `json:"session_id"`
	Items      []LineItemView `json:"items"`
	ItemCount  int            `json:"item_count"`
	Total      string         `json:"total"`
	TotalCents int64          `json:"total_cents"`
	Version    int64          `json:"version"`
}

func newCartView(sessionID string, snap cartsvc.Snapshot) CartView {
	view := CartView{
		SessionID: sessionID,
		Items:     make([]LineItemView, 0, len(snap.Items)),
		Version:   snap.Version,
	}
	total := money.Sum()
	for _, item := range snap.Items {
		lineTotal := item.LineTotal()
		total = total.Add(lineTotal)
		view.ItemCount += item.Quantity
		view.Items = append(view.Items, LineItemView{
			Key:        item.Key.String(),
			ProductID:  item.Key.ProductID,
			Variant:    item.Key.Variant,
			Name:       item.Name,
			Image:      item.Image,
			Category:   item.Category,
			UnitPrice:  money.Format(item.UnitPrice),
			Quantity:   item.Quantity,
			LineTotal:  money.Format(lineTotal),
			TotalCents: money.ToCents(lineTotal),
		})
	}
	view.Total = money.Format(total)
	view.TotalCents = money.ToCents(total)
	return view
}
