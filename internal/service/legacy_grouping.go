package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/kaltre10/repuestos-oriente-sub000/internal/domain"
)

// GroupLegacySales reconstructs synthetic orders from sale rows that predate
// the orders table. Rows sharing (buyer id, sale date truncated to the
// minute) become one inferred order. The minute bucket is a heuristic, not a
// foreign key: two distinct purchases by the same buyer inside one minute
// merge into a single view. That imprecision is accepted legacy behavior and
// is deliberately not corrected here.
//
// The function is pure: it only reads the given slice and returns views
// sorted newest first.
func GroupLegacySales(sales []*domain.Sale) []*domain.OrderView {
	buckets := make(map[string]*domain.OrderView)
	order := []string{}

	for _, sale := range sales {
		minute := sale.SaleDate.Truncate(time.Minute)
		key := fmt.Sprintf("%s|%s", sale.BuyerID, minute.UTC().Format("2006-01-02T15:04"))

		view, ok := buckets[key]
		if !ok {
			view = &domain.OrderView{
				Kind:     domain.OrderViewInferred,
				GroupKey: key,
				BuyerID:  sale.BuyerID,
				Date:     sale.SaleDate,
			}
			buckets[key] = view
			order = append(order, key)
		}

		view.Sales = append(view.Sales, sale)
		view.Total += sale.LineTotal()
		if sale.SaleDate.Before(view.Date) {
			view.Date = sale.SaleDate
		}
	}

	views := make([]*domain.OrderView, 0, len(order))
	for _, key := range order {
		views = append(views, buckets[key])
	}

	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Date.After(views[j].Date)
	})

	return views
}

// AuthoritativeView wraps an orders-table row in the tagged union
func AuthoritativeView(order *domain.Order) *domain.OrderView {
	return &domain.OrderView{
		Kind:    domain.OrderViewAuthoritative,
		Order:   order,
		BuyerID: order.BuyerID,
		Date:    order.CreatedAt,
		Sales:   order.Sales,
		Total:   order.Total,
	}
}
