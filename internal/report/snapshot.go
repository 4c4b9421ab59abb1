package report

import (
	"context"
	"time"

	"github.com/roach88/offpos/internal/model"
	"github.com/roach88/offpos/internal/store"
)

// Range is an inclusive date range of YYYY-MM-DD strings.
type Range struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Validate checks that both bounds are present. Bounds are not parsed.
func (r Range) Validate() error {
	if r.From == "" || r.To == "" {
		return model.NewError(model.CodeInvalidRecord, "report.range", "from and to are required")
	}
	return nil
}

// Contains reports whether date falls inside the range.
func (r Range) Contains(date string) bool {
	return date >= r.From && date <= r.To
}

// String renders the range for report headers.
func (r Range) String() string {
	return r.From + " to " + r.To
}

// Snapshot is the input of every report. Reads across the four record
// families are not transactional.
type Snapshot struct {
	Range    Range
	Location *time.Location

	// Orders in range, ordered by created_at.
	Orders []model.Order

	// Items of Orders, keyed by order id.
	Items map[string][]model.OrderItem

	// Expenses in range, ordered by date then insertion.
	Expenses []model.Expense

	// Taxes configured for the tenant.
	Taxes []model.Tax
}

// LoadSnapshot reads the tenant's records for rng from s.
func LoadSnapshot(ctx context.Context, s *store.Store, restaurantID string, rng Range, loc *time.Location) (Snapshot, error) {
	if err := rng.Validate(); err != nil {
		return Snapshot{}, err
	}
	if loc == nil {
		loc = time.UTC
	}

	all, err := s.ListOrders(ctx, restaurantID, orderBounds(rng, loc))
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Range: rng, Location: loc, Items: make(map[string][]model.OrderItem)}
	var ids []string
	for _, o := range all {
		if rng.Contains(localDate(o.CreatedAt, loc)) {
			snap.Orders = append(snap.Orders, o)
			ids = append(ids, o.ID)
		}
	}

	items, err := s.ListOrderItems(ctx, restaurantID, ids)
	if err != nil {
		return Snapshot{}, err
	}
	for _, item := range items {
		snap.Items[item.OrderID] = append(snap.Items[item.OrderID], item)
	}

	snap.Expenses, err = s.ListExpenses(ctx, restaurantID, store.ExpenseFilter{From: rng.From, To: rng.To})
	if err != nil {
		return Snapshot{}, err
	}
	snap.Taxes, err = s.ListTaxes(ctx, restaurantID)
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// orderBounds turns rng into UTC created_at bounds covering whole local days.
// Bounds that are not dates leave the query open; Contains still filters.
func orderBounds(rng Range, loc *time.Location) store.OrderFilter {
	var f store.OrderFilter
	if from, err := time.ParseInLocation("2006-01-02", rng.From, loc); err == nil {
		f.From = from.UTC()
	}
	if to, err := time.ParseInLocation("2006-01-02", rng.To, loc); err == nil {
		f.To = to.AddDate(0, 0, 1).UTC()
	}
	return f
}

func localDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}
