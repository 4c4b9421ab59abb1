package harness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/roach88/offpos/internal/model"
	"github.com/roach88/offpos/internal/report"
)

type actionFunc func(ctx context.Context, h *Harness, args argMap) (any, error)

// actions maps scenario action names to their implementation.
var actions = map[string]actionFunc{
	"customer.upsert":       customerUpsert,
	"customer.delete":       customerDelete,
	"ledger.add_credit":     ledgerAddCredit,
	"ledger.record_payment": ledgerRecordPayment,
	"ledger.verify":         ledgerVerify,
	"ledger.recompute":      ledgerRecompute,
	"remote.set":            remoteSet,
	"remote.fail":           remoteFail,
	"remote.restore":        remoteRestore,
	"notify.sync":           notifySync,
	"notify.mark_read":      notifyMarkRead,
	"notify.mark_all_read":  notifyMarkAllRead,
	"session.logout":        sessionLogout,
	"order.upsert":          orderUpsert,
	"expense.upsert":        expenseUpsert,
	"tax.upsert":            taxUpsert,
	"report.generate":       reportGenerate,
}

func customerUpsert(ctx context.Context, h *Harness, args argMap) (any, error) {
	c := model.Customer{
		ID:           args.str("id"),
		RestaurantID: h.restaurant,
		Name:         args.str("name"),
		Mobile:       args.str("mobile"),
		CreatedAt:    h.clock.Now(),
	}
	if err := h.store.UpsertCustomer(ctx, c); err != nil {
		return nil, err
	}
	return h.store.GetCustomer(ctx, h.restaurant, c.ID)
}

func customerDelete(ctx context.Context, h *Harness, args argMap) (any, error) {
	return h.ledger.DeleteCustomer(ctx, h.restaurant, args.str("customer"))
}

func ledgerAddCredit(ctx context.Context, h *Harness, args argMap) (any, error) {
	amount, err := args.dec("amount")
	if err != nil {
		return nil, err
	}
	return h.ledger.AddCredit(ctx, h.restaurant, args.str("customer"), amount, args.str("description"))
}

func ledgerRecordPayment(ctx context.Context, h *Harness, args argMap) (any, error) {
	amount, err := args.dec("amount")
	if err != nil {
		return nil, err
	}
	return h.ledger.RecordPayment(ctx, h.restaurant, args.str("customer"), amount, args.str("description"))
}

func ledgerVerify(ctx context.Context, h *Harness, args argMap) (any, error) {
	r, err := h.ledger.Verify(ctx, h.restaurant, args.str("customer"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"ok": r.OK(), "balance": r.Balance, "ledger_sum": r.LedgerSum, "transactions": r.Transactions}, nil
}

func ledgerRecompute(ctx context.Context, h *Harness, args argMap) (any, error) {
	sum, err := h.ledger.Recompute(ctx, h.restaurant, args.str("customer"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"balance": sum}, nil
}

type notificationArg struct {
	ID        string `yaml:"id"`
	Title     string `yaml:"title"`
	Message   string `yaml:"message"`
	Type      string `yaml:"type"`
	IsRead    bool   `yaml:"is_read"`
	CreatedAt string `yaml:"created_at"`
}

func remoteSet(_ context.Context, h *Harness, args argMap) (any, error) {
	var in []notificationArg
	if err := args.decode("notifications", &in); err != nil {
		return nil, err
	}
	feed := make([]model.RemoteNotification, 0, len(in))
	for _, n := range in {
		r := model.RemoteNotification{
			ID:      n.ID,
			Title:   n.Title,
			Message: n.Message,
			Type:    model.NotificationType(n.Type),
			IsRead:  n.IsRead,
		}
		if n.CreatedAt != "" {
			t, err := parseTime("created_at", n.CreatedAt)
			if err != nil {
				return nil, err
			}
			r.CreatedAt = &t
		}
		feed = append(feed, r)
	}
	h.remote.Set(h.restaurant, feed...)
	return map[string]any{"count": len(feed)}, nil
}

func remoteFail(_ context.Context, h *Harness, args argMap) (any, error) {
	msg := args.str("message")
	if msg == "" {
		msg = "connection refused"
	}
	h.remote.SetFetchErr(errors.New(msg))
	h.remote.SetPushErr(errors.New(msg))
	return nil, nil
}

func remoteRestore(_ context.Context, h *Harness, _ argMap) (any, error) {
	h.remote.SetFetchErr(nil)
	h.remote.SetPushErr(nil)
	return nil, nil
}

func notifySync(ctx context.Context, h *Harness, _ argMap) (any, error) {
	res, err := h.notify.Sync(ctx, h.restaurant)
	if err != nil {
		return nil, err
	}
	out := map[string]any{
		"count":     len(res.Notifications),
		"unread":    res.Unread,
		"inserted":  res.Inserted,
		"updated":   res.Updated,
		"delivered": res.Delivered,
	}
	if res.RemoteErr != nil {
		out["remote_error"] = string(model.CodeOf(res.RemoteErr))
	}
	return out, nil
}

func notifyMarkRead(ctx context.Context, h *Harness, args argMap) (any, error) {
	changed, err := h.notify.MarkRead(ctx, h.restaurant, args.str("id"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"changed": changed}, nil
}

func notifyMarkAllRead(ctx context.Context, h *Harness, _ argMap) (any, error) {
	ids, err := h.notify.MarkAllRead(ctx, h.restaurant)
	if err != nil {
		return nil, err
	}
	return map[string]any{"marked": len(ids)}, nil
}

func sessionLogout(ctx context.Context, h *Harness, _ argMap) (any, error) {
	return nil, h.notify.Logout(ctx, h.restaurant)
}

type itemArg struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Quantity   int64  `yaml:"quantity"`
	TotalPrice string `yaml:"total_price"`
}

func orderUpsert(ctx context.Context, h *Harness, args argMap) (any, error) {
	o := model.Order{
		ID:            args.str("id"),
		OrderNumber:   args.str("order_number"),
		RestaurantID:  h.restaurant,
		Status:        args.strOr("status", model.OrderServed),
		PaymentStatus: args.strOr("payment_status", model.PaymentPaid),
		PaymentMethod: args.strOr("payment_method", "CASH"),
	}
	var err error
	if o.TotalAmount, err = args.decOr("total", decimal.Zero); err != nil {
		return nil, err
	}
	if o.TaxAmount, err = args.decOr("tax", decimal.Zero); err != nil {
		return nil, err
	}
	if o.CreatedAt, err = args.timeOr("created_at", h.clock.Now()); err != nil {
		return nil, err
	}

	var items []itemArg
	if err := args.decode("items", &items); err != nil {
		return nil, err
	}
	for _, it := range items {
		price, err := decimal.NewFromString(it.TotalPrice)
		if err != nil {
			return nil, model.NewError(model.CodeInvalidAmount, "harness.order", "item price %q: %v", it.TotalPrice, err)
		}
		o.Items = append(o.Items, model.OrderItem{ID: it.ID, Name: it.Name, Quantity: it.Quantity, TotalPrice: price})
	}

	if err := h.store.UpsertOrder(ctx, o); err != nil {
		return nil, err
	}
	return h.store.GetOrder(ctx, h.restaurant, o.ID)
}

func expenseUpsert(ctx context.Context, h *Harness, args argMap) (any, error) {
	amount, err := args.dec("amount")
	if err != nil {
		return nil, err
	}
	e := model.Expense{
		ID:           args.str("id"),
		RestaurantID: h.restaurant,
		Category:     args.str("category"),
		Amount:       amount,
		Date:         args.str("date"),
		VendorName:   args.optional("vendor"),
		Description:  args.optional("description"),
	}
	if err := h.store.UpsertExpense(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func taxUpsert(ctx context.Context, h *Harness, args argMap) (any, error) {
	pct, err := args.dec("percentage")
	if err != nil {
		return nil, err
	}
	t := model.Tax{ID: args.str("id"), RestaurantID: h.restaurant, Name: args.str("name"), Percentage: pct}
	if err := h.store.UpsertTax(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func reportGenerate(ctx context.Context, h *Harness, args argMap) (any, error) {
	kind, err := report.ParseKind(args.str("kind"))
	if err != nil {
		return nil, err
	}
	return h.reports.Generate(ctx, h.restaurant, kind, report.Range{From: args.str("from"), To: args.str("to")})
}

// argMap is the args block of a step as decoded from YAML.
type argMap map[string]any

func (a argMap) str(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	if t, ok := v.(time.Time); ok {
		return t.Format("2006-01-02")
	}
	return fmt.Sprint(v)
}

func (a argMap) strOr(key, fallback string) string {
	if s := a.str(key); s != "" {
		return s
	}
	return fallback
}

func (a argMap) optional(key string) *string {
	if s := a.str(key); s != "" {
		return &s
	}
	return nil
}

func (a argMap) dec(key string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(a.str(key))
	if err != nil {
		return decimal.Zero, model.NewError(model.CodeInvalidAmount, "harness.args", "%s: %q is not a number", key, a.str(key))
	}
	return d, nil
}

func (a argMap) decOr(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if _, ok := a[key]; !ok {
		return fallback, nil
	}
	return a.dec(key)
}

func (a argMap) timeOr(key string, fallback time.Time) (time.Time, error) {
	switch v := a[key].(type) {
	case nil:
		return fallback, nil
	case time.Time:
		return v.UTC(), nil
	case string:
		return parseTime(key, v)
	default:
		return time.Time{}, model.NewError(model.CodeInvalidRecord, "harness.args", "%s: bad time %v", key, v)
	}
}

func parseTime(key, v string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, model.NewError(model.CodeInvalidRecord, "harness.args", "%s: bad time %q", key, v)
}

// decode converts a nested value into out through YAML, so the yaml tags of
// out apply. A missing key leaves out untouched.
func (a argMap) decode(key string, out any) error {
	v, ok := a[key]
	if !ok {
		return nil
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return model.WrapError(model.CodeInvalidRecord, "harness.args", fmt.Errorf("%s: %w", key, err))
	}
	return nil
}
