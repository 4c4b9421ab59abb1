package report

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/offpos/internal/logging"
	"github.com/roach88/offpos/internal/metrics"
	"github.com/roach88/offpos/internal/model"
	"github.com/roach88/offpos/internal/store"
)

// Generator builds and exports reports for one store.
// It takes no locks; reports read whatever is committed.
type Generator struct {
	store    *store.Store
	loc      *time.Location
	settings GSTSettings
	logger   *zap.Logger
}

// NewGenerator creates a Generator. A nil loc means UTC.
func NewGenerator(s *store.Store, loc *time.Location, settings GSTSettings, logger *zap.Logger) *Generator {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		store:    s,
		loc:      loc,
		settings: settings.withDefaults(),
		logger:   logger.Named("report"),
	}
}

// Build runs the builder for kind over snap.
func Build(kind Kind, snap Snapshot, settings GSTSettings) (Report, error) {
	switch kind {
	case KindSales:
		return BuildSales(snap), nil
	case KindProfitLoss:
		return BuildProfitLoss(snap), nil
	case KindExpense:
		return BuildExpenses(snap), nil
	case KindTax:
		return BuildTaxBreakdown(snap), nil
	case KindGSTR1:
		return BuildGSTR1(snap, settings), nil
	case KindGSTR2:
		return BuildGSTR2(snap, settings), nil
	case KindGSTR3B:
		return BuildGSTR3B(snap, settings), nil
	}
	return nil, model.NewError(model.CodeInvalidRecord, "report.build", "unknown report kind %q", kind)
}

// Generate reads the tenant's records for rng and builds the report.
func (g *Generator) Generate(ctx context.Context, restaurantID string, kind Kind, rng Range) (Report, error) {
	if err := model.RequireTenant("report.generate", restaurantID); err != nil {
		return nil, err
	}
	snap, err := LoadSnapshot(ctx, g.store, restaurantID, rng, g.loc)
	if err != nil {
		return nil, err
	}
	return Build(kind, snap, g.settings)
}

// Export generates the report, encodes it and hands it to sink. It returns
// the export file name.
func (g *Generator) Export(ctx context.Context, restaurantID string, kind Kind, rng Range, format Format, sink Sink) (string, error) {
	r, err := g.Generate(ctx, restaurantID, kind, rng)
	if err != nil {
		return "", err
	}
	content, err := Encode(r, format)
	if err != nil {
		return "", err
	}
	name := Filename(kind, rng, format)
	if err := sink.WriteAndOffer(ctx, content, name, format.MimeType()); err != nil {
		return "", err
	}

	metrics.ReportsGenerated.WithLabelValues(string(kind), string(format)).Inc()
	g.logger.Info("report exported",
		logging.Tenant(restaurantID),
		zap.String("kind", string(kind)),
		zap.String("file", name),
		zap.Int("bytes", len(content)),
	)
	return name, nil
}
