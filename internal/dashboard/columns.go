package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/opensource-finance/lendscore/internal/domain"
	"github.com/opensource-finance/lendscore/internal/features"
	"github.com/opensource-finance/lendscore/internal/model"
)

// ColumnsFetcher asks the prediction service for its columns.
type ColumnsFetcher interface {
	Columns(ctx context.Context) ([]string, error)
}

// LoadColumns returns the classifier columns from cfg.ColumnsPath, or from
// the prediction service when no path is configured.
func LoadColumns(ctx context.Context, cfg domain.DashboardConfig, fetcher ColumnsFetcher) ([]string, error) {
	var (
		columns []string
		err     error
		source  string
	)

	switch {
	case cfg.ColumnsPath != "":
		source = cfg.ColumnsPath
		columns, err = model.ReadColumns(cfg.ColumnsPath)
	case fetcher != nil:
		source = cfg.APIURL
		columns, err = fetcher.Columns(ctx)
	default:
		return nil, errors.New("no columns path and no prediction service configured")
	}
	if err != nil {
		return nil, fmt.Errorf("load columns from %s: %w", source, err)
	}

	if missing := features.MissingColumns(columns); len(missing) > 0 {
		slog.Warn("column set lacks mapped features; the service ignores them",
			"missing", missing,
			"source", source,
		)
	}

	slog.Info("columns loaded", "count", len(columns), "source", source)
	return columns, nil
}
