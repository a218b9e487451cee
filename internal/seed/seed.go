package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"

	"go.uber.org/zap"

	"storefront/internal/importer"
)

//go:embed data/catalog.csv
var demoCatalog []byte

// Apply loads the demo catalog for manual testing. Upserts make it safe to
// run repeatedly.
func Apply(ctx context.Context, repo importer.CatalogWriter, logger *zap.Logger) (importer.Stats, error) {
	stats, err := importer.NewCSVImporter(bytes.NewReader(demoCatalog), repo, logger).Run(ctx)
	if err != nil {
		return stats, fmt.Errorf("seed catalog: %w", err)
	}
	return stats, nil
}
