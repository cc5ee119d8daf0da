package repo

import (
	"context"
	"fmt"

	"ugcstudio/internal/infra"
	"ugcstudio/internal/sqlinline"
)

// EnsureSchema creates the journal and credential tables when missing.
func EnsureSchema(ctx context.Context, sql infra.SQLExecutor) error {
	for _, q := range []string{sqlinline.QCreateGenerationRuns, sqlinline.QCreateProviderCredentials} {
		if _, err := sql.Exec(ctx, q); err != nil {
			return fmt.Errorf("repo: ensure schema: %w", err)
		}
	}
	return nil
}
