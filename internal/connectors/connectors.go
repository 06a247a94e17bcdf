package connectors

import (
	"context"

	"transparencia/internal"
)

// TableWriter publishes a table to a named tab, replacing whatever the tab held before.
type TableWriter interface {
	WriteTable(ctx context.Context, tab string, table internal.Table) error
}
