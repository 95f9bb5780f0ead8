package sheets

import (
	"context"

	"github.com/Richmiz/Coinlytics/internal/core"
)

// TransactionWriter is the outbound port for the spreadsheet export.
type TransactionWriter interface {
	Append(ctx context.Context, rec core.TransactionRecord) (rowRef string, err error)
}
