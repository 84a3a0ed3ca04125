package ports

import (
	"context"

	"gridsheet/domain/sheet"
)

// SaveReceipt is what the data API acknowledged for a save
type SaveReceipt struct {
	Message string
	IDs     []int64 // identities of the submitted rows, when the API reports them
}

// DataAPI defines the remote measurement data service
type DataAPI interface {
	// Read paths degrade to empty results instead of failing
	FetchData(ctx context.Context) []sheet.Row
	FetchStats(ctx context.Context) sheet.Statistics

	// Write paths propagate failures to the caller
	SaveData(ctx context.Context, rows []sheet.Row) (SaveReceipt, error)
	SaveRow(ctx context.Context, row sheet.Row) (int64, error)
}
