package router

import (
	"context"

	"github.com/modaro-shop/modaro-backend/internal/analytics/types"
)

type fakeWriter struct {
	orderRows []types.OrderEventRow
	stockRows []types.StockEventRow
	err       error
}

func (f *fakeWriter) InsertOrderEvent(_ context.Context, row types.OrderEventRow) error {
	if f.err != nil {
		return f.err
	}
	f.orderRows = append(f.orderRows, row)
	return nil
}

func (f *fakeWriter) InsertStockEvent(_ context.Context, row types.StockEventRow) error {
	if f.err != nil {
		return f.err
	}
	f.stockRows = append(f.stockRows, row)
	return nil
}
