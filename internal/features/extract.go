// Package features derives per-product demand statistics from the monthly series.
package features

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"retail-demand-lab/internal/aggregation"
	"retail-demand-lab/internal/domain"
)

// ErrMissingProductInfo is returned when a product in the series has no transactions.
// It indicates the series and transactions came from different datasets.
var ErrMissingProductInfo = errors.New("product in monthly series has no transactions")

// Options controls extraction.
type Options struct {
	// Workers bounds concurrent per-product computation. 0 or 1 runs sequentially.
	Workers int
}

// productInfo accumulates transaction-level attributes for one product.
type productInfo struct {
	priceSum    decimal.Decimal
	priceCount  int64
	description *string
}

// Extract computes features for every product in series, in series.Products() order.
//
// txs must be the same filtered transactions the series was built from, in source
// order: the first non-NULL description per product wins.
// Output order and values do not depend on opts.Workers.
func Extract(ctx context.Context, series *aggregation.MonthlySeries, txs []domain.Transaction, opts Options) ([]*domain.ProductFeatures, error) {
	info := collectProductInfo(txs)
	products := series.Products()
	out := make([]*domain.ProductFeatures, len(products))

	compute := func(i int) error {
		code := products[i]
		pi, ok := info[code]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingProductInfo, code)
		}
		out[i] = computeProduct(code, series.Series(code), pi)
		return nil
	}

	if opts.Workers <= 1 {
		for i := range products {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := compute(i); err != nil {
				return nil, err
			}
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range products {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return compute(i)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// collectProductInfo makes a single ordered pass over txs.
// The description seen-marker is the nil check on info.description.
func collectProductInfo(txs []domain.Transaction) map[string]*productInfo {
	info := make(map[string]*productInfo)
	for i := range txs {
		t := &txs[i]
		pi, ok := info[t.StockCode]
		if !ok {
			pi = &productInfo{priceSum: decimal.Zero}
			info[t.StockCode] = pi
		}
		pi.priceSum = pi.priceSum.Add(t.UnitPrice)
		pi.priceCount++
		if pi.description == nil && t.Description != nil {
			d := *t.Description
			pi.description = &d
		}
	}
	return info
}

// computeProduct derives the feature record for one product.
func computeProduct(code string, monthly []int64, pi *productInfo) *domain.ProductFeatures {
	mean := computeMean(monthly)
	stddev := computeStddev(monthly, mean)

	unitPrice := 0.0
	if pi.priceCount > 0 {
		unitPrice = pi.priceSum.Div(decimal.NewFromInt(pi.priceCount)).InexactFloat64()
	}

	return &domain.ProductFeatures{
		StockCode:   code,
		AvgSales:    mean,
		StdDev:      stddev,
		MaxSales:    computeMax(monthly),
		CV:          computeCV(stddev, mean),
		UnitPrice:   unitPrice,
		Description: pi.description,
		AvgRevenue:  mean * unitPrice,
	}
}
