package service

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"marketplace-checkout/internal/domain"
	"marketplace-checkout/internal/repo"
)

// InventoryGuard locks product rows and moves stock. Every method must run
// inside the caller's transaction; locks are released by its commit or rollback.
type InventoryGuard struct {
	products repo.ProductRepo
	logger   *zap.Logger
}

func NewInventoryGuard(products repo.ProductRepo, logger *zap.Logger) *InventoryGuard {
	return &InventoryGuard{products: products, logger: logger}
}

// Reserve locks each product in input order and checks stock without
// changing it. A product listed twice is checked against what the earlier
// lines already claimed.
func (g *InventoryGuard) Reserve(ctx context.Context, tx *sql.Tx, items []domain.LineItem) ([]domain.ProductSnapshot, error) {
	snapshots := make([]domain.ProductSnapshot, 0, len(items))
	claimed := make(map[int64]int64, len(items))

	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, domain.InvalidQuantity(item.ProductID, item.Quantity)
		}

		product, err := g.products.LockByID(ctx, tx, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("lock product %d: %w", item.ProductID, err)
		}
		if product == nil {
			return nil, domain.ProductNotFound(item.ProductID)
		}

		available := product.Stock - claimed[product.ID]
		if available < item.Quantity {
			return nil, domain.InsufficientStock(product.ID, available, item.Quantity)
		}
		claimed[product.ID] += item.Quantity

		snapshots = append(snapshots, domain.ProductSnapshot{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  item.Quantity,
			Stock:     product.Stock,
		})
	}
	return snapshots, nil
}

// CommitDecrement applies a successful Reserve from the same transaction.
func (g *InventoryGuard) CommitDecrement(ctx context.Context, tx *sql.Tx, snapshots []domain.ProductSnapshot) error {
	for _, s := range snapshots {
		if err := g.products.DecrementStock(ctx, tx, s.ProductID, s.Quantity); err != nil {
			return fmt.Errorf("decrement product %d: %w", s.ProductID, err)
		}
	}
	return nil
}

// Restore returns each item's quantity to stock, locking products in id
// order. Products that no longer exist are skipped. It reports the number
// of units put back.
func (g *InventoryGuard) Restore(ctx context.Context, tx *sql.Tx, items []domain.OrderItem) (int64, error) {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b domain.OrderItem) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})

	var restored int64
	for _, item := range sorted {
		product, err := g.products.LockByID(ctx, tx, item.ProductID)
		if err != nil {
			return restored, fmt.Errorf("lock product %d: %w", item.ProductID, err)
		}
		if product == nil {
			g.logger.Warn("product not found, skipping stock restore",
				zap.Int64("product_id", item.ProductID),
				zap.Int64("order_id", item.OrderID),
				zap.Int64("quantity", item.Quantity),
			)
			continue
		}

		if err := g.products.IncrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return restored, fmt.Errorf("restore product %d: %w", item.ProductID, err)
		}
		restored += item.Quantity
	}
	return restored, nil
}
