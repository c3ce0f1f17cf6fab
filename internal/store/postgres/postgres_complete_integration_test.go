package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"phoneshop/backend/internal/domain"
)

func TestCompleteSaleDecrementsStockAndSetsDues(t *testing.T) {
	databaseURL := os.Getenv("PHONESHOP_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set PHONESHOP_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	productID := fmt.Sprintf("prod-complete-it-%d", stamp)
	customerPhone := fmt.Sprintf("019%08d", stamp%100000000)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sold_products WHERE product_id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM sales WHERE customer_id IN (SELECT id FROM customers WHERE phone = $1)`, customerPhone)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM customers WHERE phone = $1`, customerPhone)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
	})

	if _, err := s.CreateProduct(ctx, domain.Product{
		ID:         productID,
		Name:       "Complete IT Phone",
		Category:   "phone",
		PriceCents: 500000,
		Stock:      10,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	customer, err := s.UpsertCustomerByPhone(ctx, domain.Customer{
		Name:  "Complete IT Customer",
		Phone: customerPhone,
	})
	if err != nil {
		t.Fatalf("upsert customer: %v", err)
	}

	started, err := s.CreateSale(ctx, domain.Sale{CustomerID: customer.ID})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if started.InvoiceNumber == "" {
		t.Fatal("expected an allocated invoice number")
	}

	sale := *started
	sale.SubtotalCents = 1000000
	sale.NetAmountCents = 1000000
	sale.TotalCents = 1000000
	sale.PaymentMethod = "cash"
	sale.Tenders = []domain.Tender{{Channel: domain.ChannelCash, AmountCents: 1000000}}
	sale.TotalReceivedCents = 1000000

	completed, err := s.CompleteSale(ctx, sale, []domain.SoldProduct{{
		ProductID:      productID,
		Name:           "Complete IT Phone",
		Qty:            2,
		UnitPriceCents: 500000,
		LineTotalCents: 1000000,
	}}, 0)
	if err != nil {
		t.Fatalf("complete sale: %v", err)
	}
	if completed.Status != domain.SaleStatusCompleted {
		t.Fatalf("expected status completed, got %s", completed.Status)
	}
	if completed.CompletedAt == nil {
		t.Fatal("expected completed_at to be set")
	}

	product, err := s.GetProductByID(ctx, productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Stock != 8 {
		t.Fatalf("expected stock 8 after sale, got %d", product.Stock)
	}

	// Completing twice must fail without touching stock.
	if _, err := s.CompleteSale(ctx, sale, []domain.SoldProduct{{
		ProductID:      productID,
		Name:           "Complete IT Phone",
		Qty:            1,
		UnitPriceCents: 500000,
		LineTotalCents: 500000,
	}}, 0); err == nil {
		t.Fatal("expected error completing an already completed sale")
	}
	product, err = s.GetProductByID(ctx, productID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Stock != 8 {
		t.Fatalf("expected stock unchanged at 8, got %d", product.Stock)
	}
}
