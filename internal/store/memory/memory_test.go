package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"phoneshop/backend/internal/domain"
	"phoneshop/backend/internal/store"
)

func TestInvoiceNumbersAreSequentialPerDay(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	day := time.Now().UTC().Format("20060102")
	for i := 1; i <= 3; i++ {
		sale, err := s.CreateSale(ctx, domain.Sale{CustomerID: "cust-walkin"})
		if err != nil {
			t.Fatalf("CreateSale failed: %v", err)
		}
		want := fmt.Sprintf("INV-%s-%04d", day, i)
		if sale.InvoiceNumber != want {
			t.Fatalf("expected invoice %s, got %s", want, sale.InvoiceNumber)
		}
	}
}

func TestCompleteSaleAggregatesQuantitiesAcrossLines(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	sale, err := s.CreateSale(ctx, domain.Sale{CustomerID: "cust-walkin"})
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}

	// Two lines for the same phone sum past the available stock of 3.
	items := []domain.SoldProduct{
		{ProductID: "prod-pixel7a", Name: "Pixel 7a", Qty: 2, UnitPriceCents: 5590000, LineTotalCents: 11180000},
		{ProductID: "prod-pixel7a", Name: "Pixel 7a", Qty: 2, UnitPriceCents: 5590000, LineTotalCents: 11180000},
	}
	_, err = s.CompleteSale(ctx, *sale, items, 0)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock for aggregated lines, got %v", err)
	}

	product, err := s.GetProductByID(ctx, "prod-pixel7a")
	if err != nil {
		t.Fatalf("GetProductByID failed: %v", err)
	}
	if product.Stock != 3 {
		t.Fatalf("expected stock untouched after rejection, got %d", product.Stock)
	}

	sold, err := s.ListSoldProducts(ctx, sale.ID)
	if err != nil {
		t.Fatalf("ListSoldProducts failed: %v", err)
	}
	if len(sold) != 0 {
		t.Fatalf("expected no sold rows after rejection, got %d", len(sold))
	}
}

func TestCompleteSaleAppliesEverythingTogether(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	sale, err := s.CreateSale(ctx, domain.Sale{CustomerID: "cust-rahim"})
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}

	final := *sale
	final.NetAmountCents = 5590000
	final.TotalReceivedCents = 5590000
	items := []domain.SoldProduct{
		{ProductID: "prod-pixel7a", Name: "Pixel 7a", Qty: 1, UnitPriceCents: 5590000, LineTotalCents: 5590000},
	}

	completed, err := s.CompleteSale(ctx, final, items, 0)
	if err != nil {
		t.Fatalf("CompleteSale failed: %v", err)
	}
	if completed.Status != domain.SaleStatusCompleted || completed.CompletedAt == nil {
		t.Fatalf("expected completed sale, got %+v", completed)
	}

	product, _ := s.GetProductByID(ctx, "prod-pixel7a")
	if product.Stock != 2 {
		t.Fatalf("expected stock 2, got %d", product.Stock)
	}

	customer, _ := s.GetCustomerByID(ctx, "cust-rahim")
	if customer.DuesCents != 0 {
		t.Fatalf("expected dues overwritten to 0, got %d", customer.DuesCents)
	}
	if customer.TotalPurchasesCents != 2150000+5590000 {
		t.Fatalf("unexpected total purchases %d", customer.TotalPurchasesCents)
	}

	if _, err := s.CompleteSale(ctx, final, items, 0); !errors.Is(err, store.ErrSaleClosed) {
		t.Fatalf("expected ErrSaleClosed on second completion, got %v", err)
	}
}

func TestDeleteSaleRefusesCompleted(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	sale, err := s.CreateSale(ctx, domain.Sale{CustomerID: "cust-walkin"})
	if err != nil {
		t.Fatalf("CreateSale failed: %v", err)
	}
	items := []domain.SoldProduct{
		{ProductID: "prod-glass-9h", Name: "Tempered Glass 9H", Qty: 1, UnitPriceCents: 25000, LineTotalCents: 25000},
	}
	if _, err := s.CompleteSale(ctx, *sale, items, 0); err != nil {
		t.Fatalf("CompleteSale failed: %v", err)
	}

	if err := s.DeleteSale(ctx, sale.ID); !errors.Is(err, store.ErrSaleClosed) {
		t.Fatalf("expected ErrSaleClosed when deleting completed sale, got %v", err)
	}
}

func TestUpsertCustomerByPhoneUpdatesExisting(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	updated, err := s.UpsertCustomerByPhone(ctx, domain.Customer{
		Name:  "Rahim U.",
		Phone: "01711000001",
		Email: "rahim.new@example.com",
	})
	if err != nil {
		t.Fatalf("UpsertCustomerByPhone failed: %v", err)
	}
	if updated.ID != "cust-rahim" {
		t.Fatalf("expected existing customer id, got %s", updated.ID)
	}
	if updated.Name != "Rahim U." || updated.Email != "rahim.new@example.com" {
		t.Fatalf("expected name and email updated, got %+v", updated)
	}
	if updated.DuesCents != 30000 {
		t.Fatalf("expected dues preserved across upsert, got %d", updated.DuesCents)
	}
}

func TestUpdateProductReindexesBarcode(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	product, err := s.GetProductByID(ctx, "prod-glass-9h")
	if err != nil {
		t.Fatalf("GetProductByID failed: %v", err)
	}

	changed := *product
	changed.Barcode = "8801000000999"
	if _, err := s.UpdateProduct(ctx, changed); err != nil {
		t.Fatalf("UpdateProduct failed: %v", err)
	}

	if _, err := s.GetProductByBarcode(ctx, "8801000000066"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected old barcode unlinked, got %v", err)
	}
	found, err := s.GetProductByBarcode(ctx, "8801000000999")
	if err != nil {
		t.Fatalf("GetProductByBarcode failed: %v", err)
	}
	if found.ID != "prod-glass-9h" {
		t.Fatalf("expected new barcode to resolve, got %s", found.ID)
	}
}

func TestCreateProductRejectsDuplicateBarcode(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	_, err := s.CreateProduct(ctx, domain.Product{
		Name:       "Another Glass",
		Category:   "accessory",
		PriceCents: 30000,
		Barcode:    "8801000000066",
	})
	if err == nil {
		t.Fatalf("expected duplicate barcode to be rejected")
	}
}

func TestReturnedQtyKeyedByProductOrName(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	ret := domain.SaleReturn{
		SaleID:      "sale-1",
		RefundCents: 70000,
		Lines: []domain.ReturnLine{
			{ProductID: "prod-case-clear", Qty: 1, UnitPriceCents: 45000},
			{Name: " Unlock Service ", Qty: 1, UnitPriceCents: 25000},
		},
	}
	if _, err := s.CreateSaleReturn(ctx, ret); err != nil {
		t.Fatalf("CreateSaleReturn failed: %v", err)
	}

	returned, err := s.GetReturnedQtyBySale(ctx, "sale-1")
	if err != nil {
		t.Fatalf("GetReturnedQtyBySale failed: %v", err)
	}
	if returned["prod-case-clear"] != 1 {
		t.Fatalf("expected catalog line keyed by product id, got %+v", returned)
	}
	if returned["manual:unlock service"] != 1 {
		t.Fatalf("expected manual line keyed by normalized name, got %+v", returned)
	}
}

func TestListSalesFiltersAndLimits(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.CreateSale(ctx, domain.Sale{CustomerID: "cust-walkin"}); err != nil {
			t.Fatalf("CreateSale failed: %v", err)
		}
	}

	all, err := s.ListSales(ctx, "", 2)
	if err != nil {
		t.Fatalf("ListSales failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(all))
	}

	completed, err := s.ListSales(ctx, domain.SaleStatusCompleted, 10)
	if err != nil {
		t.Fatalf("ListSales failed: %v", err)
	}
	if len(completed) != 0 {
		t.Fatalf("expected no completed sales, got %d", len(completed))
	}
}
