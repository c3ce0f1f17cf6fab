package store

import (
	"context"
	"errors"
	"time"

	"phoneshop/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidSale       = errors.New("invalid sale")
	ErrSaleClosed        = errors.New("sale already completed")
)

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	AdjustStock(ctx context.Context, productID string, delta int) (*domain.Product, error)

	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error)
	UpsertCustomerByPhone(ctx context.Context, customer domain.Customer) (*domain.Customer, error)
	SetCustomerDues(ctx context.Context, customerID string, duesCents int64) (*domain.Customer, error)

	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	GetSaleByID(ctx context.Context, id string) (*domain.Sale, error)
	ListSales(ctx context.Context, status string, limit int) ([]domain.Sale, error)
	HoldSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	// CompleteSale atomically persists the sold-product rows, decrements
	// stock for catalog-linked lines, marks the sale completed with the
	// settlement breakdown, and overwrites the customer's dues balance.
	// On any failure nothing is applied.
	CompleteSale(ctx context.Context, sale domain.Sale, items []domain.SoldProduct, newDuesCents int64) (*domain.Sale, error)
	DeleteSale(ctx context.Context, id string) error
	ListSoldProducts(ctx context.Context, saleID string) ([]domain.SoldProduct, error)

	CreateSaleReturn(ctx context.Context, ret domain.SaleReturn) (*domain.SaleReturn, error)
	GetReturnedQtyBySale(ctx context.Context, saleID string) (map[string]int, error)

	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	ListExpenses(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Expense, error)
	CreateIncome(ctx context.Context, income domain.Income) (*domain.Income, error)
	ListIncomes(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Income, error)
	CreateLedgerEntry(ctx context.Context, entry domain.LedgerEntry) error
	ListLedgerEntries(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.LedgerEntry, error)
	GetDailySummary(ctx context.Context, from time.Time, to time.Time) (domain.DailySummary, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
