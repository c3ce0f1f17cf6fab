package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"phoneshop/backend/internal/domain"
	"phoneshop/backend/internal/store"
	"phoneshop/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	productByCode   map[string]string
	customers       map[string]domain.Customer
	customerByPhone map[string]string
	sales           map[string]domain.Sale
	soldBySale      map[string][]domain.SoldProduct
	returnsByID     map[string]domain.SaleReturn
	expenses        []domain.Expense
	incomes         []domain.Income
	ledger          []domain.LedgerEntry
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
	invoiceSeq      map[string]int
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD; when
// unset, dev defaults are used with a warning. Production deployments use
// PostgreSQL-backed accounts instead.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"staff", staffPwd, "staff"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		productByCode:   make(map[string]string),
		customers:       make(map[string]domain.Customer),
		customerByPhone: make(map[string]string),
		sales:           make(map[string]domain.Sale),
		soldBySale:      make(map[string][]domain.SoldProduct),
		returnsByID:     make(map[string]domain.SaleReturn),
		expenses:        make([]domain.Expense, 0, 64),
		incomes:         make([]domain.Income, 0, 64),
		ledger:          make([]domain.LedgerEntry, 0, 128),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
		invoiceSeq:      make(map[string]int),
	}
}

// NewSeeded returns a store preloaded with a small phone-shop catalog and a
// couple of walk-in customers, for dev mode and tests.
func NewSeeded() *Store {
	s := New()

	products := []domain.Product{
		{ID: "prod-iphone13-128", Name: "iPhone 13", Model: "128GB", Color: "Midnight", Category: "phone", PriceCents: 7990000, Stock: 8, Barcode: "8801000000011", Active: true},
		{ID: "prod-s23-256", Name: "Galaxy S23", Model: "256GB", Color: "Cream", Category: "phone", PriceCents: 8490000, Stock: 5, Barcode: "8801000000028", Active: true},
		{ID: "prod-redmi12-64", Name: "Redmi Note 12", Model: "64GB", Color: "Ice Blue", Category: "phone", PriceCents: 2150000, Stock: 14, Barcode: "8801000000035", Active: true},
		{ID: "prod-pixel7a", Name: "Pixel 7a", Model: "128GB", Color: "Charcoal", Category: "phone", PriceCents: 5590000, Stock: 3, Barcode: "8801000000042", Active: true},
		{ID: "prod-case-clear", Name: "Clear Case", Category: "accessory", PriceCents: 45000, Stock: 60, Barcode: "8801000000059", Active: true},
		{ID: "prod-glass-9h", Name: "Tempered Glass 9H", Category: "accessory", PriceCents: 25000, Stock: 90, Barcode: "8801000000066", Active: true},
		{ID: "prod-charger-25w", Name: "Charger 25W", Category: "accessory", PriceCents: 120000, Stock: 35, Barcode: "8801000000073", Active: true},
		{ID: "prod-earbuds-a2", Name: "Earbuds A2", Category: "accessory", PriceCents: 310000, Stock: 20, Barcode: "8801000000080", Active: true},
	}
	for _, p := range products {
		s.products[p.ID] = p
		if p.Barcode != "" {
			s.productByCode[p.Barcode] = p.ID
		}
	}

	now := time.Now().UTC()
	customers := []domain.Customer{
		{ID: "cust-walkin", Name: "Walk-in Customer", Phone: "0000000000", CreatedAt: now},
		{ID: "cust-rahim", Name: "Rahim Uddin", Phone: "01711000001", Email: "rahim@example.com", DuesCents: 30000, TotalPurchasesCents: 2150000, CreatedAt: now},
		{ID: "cust-karima", Name: "Karima Akter", Phone: "01711000002", CreatedAt: now},
	}
	for _, c := range customers {
		s.customers[c.ID] = c
		s.customerByPhone[c.Phone] = c.ID
	}

	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return strings.Compare(a.Name, b.Name)
		}
		return strings.Compare(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.Category == "" || product.PriceCents < 1 || product.Stock < 0 {
		return nil, store.ErrInvalidSale
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrInvalidSale
	}
	if product.Barcode != "" {
		if _, taken := s.productByCode[product.Barcode]; taken {
			return nil, fmt.Errorf("barcode %s already registered", product.Barcode)
		}
	}

	product.Active = true
	s.products[product.ID] = product
	if product.Barcode != "" {
		s.productByCode[product.Barcode] = product.ID
	}
	created := product
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := product
	return &copied, nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.productByCode[barcode]
	if !ok {
		return nil, store.ErrNotFound
	}
	product := s.products[id]
	copied := product
	return &copied, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if product.Name == "" || product.Category == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidSale
	}
	if product.Barcode != existing.Barcode {
		if product.Barcode != "" {
			if owner, taken := s.productByCode[product.Barcode]; taken && owner != product.ID {
				return nil, fmt.Errorf("barcode %s already registered", product.Barcode)
			}
		}
		if existing.Barcode != "" {
			delete(s.productByCode, existing.Barcode)
		}
		if product.Barcode != "" {
			s.productByCode[product.Barcode] = product.ID
		}
	}

	// Stock is mutated only through AdjustStock and CompleteSale.
	product.Stock = existing.Stock
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) AdjustStock(_ context.Context, productID string, delta int) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, exists := s.products[productID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if product.Stock+delta < 0 {
		return nil, store.ErrInsufficientStock
	}
	product.Stock += delta
	s.products[productID] = product
	adjusted := product
	return &adjusted, nil
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		customers = append(customers, c)
	}
	slices.SortFunc(customers, func(a, b domain.Customer) int {
		return strings.Compare(a.Name, b.Name)
	})
	return customers, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customers[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := customer
	return &copied, nil
}

func (s *Store) UpsertCustomerByPhone(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if customer.Name == "" || customer.Phone == "" {
		return nil, store.ErrInvalidSale
	}

	if id, ok := s.customerByPhone[customer.Phone]; ok {
		existing := s.customers[id]
		existing.Name = customer.Name
		if customer.Email != "" {
			existing.Email = customer.Email
		}
		s.customers[id] = existing
		updated := existing
		return &updated, nil
	}

	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	s.customers[customer.ID] = customer
	s.customerByPhone[customer.Phone] = customer.ID
	created := customer
	return &created, nil
}

func (s *Store) SetCustomerDues(_ context.Context, customerID string, duesCents int64) (*domain.Customer, error) {
	if duesCents < 0 {
		return nil, store.ErrInvalidSale
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	customer, exists := s.customers[customerID]
	if !exists {
		return nil, store.ErrNotFound
	}
	customer.DuesCents = duesCents
	s.customers[customerID] = customer
	updated := customer
	return &updated, nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.CustomerID == "" {
		return nil, store.ErrInvalidSale
	}
	if _, exists := s.customers[sale.CustomerID]; !exists {
		return nil, store.ErrNotFound
	}
	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}
	if sale.Status == "" {
		sale.Status = domain.SaleStatusStarted
	}
	if sale.InvoiceNumber == "" {
		sale.InvoiceNumber = s.nextInvoiceLocked(sale.CreatedAt)
	}

	s.sales[sale.ID] = sale
	created := cloneSale(sale)
	return &created, nil
}

// nextInvoiceLocked allocates the next sequential invoice number for the
// day. Caller must hold the write lock.
func (s *Store) nextInvoiceLocked(at time.Time) string {
	day := at.UTC().Format("20060102")
	s.invoiceSeq[day]++
	return fmt.Sprintf("INV-%s-%04d", day, s.invoiceSeq[day])
}

func (s *Store) GetSaleByID(_ context.Context, id string) (*domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, exists := s.sales[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := cloneSale(sale)
	return &copied, nil
}

func (s *Store) ListSales(_ context.Context, status string, limit int) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}

	sales := make([]domain.Sale, 0, limit)
	for _, sale := range s.sales {
		if status != "" && sale.Status != status {
			continue
		}
		sales = append(sales, cloneSale(sale))
	}
	slices.SortFunc(sales, func(a, b domain.Sale) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return strings.Compare(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if len(sales) > limit {
		sales = sales[:limit]
	}
	return sales, nil
}

func (s *Store) HoldSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.sales[sale.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if existing.Status == domain.SaleStatusCompleted {
		return nil, store.ErrSaleClosed
	}

	sale.InvoiceNumber = existing.InvoiceNumber
	sale.CustomerID = existing.CustomerID
	sale.CreatedAt = existing.CreatedAt
	sale.Status = domain.SaleStatusHeld
	sale.CompletedAt = nil
	s.sales[sale.ID] = sale
	held := cloneSale(sale)
	return &held, nil
}

func (s *Store) CompleteSale(_ context.Context, sale domain.Sale, items []domain.SoldProduct, newDuesCents int64) (*domain.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.sales[sale.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if existing.Status == domain.SaleStatusCompleted {
		return nil, store.ErrSaleClosed
	}
	if len(items) == 0 || newDuesCents < 0 {
		return nil, store.ErrInvalidSale
	}
	customer, exists := s.customers[existing.CustomerID]
	if !exists {
		return nil, store.ErrNotFound
	}

	// Stock check over aggregated quantities before anything is applied.
	needed := make(map[string]int, len(items))
	for _, item := range items {
		if item.Qty < 1 {
			return nil, store.ErrInvalidSale
		}
		if item.ProductID != "" {
			needed[item.ProductID] += item.Qty
		}
	}
	for productID, qty := range needed {
		product, ok := s.products[productID]
		if !ok || !product.Active {
			return nil, fmt.Errorf("product %s unavailable", productID)
		}
		if product.Stock < qty {
			return nil, store.ErrInsufficientStock
		}
	}

	// All checks passed; apply everything under the same lock section.
	for productID, qty := range needed {
		product := s.products[productID]
		product.Stock -= qty
		s.products[productID] = product
	}

	now := time.Now().UTC()
	stored := make([]domain.SoldProduct, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			item.ID = xid.New("sold")
		}
		item.SaleID = sale.ID
		stored = append(stored, item)
	}
	s.soldBySale[sale.ID] = stored

	sale.InvoiceNumber = existing.InvoiceNumber
	sale.CustomerID = existing.CustomerID
	sale.CreatedAt = existing.CreatedAt
	sale.Status = domain.SaleStatusCompleted
	sale.CompletedAt = &now
	s.sales[sale.ID] = sale

	customer.DuesCents = newDuesCents
	customer.TotalPurchasesCents += sale.NetAmountCents
	s.customers[customer.ID] = customer

	completed := cloneSale(sale)
	return &completed, nil
}

func (s *Store) DeleteSale(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sale, exists := s.sales[id]
	if !exists {
		return store.ErrNotFound
	}
	if sale.Status == domain.SaleStatusCompleted {
		return store.ErrSaleClosed
	}
	delete(s.sales, id)
	delete(s.soldBySale, id)
	return nil
}

func (s *Store) ListSoldProducts(_ context.Context, saleID string) ([]domain.SoldProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.soldBySale[saleID]
	out := make([]domain.SoldProduct, len(items))
	copy(out, items)
	return out, nil
}

func (s *Store) CreateSaleReturn(_ context.Context, ret domain.SaleReturn) (*domain.SaleReturn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ret.SaleID == "" || len(ret.Lines) == 0 || ret.RefundCents < 0 {
		return nil, store.ErrInvalidSale
	}
	if ret.ID == "" {
		ret.ID = xid.New("ret")
	}
	if ret.CreatedAt.IsZero() {
		ret.CreatedAt = time.Now().UTC()
	}
	s.returnsByID[ret.ID] = ret
	created := ret
	return &created, nil
}

func (s *Store) GetReturnedQtyBySale(_ context.Context, saleID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	returned := make(map[string]int)
	for _, ret := range s.returnsByID {
		if ret.SaleID != saleID {
			continue
		}
		for _, line := range ret.Lines {
			returned[returnKey(line.ProductID, line.Name)] += line.Qty
		}
	}
	return returned, nil
}

// returnKey identifies a sold line for return accounting: catalog lines by
// product id, manual lines by name.
func returnKey(productID string, name string) string {
	if productID != "" {
		return productID
	}
	return "manual:" + strings.ToLower(strings.TrimSpace(name))
}

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expense.AmountCents < 1 || expense.Category == "" {
		return nil, store.ErrInvalidSale
	}
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.SpentAt.IsZero() {
		expense.SpentAt = time.Now().UTC()
	}
	s.expenses = append(s.expenses, expense)
	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 200
	}
	out := make([]domain.Expense, 0, limit)
	for _, e := range s.expenses {
		if inRange(e.SpentAt, from, to) {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b domain.Expense) int {
		return b.SpentAt.Compare(a.SpentAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateIncome(_ context.Context, income domain.Income) (*domain.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if income.AmountCents < 1 || income.Source == "" {
		return nil, store.ErrInvalidSale
	}
	if income.ID == "" {
		income.ID = xid.New("inc")
	}
	if income.ReceivedAt.IsZero() {
		income.ReceivedAt = time.Now().UTC()
	}
	s.incomes = append(s.incomes, income)
	created := income
	return &created, nil
}

func (s *Store) ListIncomes(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.Income, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 200
	}
	out := make([]domain.Income, 0, limit)
	for _, in := range s.incomes {
		if inRange(in.ReceivedAt, from, to) {
			out = append(out, in)
		}
	}
	slices.SortFunc(out, func(a, b domain.Income) int {
		return b.ReceivedAt.Compare(a.ReceivedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateLedgerEntry(_ context.Context, entry domain.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("led")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.ledger = append(s.ledger, entry)
	return nil
}

func (s *Store) ListLedgerEntries(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 500
	}
	out := make([]domain.LedgerEntry, 0, limit)
	for _, entry := range s.ledger {
		if inRange(entry.CreatedAt, from, to) {
			out = append(out, entry)
		}
	}
	slices.SortFunc(out, func(a, b domain.LedgerEntry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetDailySummary(_ context.Context, from time.Time, to time.Time) (domain.DailySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := domain.DailySummary{}
	byChannel := make(map[string]*domain.ChannelTotal)

	for _, sale := range s.sales {
		if sale.Status != domain.SaleStatusCompleted || sale.CompletedAt == nil {
			continue
		}
		if !inRange(*sale.CompletedAt, from, to) {
			continue
		}
		summary.SalesCount++
		summary.GrossSalesCents += sale.NetAmountCents
		summary.DiscountCents += sale.DiscountCents
		summary.ReceivedCents += sale.TotalReceivedCents
		summary.NewDuesCents += sale.DueCents
		for _, tender := range sale.Tenders {
			ct, ok := byChannel[tender.Channel]
			if !ok {
				ct = &domain.ChannelTotal{Channel: tender.Channel}
				byChannel[tender.Channel] = ct
			}
			ct.Sales++
			ct.TotalCents += tender.AmountCents
		}
	}

	for _, e := range s.expenses {
		if inRange(e.SpentAt, from, to) {
			summary.ExpenseCents += e.AmountCents
		}
	}
	for _, in := range s.incomes {
		if inRange(in.ReceivedAt, from, to) {
			summary.OtherIncomeCents += in.AmountCents
		}
	}
	summary.NetCashCents = summary.ReceivedCents + summary.OtherIncomeCents - summary.ExpenseCents

	channels := make([]domain.ChannelTotal, 0, len(byChannel))
	for _, ct := range byChannel {
		channels = append(channels, *ct)
	}
	slices.SortFunc(channels, func(a, b domain.ChannelTotal) int {
		return strings.Compare(a.Channel, b.Channel)
	})
	summary.ByChannel = channels

	return summary, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 200
	}
	out := make([]domain.AuditLog, 0, limit)
	for _, entry := range s.auditLogs {
		if inRange(entry.CreatedAt, from, to) {
			out = append(out, entry)
		}
	}
	slices.SortFunc(out, func(a, b domain.AuditLog) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidSale
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return fmt.Errorf("username %s already exists", user.Username)
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneSale(sale domain.Sale) domain.Sale {
	out := sale
	if sale.Tenders != nil {
		out.Tenders = make([]domain.Tender, len(sale.Tenders))
		copy(out.Tenders, sale.Tenders)
	}
	if sale.CompletedAt != nil {
		at := *sale.CompletedAt
		out.CompletedAt = &at
	}
	return out
}

func inRange(at time.Time, from time.Time, to time.Time) bool {
	return !at.Before(from) && at.Before(to)
}
