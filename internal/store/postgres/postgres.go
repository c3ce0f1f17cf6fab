package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"phoneshop/backend/internal/domain"
	"phoneshop/backend/internal/store"
	"phoneshop/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, model, color, category, price_cents, stock, barcode, description, active
		FROM products
		WHERE active = true
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Category == "" || product.PriceCents < 1 || product.Stock < 0 {
		return nil, store.ErrInvalidSale
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}

	product.Active = true
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, model, color, category, price_cents, stock, barcode, description, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now(),now())
	`, product.ID, product.Name, product.Model, product.Color, product.Category, product.PriceCents, product.Stock, nullIfEmpty(product.Barcode), product.Description, product.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidSale
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, model, color, category, price_cents, stock, barcode, description, active
		FROM products
		WHERE id = $1
	`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) GetProductByBarcode(ctx context.Context, barcode string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, model, color, category, price_cents, stock, barcode, description, active
		FROM products
		WHERE barcode = $1
	`, barcode)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Category == "" || product.PriceCents < 1 {
		return nil, store.ErrInvalidSale
	}

	// Stock is mutated only through AdjustStock and CompleteSale.
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, model = $3, color = $4, category = $5, price_cents = $6,
			barcode = $7, description = $8, active = $9, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Model, product.Color, product.Category, product.PriceCents, nullIfEmpty(product.Barcode), product.Description, product.Active)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidSale
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetProductByID(ctx, product.ID)
}

func (s *Store) AdjustStock(ctx context.Context, productID string, delta int) (*domain.Product, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0
	`, productID, delta)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		if _, getErr := s.GetProductByID(ctx, productID); getErr != nil {
			return nil, getErr
		}
		return nil, store.ErrInsufficientStock
	}
	return s.GetProductByID(ctx, productID)
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, phone, email, dues_cents, total_purchases_cents, created_at
		FROM customers
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.DuesCents, &c.TotalPurchasesCents, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.CreatedAt = c.CreatedAt.UTC()
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, dues_cents, total_purchases_cents, created_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.DuesCents, &c.TotalPurchasesCents, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) UpsertCustomerByPhone(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if customer.Name == "" || customer.Phone == "" {
		return nil, store.ErrInvalidSale
	}
	if customer.ID == "" {
		customer.ID = xid.New("cust")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	var c domain.Customer
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO customers (id, name, phone, email, dues_cents, total_purchases_cents, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,now())
		ON CONFLICT (phone)
		DO UPDATE SET name = EXCLUDED.name,
			email = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE customers.email END,
			updated_at = now()
		RETURNING id, name, phone, email, dues_cents, total_purchases_cents, created_at
	`, customer.ID, customer.Name, customer.Phone, customer.Email, customer.DuesCents, customer.TotalPurchasesCents, customer.CreatedAt).
		Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.DuesCents, &c.TotalPurchasesCents, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) SetCustomerDues(ctx context.Context, customerID string, duesCents int64) (*domain.Customer, error) {
	if duesCents < 0 {
		return nil, store.ErrInvalidSale
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET dues_cents = $2, updated_at = now()
		WHERE id = $1
	`, customerID, duesCents)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetCustomerByID(ctx, customerID)
}

func (s *Store) CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	if sale.CustomerID == "" {
		return nil, store.ErrInvalidSale
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

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if sale.InvoiceNumber == "" {
		day := sale.CreatedAt.UTC().Format("20060102")
		var seq int
		err := tx.QueryRowContext(ctx, `
			INSERT INTO invoice_counters (day, seq)
			VALUES ($1, 1)
			ON CONFLICT (day)
			DO UPDATE SET seq = invoice_counters.seq + 1
			RETURNING seq
		`, day).Scan(&seq)
		if err != nil {
			return nil, err
		}
		sale.InvoiceNumber = fmt.Sprintf("INV-%s-%04d", day, seq)
	}

	tenders, err := marshalTenders(sale.Tenders)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (
			id, invoice_number, customer_id, status, subtotal_cents, discount_cents,
			net_amount_cents, previous_dues_cents, total_cents, payment_method, tenders,
			total_received_cents, due_cents, change_cents, created_at, completed_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`, sale.ID, sale.InvoiceNumber, sale.CustomerID, sale.Status, sale.SubtotalCents, sale.DiscountCents,
		sale.NetAmountCents, sale.PreviousDuesCents, sale.TotalCents, sale.PaymentMethod, tenders,
		sale.TotalReceivedCents, sale.DueCents, sale.ChangeCents, sale.CreatedAt, nullTime(sale.CompletedAt))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := sale
	return &created, nil
}

const saleColumns = `
	id, invoice_number, customer_id, status, subtotal_cents, discount_cents,
	net_amount_cents, previous_dues_cents, total_cents, payment_method, tenders,
	total_received_cents, due_cents, change_cents, created_at, completed_at
`

func (s *Store) GetSaleByID(ctx context.Context, id string) (*domain.Sale, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = $1`, id)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &sale, nil
}

func (s *Store) ListSales(ctx context.Context, status string, limit int) ([]domain.Sale, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+saleColumns+`
		FROM sales
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0, limit)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

func (s *Store) HoldSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error) {
	tenders, err := marshalTenders(sale.Tenders)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sales
		SET status = $2, subtotal_cents = $3, discount_cents = $4, net_amount_cents = $5,
			previous_dues_cents = $6, total_cents = $7, payment_method = $8, tenders = $9,
			completed_at = NULL, updated_at = now()
		WHERE id = $1 AND status <> $10
	`, sale.ID, domain.SaleStatusHeld, sale.SubtotalCents, sale.DiscountCents, sale.NetAmountCents,
		sale.PreviousDuesCents, sale.TotalCents, sale.PaymentMethod, tenders, domain.SaleStatusCompleted)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		existing, getErr := s.GetSaleByID(ctx, sale.ID)
		if getErr != nil {
			return nil, getErr
		}
		if existing.Status == domain.SaleStatusCompleted {
			return nil, store.ErrSaleClosed
		}
		return nil, store.ErrInvalidSale
	}
	return s.GetSaleByID(ctx, sale.ID)
}

func (s *Store) CompleteSale(ctx context.Context, sale domain.Sale, items []domain.SoldProduct, newDuesCents int64) (*domain.Sale, error) {
	if len(items) == 0 || newDuesCents < 0 {
		return nil, store.ErrInvalidSale
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status, customerID string
	err = tx.QueryRowContext(ctx, `
		SELECT status, customer_id FROM sales WHERE id = $1 FOR UPDATE
	`, sale.ID).Scan(&status, &customerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if status == domain.SaleStatusCompleted {
		return nil, store.ErrSaleClosed
	}

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
		res, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $2, updated_at = now()
			WHERE id = $1 AND active = true AND stock >= $2
		`, productID, qty)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, store.ErrInsufficientStock
		}
	}

	for _, item := range items {
		if item.ID == "" {
			item.ID = xid.New("sold")
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sold_products (id, sale_id, product_id, barcode, name, qty, unit_price_cents, discount_cents, line_total_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`, item.ID, sale.ID, nullIfEmpty(item.ProductID), nullIfEmpty(item.Barcode), item.Name, item.Qty, item.UnitPriceCents, item.DiscountCents, item.LineTotalCents)
		if err != nil {
			return nil, err
		}
	}

	tenders, err := marshalTenders(sale.Tenders)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		UPDATE sales
		SET status = $2, subtotal_cents = $3, discount_cents = $4, net_amount_cents = $5,
			previous_dues_cents = $6, total_cents = $7, payment_method = $8, tenders = $9,
			total_received_cents = $10, due_cents = $11, change_cents = $12,
			completed_at = $13, updated_at = now()
		WHERE id = $1
	`, sale.ID, domain.SaleStatusCompleted, sale.SubtotalCents, sale.DiscountCents, sale.NetAmountCents,
		sale.PreviousDuesCents, sale.TotalCents, sale.PaymentMethod, tenders,
		sale.TotalReceivedCents, sale.DueCents, sale.ChangeCents, now)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE customers
		SET dues_cents = $2, total_purchases_cents = total_purchases_cents + $3, updated_at = now()
		WHERE id = $1
	`, customerID, newDuesCents, sale.NetAmountCents)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetSaleByID(ctx, sale.ID)
}

func (s *Store) DeleteSale(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sales WHERE id = $1 AND status <> $2
	`, id, domain.SaleStatusCompleted)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, getErr := s.GetSaleByID(ctx, id); getErr != nil {
			return getErr
		}
		return store.ErrSaleClosed
	}
	return nil
}

func (s *Store) ListSoldProducts(ctx context.Context, saleID string) ([]domain.SoldProduct, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sale_id, product_id, barcode, name, qty, unit_price_cents, discount_cents, line_total_cents
		FROM sold_products
		WHERE sale_id = $1
		ORDER BY id ASC
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.SoldProduct, 0, 8)
	for rows.Next() {
		var item domain.SoldProduct
		var productID, barcode sql.NullString
		if err := rows.Scan(&item.ID, &item.SaleID, &productID, &barcode, &item.Name, &item.Qty, &item.UnitPriceCents, &item.DiscountCents, &item.LineTotalCents); err != nil {
			return nil, err
		}
		item.ProductID = productID.String
		item.Barcode = barcode.String
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CreateSaleReturn(ctx context.Context, ret domain.SaleReturn) (*domain.SaleReturn, error) {
	if ret.SaleID == "" || len(ret.Lines) == 0 || ret.RefundCents < 0 {
		return nil, store.ErrInvalidSale
	}
	if ret.ID == "" {
		ret.ID = xid.New("ret")
	}
	if ret.CreatedAt.IsZero() {
		ret.CreatedAt = time.Now().UTC()
	}

	lines, err := json.Marshal(ret.Lines)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sale_returns (id, sale_id, reason, refund_cents, lines, processed_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, ret.ID, ret.SaleID, ret.Reason, ret.RefundCents, lines, ret.ProcessedBy, ret.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	created := ret
	return &created, nil
}

func (s *Store) GetReturnedQtyBySale(ctx context.Context, saleID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lines FROM sale_returns WHERE sale_id = $1
	`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	returned := make(map[string]int)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var lines []domain.ReturnLine
		if err := json.Unmarshal(raw, &lines); err != nil {
			return nil, err
		}
		for _, line := range lines {
			returned[returnKey(line.ProductID, line.Name)] += line.Qty
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
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

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	if expense.AmountCents < 1 || expense.Category == "" {
		return nil, store.ErrInvalidSale
	}
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	if expense.SpentAt.IsZero() {
		expense.SpentAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, category, description, amount_cents, spent_at)
		VALUES ($1,$2,$3,$4,$5)
	`, expense.ID, expense.Category, expense.Description, expense.AmountCents, expense.SpentAt)
	if err != nil {
		return nil, err
	}
	created := expense
	return &created, nil
}

func (s *Store) ListExpenses(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Expense, error) {
	if limit < 1 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, category, description, amount_cents, spent_at
		FROM expenses
		WHERE spent_at >= $1 AND spent_at < $2
		ORDER BY spent_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, limit)
	for rows.Next() {
		var e domain.Expense
		if err := rows.Scan(&e.ID, &e.Category, &e.Description, &e.AmountCents, &e.SpentAt); err != nil {
			return nil, err
		}
		e.SpentAt = e.SpentAt.UTC()
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

func (s *Store) CreateIncome(ctx context.Context, income domain.Income) (*domain.Income, error) {
	if income.AmountCents < 1 || income.Source == "" {
		return nil, store.ErrInvalidSale
	}
	if income.ID == "" {
		income.ID = xid.New("inc")
	}
	if income.ReceivedAt.IsZero() {
		income.ReceivedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incomes (id, source, description, amount_cents, received_at)
		VALUES ($1,$2,$3,$4,$5)
	`, income.ID, income.Source, income.Description, income.AmountCents, income.ReceivedAt)
	if err != nil {
		return nil, err
	}
	created := income
	return &created, nil
}

func (s *Store) ListIncomes(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.Income, error) {
	if limit < 1 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, description, amount_cents, received_at
		FROM incomes
		WHERE received_at >= $1 AND received_at < $2
		ORDER BY received_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	incomes := make([]domain.Income, 0, limit)
	for rows.Next() {
		var in domain.Income
		if err := rows.Scan(&in.ID, &in.Source, &in.Description, &in.AmountCents, &in.ReceivedAt); err != nil {
			return nil, err
		}
		in.ReceivedAt = in.ReceivedAt.UTC()
		incomes = append(incomes, in)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return incomes, nil
}

func (s *Store) CreateLedgerEntry(ctx context.Context, entry domain.LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = xid.New("led")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, entry_type, ref_id, debit_cents, credit_cents, description, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, entry.ID, entry.EntryType, nullIfEmpty(entry.RefID), entry.DebitCents, entry.CreditCents, entry.Description, entry.CreatedAt)
	return err
}

func (s *Store) ListLedgerEntries(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.LedgerEntry, error) {
	if limit < 1 {
		limit = 500
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entry_type, ref_id, debit_cents, credit_cents, description, created_at
		FROM ledger_entries
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0, limit)
	for rows.Next() {
		var entry domain.LedgerEntry
		var refID sql.NullString
		if err := rows.Scan(&entry.ID, &entry.EntryType, &refID, &entry.DebitCents, &entry.CreditCents, &entry.Description, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.RefID = refID.String
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) GetDailySummary(ctx context.Context, from time.Time, to time.Time) (domain.DailySummary, error) {
	var summary domain.DailySummary

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(net_amount_cents), 0),
			COALESCE(SUM(discount_cents), 0),
			COALESCE(SUM(total_received_cents), 0),
			COALESCE(SUM(due_cents), 0)
		FROM sales
		WHERE status = $1 AND completed_at >= $2 AND completed_at < $3
	`, domain.SaleStatusCompleted, from, to).
		Scan(&summary.SalesCount, &summary.GrossSalesCents, &summary.DiscountCents, &summary.ReceivedCents, &summary.NewDuesCents)
	if err != nil {
		return domain.DailySummary{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t->>'channel',
			COUNT(*),
			COALESCE(SUM((t->>'amount_cents')::bigint), 0)
		FROM sales, jsonb_array_elements(tenders) AS t
		WHERE status = $1 AND completed_at >= $2 AND completed_at < $3
		GROUP BY 1
		ORDER BY 1
	`, domain.SaleStatusCompleted, from, to)
	if err != nil {
		return domain.DailySummary{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var ct domain.ChannelTotal
		if err := rows.Scan(&ct.Channel, &ct.Sales, &ct.TotalCents); err != nil {
			return domain.DailySummary{}, err
		}
		summary.ByChannel = append(summary.ByChannel, ct)
	}
	if err := rows.Err(); err != nil {
		return domain.DailySummary{}, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM expenses WHERE spent_at >= $1 AND spent_at < $2
	`, from, to).Scan(&summary.ExpenseCents)
	if err != nil {
		return domain.DailySummary{}, err
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM incomes WHERE received_at >= $1 AND received_at < $2
	`, from, to).Scan(&summary.OtherIncomeCents)
	if err != nil {
		return domain.DailySummary{}, err
	}

	summary.NetCashCents = summary.ReceivedCents + summary.OtherIncomeCents - summary.ExpenseCents
	return summary, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || user.Password == "" || user.Role == "" {
		return store.ErrInvalidSale
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("username %s already exists", user.Username)
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidSale
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (domain.Product, error) {
	var p domain.Product
	var barcode sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.Model, &p.Color, &p.Category, &p.PriceCents, &p.Stock, &barcode, &p.Description, &p.Active); err != nil {
		return domain.Product{}, err
	}
	p.Barcode = barcode.String
	return p, nil
}

func scanSale(row scanner) (domain.Sale, error) {
	var sale domain.Sale
	var tenders []byte
	var completedAt sql.NullTime
	err := row.Scan(&sale.ID, &sale.InvoiceNumber, &sale.CustomerID, &sale.Status,
		&sale.SubtotalCents, &sale.DiscountCents, &sale.NetAmountCents, &sale.PreviousDuesCents,
		&sale.TotalCents, &sale.PaymentMethod, &tenders, &sale.TotalReceivedCents,
		&sale.DueCents, &sale.ChangeCents, &sale.CreatedAt, &completedAt)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.CreatedAt = sale.CreatedAt.UTC()
	if completedAt.Valid {
		at := completedAt.Time.UTC()
		sale.CompletedAt = &at
	}
	if len(tenders) > 0 {
		if err := json.Unmarshal(tenders, &sale.Tenders); err != nil {
			return domain.Sale{}, err
		}
	}
	return sale, nil
}

func marshalTenders(tenders []domain.Tender) ([]byte, error) {
	if tenders == nil {
		tenders = []domain.Tender{}
	}
	return json.Marshal(tenders)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}
