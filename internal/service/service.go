package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"phoneshop/backend/internal/cache"
	"phoneshop/backend/internal/cart"
	"phoneshop/backend/internal/domain"
	"phoneshop/backend/internal/payment"
	"phoneshop/backend/internal/store"
	"phoneshop/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo       store.Repository
	cache      cache.ProductCache
	shopName   string
	barcodeTTL time.Duration
}

func New(repo store.Repository, productCache cache.ProductCache, shopName string, barcodeTTL time.Duration) *Service {
	if productCache == nil {
		productCache = cache.NoopProductCache{}
	}
	if shopName == "" {
		shopName = "Phone Shop"
	}
	if barcodeTTL < time.Second {
		barcodeTTL = time.Minute
	}

	return &Service{
		repo:       repo,
		cache:      productCache,
		shopName:   shopName,
		barcodeTTL: barcodeTTL,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProductByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.Barcode = strings.TrimSpace(req.Barcode)

	if req.Name == "" || req.Category == "" {
		return domain.Product{}, store.ErrInvalidSale
	}
	if req.PriceCents < 1 || req.Stock < 0 {
		return domain.Product{}, store.ErrInvalidSale
	}

	product := domain.Product{
		Name:        req.Name,
		Model:       strings.TrimSpace(req.Model),
		Color:       strings.TrimSpace(req.Color),
		Category:    req.Category,
		PriceCents:  req.PriceCents,
		Stock:       req.Stock,
		Barcode:     req.Barcode,
		Description: strings.TrimSpace(req.Description),
		Active:      true,
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("name=%s,price=%d,stock=%d", created.Name, created.PriceCents, created.Stock))
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Product{}, store.ErrInvalidSale
	}

	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidSale
		}
		updated.Name = name
	}
	if req.Model != nil {
		updated.Model = strings.TrimSpace(*req.Model)
	}
	if req.Color != nil {
		updated.Color = strings.TrimSpace(*req.Color)
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			return domain.Product{}, store.ErrInvalidSale
		}
		updated.Category = category
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 1 {
			return domain.Product{}, store.ErrInvalidSale
		}
		updated.PriceCents = *req.PriceCents
	}
	if req.Barcode != nil {
		updated.Barcode = strings.TrimSpace(*req.Barcode)
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateBarcode(ctx, existing.Barcode)
	if saved.Barcode != existing.Barcode {
		s.invalidateBarcode(ctx, saved.Barcode)
	}

	s.logAudit(ctx, "product_update", "product", saved.ID, fmt.Sprintf("active=%t,price=%d", saved.Active, saved.PriceCents))
	return *saved, nil
}

func (s *Service) AdjustStock(ctx context.Context, productID string, req domain.StockAdjustRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	productID = strings.TrimSpace(productID)
	if productID == "" || req.Delta == 0 {
		return domain.Product{}, store.ErrInvalidSale
	}

	adjusted, err := s.repo.AdjustStock(ctx, productID, req.Delta)
	if err != nil {
		return domain.Product{}, err
	}

	s.invalidateBarcode(ctx, adjusted.Barcode)
	s.logAudit(ctx, "stock_adjust", "product", adjusted.ID, fmt.Sprintf("delta=%d,stock=%d,note=%s", req.Delta, adjusted.Stock, strings.TrimSpace(req.Note)))
	return *adjusted, nil
}

// LookupBarcode serves scanner lookups. Unknown barcodes are a normal outcome
// for the POS terminal, so they come back as an unsuccessful response rather
// than an error.
func (s *Service) LookupBarcode(ctx context.Context, barcode string) (domain.BarcodeLookupResponse, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return domain.BarcodeLookupResponse{}, store.ErrInvalidSale
	}

	product, hit, err := s.cache.Get(ctx, barcode)
	if err != nil {
		log.Printf("[service] WARN: barcode cache get failed barcode=%s: %v", barcode, err)
	}
	if !hit {
		product, err = s.repo.GetProductByBarcode(ctx, barcode)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.BarcodeLookupResponse{Success: false, Message: "product not found"}, nil
			}
			return domain.BarcodeLookupResponse{}, err
		}
		if err := s.cache.Set(ctx, barcode, product, s.barcodeTTL); err != nil {
			log.Printf("[service] WARN: barcode cache set failed barcode=%s: %v", barcode, err)
		}
	}

	if !product.Active {
		return domain.BarcodeLookupResponse{Success: false, Message: "product not available"}, nil
	}

	return domain.BarcodeLookupResponse{
		Success:    true,
		ProductID:  product.ID,
		Name:       product.Name,
		Model:      product.Model,
		Color:      product.Color,
		PriceCents: product.PriceCents,
		Available:  product.Stock,
	}, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	customer, err := s.repo.GetCustomerByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) UpsertCustomer(ctx context.Context, req domain.CustomerUpsertRequest) (domain.CustomerUpsertResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" || req.Phone == "" {
		return domain.CustomerUpsertResponse{}, store.ErrInvalidSale
	}

	customer, err := s.repo.UpsertCustomerByPhone(ctx, domain.Customer{
		Name:  req.Name,
		Phone: req.Phone,
		Email: strings.TrimSpace(req.Email),
	})
	if err != nil {
		return domain.CustomerUpsertResponse{}, err
	}

	return domain.CustomerUpsertResponse{Success: true, Customer: *customer}, nil
}

// PayDues settles part or all of a customer's outstanding balance outside a
// sale. Overpayment is rejected; change handling stays at the counter.
func (s *Service) PayDues(ctx context.Context, customerID string, req domain.DuesPaymentRequest) (domain.DuesPaymentResponse, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" || req.AmountCents < 1 {
		return domain.DuesPaymentResponse{}, store.ErrInvalidSale
	}

	customer, err := s.repo.GetCustomerByID(ctx, customerID)
	if err != nil {
		return domain.DuesPaymentResponse{}, err
	}
	if req.AmountCents > customer.DuesCents {
		return domain.DuesPaymentResponse{}, store.ErrInvalidSale
	}

	updated, err := s.repo.SetCustomerDues(ctx, customerID, customer.DuesCents-req.AmountCents)
	if err != nil {
		return domain.DuesPaymentResponse{}, err
	}

	s.writeLedger(ctx, domain.LedgerEntry{
		EntryType:   domain.LedgerTypeDuePayment,
		RefID:       updated.ID,
		CreditCents: req.AmountCents,
		Description: fmt.Sprintf("due payment from %s via %s", updated.Name, strings.TrimSpace(req.Channel)),
	})
	s.logAudit(ctx, "dues_payment", "customer", updated.ID, fmt.Sprintf("amount=%d,channel=%s", req.AmountCents, strings.TrimSpace(req.Channel)))

	return domain.DuesPaymentResponse{
		Customer:      *updated,
		PaidCents:     req.AmountCents,
		RemainingDues: updated.DuesCents,
	}, nil
}

// StartSale opens a sale session for a customer. When no customer id is given
// the customer is upserted by phone, so a brand-new walk-in gets a record and
// a dues balance in one step.
func (s *Service) StartSale(ctx context.Context, req domain.SaleStartRequest) (domain.SaleStartResponse, error) {
	customerID := strings.TrimSpace(req.CustomerID)
	if customerID == "" {
		name := strings.TrimSpace(req.CustomerName)
		phone := strings.TrimSpace(req.CustomerPhone)
		if name == "" || phone == "" {
			return domain.SaleStartResponse{}, store.ErrInvalidSale
		}
		customer, err := s.repo.UpsertCustomerByPhone(ctx, domain.Customer{
			Name:  name,
			Phone: phone,
			Email: strings.TrimSpace(req.CustomerEmail),
		})
		if err != nil {
			return domain.SaleStartResponse{}, err
		}
		customerID = customer.ID
	} else if _, err := s.repo.GetCustomerByID(ctx, customerID); err != nil {
		return domain.SaleStartResponse{}, err
	}

	sale, err := s.repo.CreateSale(ctx, domain.Sale{
		ID:         xid.New("sale"),
		CustomerID: customerID,
		Status:     domain.SaleStatusStarted,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		return domain.SaleStartResponse{}, err
	}

	s.logAudit(ctx, "sale_start", "sale", sale.ID, fmt.Sprintf("customer=%s,invoice=%s", customerID, sale.InvoiceNumber))

	return domain.SaleStartResponse{
		SaleID:        sale.ID,
		InvoiceNumber: sale.InvoiceNumber,
		CustomerID:    sale.CustomerID,
	}, nil
}

func (s *Service) GetSale(ctx context.Context, id string) (domain.SaleResponse, error) {
	sale, err := s.repo.GetSaleByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return domain.SaleResponse{}, err
	}
	return domain.SaleResponse{Sale: *sale}, nil
}

func (s *Service) ListSales(ctx context.Context, status string, limit int) (domain.SaleListResponse, error) {
	status = strings.TrimSpace(status)
	switch status {
	case "", domain.SaleStatusStarted, domain.SaleStatusHeld, domain.SaleStatusCompleted:
	default:
		return domain.SaleListResponse{}, store.ErrInvalidSale
	}

	sales, err := s.repo.ListSales(ctx, status, limit)
	if err != nil {
		return domain.SaleListResponse{}, err
	}
	return domain.SaleListResponse{Sales: sales}, nil
}

// CompleteSale finalizes a started or held sale: it prices the submitted
// lines, reconciles the payment against the total including the customer's
// carried-forward dues, and hands the whole batch to the repository for an
// atomic write.
func (s *Service) CompleteSale(ctx context.Context, saleID string, req domain.SaleCompleteRequest) (domain.SaleCompleteResponse, error) {
	saleID = strings.TrimSpace(saleID)
	if saleID == "" || len(req.Lines) == 0 {
		return domain.SaleCompleteResponse{}, store.ErrInvalidSale
	}

	sale, err := s.repo.GetSaleByID(ctx, saleID)
	if err != nil {
		return domain.SaleCompleteResponse{}, err
	}
	if sale.Status == domain.SaleStatusCompleted {
		return domain.SaleCompleteResponse{}, store.ErrSaleClosed
	}
	customer, err := s.repo.GetCustomerByID(ctx, sale.CustomerID)
	if err != nil {
		return domain.SaleCompleteResponse{}, err
	}

	lines, err := s.resolveLines(ctx, req.Lines)
	if err != nil {
		return domain.SaleCompleteResponse{}, err
	}

	basket, accepted := cart.FromSaleLines(lines)
	if accepted != len(lines) || basket.Len() == 0 {
		return domain.SaleCompleteResponse{}, store.ErrInvalidSale
	}

	subtotal := basket.SubtotalCents()
	discount := basket.TotalDiscountCents()
	net := basket.NetAmountCents()
	previousDues := customer.DuesCents
	total := net + previousDues

	method, err := payment.Parse(req.Payment)
	if err != nil {
		return domain.SaleCompleteResponse{}, err
	}
	settlement, err := payment.Reconcile(method, total, req.DueCents)
	if err != nil {
		return domain.SaleCompleteResponse{}, err
	}

	items := make([]domain.SoldProduct, 0, basket.Len())
	for _, line := range basket.Lines() {
		items = append(items, domain.SoldProduct{
			ID:             xid.New("sold"),
			SaleID:         sale.ID,
			ProductID:      line.ProductID,
			Barcode:        line.Barcode,
			Name:           line.Name,
			Qty:            line.Qty,
			UnitPriceCents: line.UnitPriceCents,
			DiscountCents:  line.DiscountCents,
			LineTotalCents: int64(line.Qty) * (line.UnitPriceCents - line.DiscountCents),
		})
	}

	finalized := *sale
	finalized.SubtotalCents = subtotal
	finalized.DiscountCents = discount
	finalized.NetAmountCents = net
	finalized.PreviousDuesCents = previousDues
	finalized.TotalCents = total
	finalized.PaymentMethod = method.Label()
	finalized.Tenders = method.Tenders()
	finalized.TotalReceivedCents = settlement.TotalReceivedCents
	finalized.DueCents = settlement.DueCents
	finalized.ChangeCents = settlement.ChangeCents

	completed, err := s.repo.CompleteSale(ctx, finalized, items, settlement.DueCents)
	if err != nil {
		return domain.SaleCompleteResponse{}, err
	}

	for _, item := range items {
		s.invalidateBarcode(ctx, item.Barcode)
	}

	s.writeLedger(ctx, domain.LedgerEntry{
		EntryType:   domain.LedgerTypeSale,
		RefID:       completed.ID,
		CreditCents: completed.TotalReceivedCents,
		Description: fmt.Sprintf("sale %s", completed.InvoiceNumber),
	})
	s.logAudit(ctx, "sale_complete", "sale", completed.ID, fmt.Sprintf("invoice=%s,total=%d,received=%d,due=%d,change=%d",
		completed.InvoiceNumber, completed.TotalCents, completed.TotalReceivedCents, completed.DueCents, completed.ChangeCents))

	return domain.SaleCompleteResponse{Sale: *completed, Items: items}, nil
}

// HoldSale parks the current lines on the sale so the terminal can serve the
// next customer. Held sales keep their invoice number and can be completed
// later.
func (s *Service) HoldSale(ctx context.Context, saleID string, req domain.SaleHoldRequest) (domain.SaleResponse, error) {
	saleID = strings.TrimSpace(saleID)
	if saleID == "" {
		return domain.SaleResponse{}, store.ErrInvalidSale
	}

	sale, err := s.repo.GetSaleByID(ctx, saleID)
	if err != nil {
		return domain.SaleResponse{}, err
	}
	if sale.Status == domain.SaleStatusCompleted {
		return domain.SaleResponse{}, store.ErrSaleClosed
	}
	customer, err := s.repo.GetCustomerByID(ctx, sale.CustomerID)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	lines, err := s.resolveLines(ctx, req.Lines)
	if err != nil {
		return domain.SaleResponse{}, err
	}
	basket, accepted := cart.FromSaleLines(lines)
	if accepted != len(lines) {
		return domain.SaleResponse{}, store.ErrInvalidSale
	}

	held := *sale
	held.SubtotalCents = basket.SubtotalCents()
	held.DiscountCents = basket.TotalDiscountCents()
	held.NetAmountCents = basket.NetAmountCents()
	held.PreviousDuesCents = customer.DuesCents
	held.TotalCents = held.NetAmountCents + customer.DuesCents
	if method, err := payment.Parse(req.Payment); err == nil {
		held.PaymentMethod = method.Label()
	}

	saved, err := s.repo.HoldSale(ctx, held)
	if err != nil {
		return domain.SaleResponse{}, err
	}

	s.logAudit(ctx, "sale_hold", "sale", saved.ID, fmt.Sprintf("invoice=%s,net=%d", saved.InvoiceNumber, saved.NetAmountCents))
	return domain.SaleResponse{Sale: *saved}, nil
}

// AbandonSale discards a started or held sale. Nothing was written for it
// beyond the sale header, so the delete is enough.
func (s *Service) AbandonSale(ctx context.Context, saleID string) error {
	saleID = strings.TrimSpace(saleID)
	if saleID == "" {
		return store.ErrInvalidSale
	}

	if err := s.repo.DeleteSale(ctx, saleID); err != nil {
		return err
	}
	s.logAudit(ctx, "sale_abandon", "sale", saleID, "")
	return nil
}

func (s *Service) Receipt(ctx context.Context, saleID string) (domain.ReceiptResponse, error) {
	saleID = strings.TrimSpace(saleID)
	if saleID == "" {
		return domain.ReceiptResponse{}, store.ErrInvalidSale
	}

	sale, err := s.repo.GetSaleByID(ctx, saleID)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}
	if sale.Status != domain.SaleStatusCompleted {
		return domain.ReceiptResponse{}, store.ErrInvalidSale
	}
	customer, err := s.repo.GetCustomerByID(ctx, sale.CustomerID)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}
	items, err := s.repo.ListSoldProducts(ctx, sale.ID)
	if err != nil {
		return domain.ReceiptResponse{}, err
	}

	lines := []string{
		s.shopName,
		"========================",
		"Invoice : " + sale.InvoiceNumber,
		"Date    : " + sale.CreatedAt.Format("2006-01-02 15:04:05"),
		"Customer: " + customer.Name,
		"------------------------",
	}
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s x%d", item.Name, item.Qty))
		lines = append(lines, fmt.Sprintf("  %s", formatAmount(item.LineTotalCents)))
	}
	lines = append(lines,
		"------------------------",
		fmt.Sprintf("Subtotal : %s", formatAmount(sale.SubtotalCents)),
	)
	if sale.DiscountCents > 0 {
		lines = append(lines, fmt.Sprintf("Discount : %s", formatAmount(sale.DiscountCents)))
	}
	if sale.PreviousDuesCents > 0 {
		lines = append(lines, fmt.Sprintf("Prev Due : %s", formatAmount(sale.PreviousDuesCents)))
	}
	lines = append(lines,
		fmt.Sprintf("Total    : %s", formatAmount(sale.TotalCents)),
		fmt.Sprintf("Received : %s", formatAmount(sale.TotalReceivedCents)),
	)
	if sale.DueCents > 0 {
		lines = append(lines, fmt.Sprintf("Due      : %s", formatAmount(sale.DueCents)))
	}
	if sale.ChangeCents > 0 {
		lines = append(lines, fmt.Sprintf("Change   : %s", formatAmount(sale.ChangeCents)))
	}
	lines = append(lines,
		"========================",
		"Thank you",
		"",
	)

	escpos := []byte{0x1b, 0x40}
	for _, line := range lines {
		escpos = append(escpos, []byte(line)...)
		escpos = append(escpos, '\n')
	}
	escpos = append(escpos, []byte{0x1d, 0x56, 0x41, 0x10}...)

	return domain.ReceiptResponse{
		SaleID:        sale.ID,
		InvoiceNumber: sale.InvoiceNumber,
		Text:          strings.Join(lines, "\n"),
		EscposBase64:  base64.StdEncoding.EncodeToString(escpos),
		Sale:          *sale,
		Customer:      *customer,
		Items:         items,
	}, nil
}

// ReturnSaleItems accepts returned units from a completed sale, restocks
// catalog-linked lines, and records the refund in the cashbook. Returned
// quantities are capped per line by what was sold minus what already came
// back.
func (s *Service) ReturnSaleItems(ctx context.Context, req domain.SaleReturnRequest) (domain.SaleReturnResponse, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.SaleReturnResponse{}, fmt.Errorf("authenticated actor required")
	}

	req.SaleID = strings.TrimSpace(req.SaleID)
	if req.SaleID == "" || len(req.Lines) == 0 {
		return domain.SaleReturnResponse{}, store.ErrInvalidSale
	}

	sale, err := s.repo.GetSaleByID(ctx, req.SaleID)
	if err != nil {
		return domain.SaleReturnResponse{}, err
	}
	if sale.Status != domain.SaleStatusCompleted {
		return domain.SaleReturnResponse{}, store.ErrInvalidSale
	}

	sold, err := s.repo.ListSoldProducts(ctx, sale.ID)
	if err != nil {
		return domain.SaleReturnResponse{}, err
	}
	alreadyReturned, err := s.repo.GetReturnedQtyBySale(ctx, sale.ID)
	if err != nil {
		return domain.SaleReturnResponse{}, err
	}

	soldQty := make(map[string]int, len(sold))
	effectiveUnit := make(map[string]int64, len(sold))
	soldName := make(map[string]string, len(sold))
	for _, item := range sold {
		key := soldKey(item.ProductID, item.Name)
		soldQty[key] += item.Qty
		effectiveUnit[key] = item.UnitPriceCents - item.DiscountCents
		soldName[key] = item.Name
	}

	var refund int64
	returnLines := make([]domain.ReturnLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		if line.Qty < 1 {
			return domain.SaleReturnResponse{}, store.ErrInvalidSale
		}
		key := soldKey(line.ProductID, line.Name)
		remaining := soldQty[key] - alreadyReturned[key]
		if line.Qty > remaining {
			return domain.SaleReturnResponse{}, store.ErrInvalidSale
		}
		alreadyReturned[key] += line.Qty

		unit := effectiveUnit[key]
		refund += int64(line.Qty) * unit
		returnLines = append(returnLines, domain.ReturnLine{
			ProductID:      line.ProductID,
			Name:           soldName[key],
			Qty:            line.Qty,
			UnitPriceCents: unit,
		})
	}

	created, err := s.repo.CreateSaleReturn(ctx, domain.SaleReturn{
		ID:          xid.New("ret"),
		SaleID:      sale.ID,
		Reason:      strings.TrimSpace(req.Reason),
		RefundCents: refund,
		Lines:       returnLines,
		ProcessedBy: actor.Username,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return domain.SaleReturnResponse{}, err
	}

	for _, line := range returnLines {
		if line.ProductID == "" {
			continue
		}
		restocked, err := s.repo.AdjustStock(ctx, line.ProductID, line.Qty)
		if err != nil {
			log.Printf("[service] WARN: restock failed product=%s qty=%d: %v", line.ProductID, line.Qty, err)
			continue
		}
		s.invalidateBarcode(ctx, restocked.Barcode)
	}

	s.writeLedger(ctx, domain.LedgerEntry{
		EntryType:   domain.LedgerTypeReturn,
		RefID:       created.ID,
		DebitCents:  refund,
		Description: fmt.Sprintf("return against %s", sale.InvoiceNumber),
	})
	s.logAudit(ctx, "sale_return", "sale_return", created.ID, fmt.Sprintf("sale=%s,refund=%d,lines=%d", sale.ID, refund, len(returnLines)))

	return domain.SaleReturnResponse{Return: *created}, nil
}

func (s *Service) RecordExpense(ctx context.Context, req domain.ExpenseCreateRequest) (domain.Expense, error) {
	req.Category = strings.TrimSpace(req.Category)
	if req.Category == "" || req.AmountCents < 1 {
		return domain.Expense{}, store.ErrInvalidSale
	}

	spentAt, err := parseDayOrNow(req.SpentAt)
	if err != nil {
		return domain.Expense{}, store.ErrInvalidSale
	}

	created, err := s.repo.CreateExpense(ctx, domain.Expense{
		ID:          xid.New("exp"),
		Category:    req.Category,
		Description: strings.TrimSpace(req.Description),
		AmountCents: req.AmountCents,
		SpentAt:     spentAt,
	})
	if err != nil {
		return domain.Expense{}, err
	}

	s.writeLedger(ctx, domain.LedgerEntry{
		EntryType:   domain.LedgerTypeExpense,
		RefID:       created.ID,
		DebitCents:  created.AmountCents,
		Description: created.Category + ": " + created.Description,
	})
	s.logAudit(ctx, "expense_create", "expense", created.ID, fmt.Sprintf("category=%s,amount=%d", created.Category, created.AmountCents))
	return *created, nil
}

func (s *Service) ListExpenses(ctx context.Context, date string, limit int) ([]domain.Expense, error) {
	from, to, err := dayRange(date)
	if err != nil {
		return nil, store.ErrInvalidSale
	}
	return s.repo.ListExpenses(ctx, from, to, limit)
}

func (s *Service) RecordIncome(ctx context.Context, req domain.IncomeCreateRequest) (domain.Income, error) {
	req.Source = strings.TrimSpace(req.Source)
	if req.Source == "" || req.AmountCents < 1 {
		return domain.Income{}, store.ErrInvalidSale
	}

	receivedAt, err := parseDayOrNow(req.ReceivedAt)
	if err != nil {
		return domain.Income{}, store.ErrInvalidSale
	}

	created, err := s.repo.CreateIncome(ctx, domain.Income{
		ID:          xid.New("inc"),
		Source:      req.Source,
		Description: strings.TrimSpace(req.Description),
		AmountCents: req.AmountCents,
		ReceivedAt:  receivedAt,
	})
	if err != nil {
		return domain.Income{}, err
	}

	s.writeLedger(ctx, domain.LedgerEntry{
		EntryType:   domain.LedgerTypeIncome,
		RefID:       created.ID,
		CreditCents: created.AmountCents,
		Description: created.Source + ": " + created.Description,
	})
	s.logAudit(ctx, "income_create", "income", created.ID, fmt.Sprintf("source=%s,amount=%d", created.Source, created.AmountCents))
	return *created, nil
}

func (s *Service) ListIncomes(ctx context.Context, date string, limit int) ([]domain.Income, error) {
	from, to, err := dayRange(date)
	if err != nil {
		return nil, store.ErrInvalidSale
	}
	return s.repo.ListIncomes(ctx, from, to, limit)
}

func (s *Service) ListLedgerEntries(ctx context.Context, date string, limit int) ([]domain.LedgerEntry, error) {
	from, to, err := dayRange(date)
	if err != nil {
		return nil, store.ErrInvalidSale
	}
	return s.repo.ListLedgerEntries(ctx, from, to, limit)
}

func (s *Service) DailySummary(ctx context.Context, date string) (domain.DailySummary, error) {
	from, to, err := dayRange(date)
	if err != nil {
		return domain.DailySummary{}, store.ErrInvalidSale
	}

	summary, err := s.repo.GetDailySummary(ctx, from, to)
	if err != nil {
		return domain.DailySummary{}, err
	}
	summary.Date = from.Format("2006-01-02")
	return summary, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	from, to, err := dayRange(date)
	if err != nil {
		return nil, store.ErrInvalidSale
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

// resolveLines fills catalog data into submitted sale lines: barcode-only
// lines get their product id, and catalog lines with a zero price get the
// current catalog price.
func (s *Service) resolveLines(ctx context.Context, lines []domain.SaleLine) ([]domain.SaleLine, error) {
	resolved := make([]domain.SaleLine, 0, len(lines))
	for _, line := range lines {
		line.Name = strings.TrimSpace(line.Name)
		line.Barcode = strings.TrimSpace(line.Barcode)
		line.ProductID = strings.TrimSpace(line.ProductID)

		if line.ProductID == "" && line.Barcode != "" {
			product, err := s.repo.GetProductByBarcode(ctx, line.Barcode)
			if err != nil {
				return nil, err
			}
			line.ProductID = product.ID
		}
		if line.ProductID != "" {
			product, err := s.repo.GetProductByID(ctx, line.ProductID)
			if err != nil {
				return nil, err
			}
			if !product.Active {
				return nil, store.ErrInvalidSale
			}
			if line.Name == "" {
				line.Name = product.Name
			}
			if line.Barcode == "" {
				line.Barcode = product.Barcode
			}
			if line.UnitPriceCents == 0 {
				line.UnitPriceCents = product.PriceCents
			}
		}
		resolved = append(resolved, line)
	}
	return resolved, nil
}

func (s *Service) invalidateBarcode(ctx context.Context, barcode string) {
	if barcode == "" {
		return
	}
	if err := s.cache.Invalidate(ctx, barcode); err != nil {
		log.Printf("[service] WARN: barcode cache invalidate failed barcode=%s: %v", barcode, err)
	}
}

// writeLedger records a cashbook entry best-effort; a failed write never
// fails the operation that produced it.
func (s *Service) writeLedger(ctx context.Context, entry domain.LedgerEntry) {
	if entry.ID == "" {
		entry.ID = xid.New("led")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := s.repo.CreateLedgerEntry(ctx, entry); err != nil {
		log.Printf("[ledger] WARN: failed to write ledger entry type=%s ref=%s: %v", entry.EntryType, entry.RefID, err)
	}
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

func soldKey(productID string, name string) string {
	if productID != "" {
		return productID
	}
	return "manual:" + strings.ToLower(strings.TrimSpace(name))
}

func formatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func parseDayOrNow(date string) (time.Time, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Now().UTC(), nil
	}
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Time{}, err
	}
	return parsed.UTC(), nil
}

func dayRange(date string) (time.Time, time.Time, error) {
	var from time.Time
	if strings.TrimSpace(date) == "" {
		now := time.Now().UTC()
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = parsed.UTC()
	}
	return from, from.Add(24 * time.Hour), nil
}
