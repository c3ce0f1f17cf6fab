package domain

import "time"

// All money amounts are in cents (minor currency units).

type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Model       string `json:"model,omitempty"`
	Color       string `json:"color,omitempty"`
	Category    string `json:"category"`
	PriceCents  int64  `json:"price_cents"`
	Stock       int    `json:"stock"`
	Barcode     string `json:"barcode,omitempty"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
}

type ProductCreateRequest struct {
	Name        string `json:"name"`
	Model       string `json:"model"`
	Color       string `json:"color"`
	Category    string `json:"category"`
	PriceCents  int64  `json:"price_cents"`
	Stock       int    `json:"stock"`
	Barcode     string `json:"barcode"`
	Description string `json:"description"`
}

type ProductUpdateRequest struct {
	Name        *string `json:"name,omitempty"`
	Model       *string `json:"model,omitempty"`
	Color       *string `json:"color,omitempty"`
	Category    *string `json:"category,omitempty"`
	PriceCents  *int64  `json:"price_cents,omitempty"`
	Barcode     *string `json:"barcode,omitempty"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

type StockAdjustRequest struct {
	Delta int    `json:"delta"`
	Note  string `json:"note"`
}

// BarcodeLookupResponse mirrors the shape POS terminals expect: a success
// flag with product fields, or a message when the barcode is unknown.
type BarcodeLookupResponse struct {
	Success    bool   `json:"success"`
	ProductID  string `json:"product_id,omitempty"`
	Name       string `json:"name,omitempty"`
	Model      string `json:"model,omitempty"`
	Color      string `json:"color,omitempty"`
	PriceCents int64  `json:"price_cents,omitempty"`
	Available  int    `json:"available_quantity,omitempty"`
	Message    string `json:"message,omitempty"`
}

type Customer struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Phone               string    `json:"phone"`
	Email               string    `json:"email,omitempty"`
	DuesCents           int64     `json:"dues_cents"`
	TotalPurchasesCents int64     `json:"total_purchases_cents"`
	CreatedAt           time.Time `json:"created_at"`
}

type CustomerUpsertRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type CustomerUpsertResponse struct {
	Success  bool     `json:"success"`
	Customer Customer `json:"customer"`
}

type DuesPaymentRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Channel     string `json:"channel"`
	Reference   string `json:"reference,omitempty"`
}

type DuesPaymentResponse struct {
	Customer      Customer `json:"customer"`
	PaidCents     int64    `json:"paid_cents"`
	RemainingDues int64    `json:"remaining_dues_cents"`
}

// Payment channels.
const (
	ChannelCash         = "cash"
	ChannelCard         = "card"
	ChannelBkash        = "bkash"
	ChannelNagad        = "nagad"
	ChannelRocket       = "rocket"
	ChannelUpay         = "upay"
	ChannelBankTransfer = "bank_transfer"
)

// Tender is one settled amount on a single payment channel.
type Tender struct {
	Channel     string `json:"channel"`
	AmountCents int64  `json:"amount_cents"`
	Bank        string `json:"bank,omitempty"`
	Reference   string `json:"reference,omitempty"`
}

// PaymentRequest is the flat wire form of a payment method selection.
// The payment package parses it into a typed method variant.
type PaymentRequest struct {
	Method      string   `json:"method"`
	AmountCents int64    `json:"amount_cents,omitempty"`
	Bank        string   `json:"bank,omitempty"`
	Provider    string   `json:"provider,omitempty"`
	Reference   string   `json:"reference,omitempty"`
	Tenders     []Tender `json:"tenders,omitempty"`
}

const (
	SaleStatusStarted   = "started"
	SaleStatusHeld      = "held"
	SaleStatusCompleted = "completed"
)

type Sale struct {
	ID                 string     `json:"id"`
	InvoiceNumber      string     `json:"invoice_number"`
	CustomerID         string     `json:"customer_id"`
	Status             string     `json:"status"`
	SubtotalCents      int64      `json:"subtotal_cents"`
	DiscountCents      int64      `json:"discount_cents"`
	NetAmountCents     int64      `json:"net_amount_cents"`
	PreviousDuesCents  int64      `json:"previous_dues_cents"`
	TotalCents         int64      `json:"total_cents"`
	PaymentMethod      string     `json:"payment_method,omitempty"`
	Tenders            []Tender   `json:"tenders,omitempty"`
	TotalReceivedCents int64      `json:"total_received_cents"`
	DueCents           int64      `json:"due_cents"`
	ChangeCents        int64      `json:"change_cents"`
	CreatedAt          time.Time  `json:"created_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// SoldProduct is the persisted record of one cart line at finalize time.
type SoldProduct struct {
	ID             string `json:"id"`
	SaleID         string `json:"sale_id"`
	ProductID      string `json:"product_id,omitempty"`
	Barcode        string `json:"barcode,omitempty"`
	Name           string `json:"name"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	DiscountCents  int64  `json:"discount_cents"`
	LineTotalCents int64  `json:"line_total_cents"`
}

// SaleLine is a cart line as submitted by a terminal: either a catalog
// reference (product id / barcode) or a manually entered name and price.
type SaleLine struct {
	ProductID      string `json:"product_id,omitempty"`
	Barcode        string `json:"barcode,omitempty"`
	Name           string `json:"name,omitempty"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	DiscountCents  int64  `json:"discount_cents"`
}

type SaleStartRequest struct {
	CustomerID    string `json:"customer_id,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	CustomerEmail string `json:"customer_email,omitempty"`
}

type SaleStartResponse struct {
	SaleID        string `json:"sale_id"`
	InvoiceNumber string `json:"invoice_number"`
	CustomerID    string `json:"customer_id"`
}

type SaleCompleteRequest struct {
	Lines    []SaleLine     `json:"lines"`
	Payment  PaymentRequest `json:"payment"`
	DueCents *int64         `json:"due_cents,omitempty"`
}

type SaleCompleteResponse struct {
	Sale  Sale          `json:"sale"`
	Items []SoldProduct `json:"items"`
}

type SaleHoldRequest struct {
	Lines   []SaleLine     `json:"lines"`
	Payment PaymentRequest `json:"payment"`
}

type SaleResponse struct {
	Sale Sale `json:"sale"`
}

type SaleListResponse struct {
	Sales []Sale `json:"sales"`
}

type ReceiptResponse struct {
	SaleID        string        `json:"sale_id"`
	InvoiceNumber string        `json:"invoice_number"`
	Text          string        `json:"text"`
	EscposBase64  string        `json:"escpos_base64"`
	Sale          Sale          `json:"sale"`
	Customer      Customer      `json:"customer"`
	Items         []SoldProduct `json:"items"`
}

type ReturnLine struct {
	ProductID      string `json:"product_id,omitempty"`
	Name           string `json:"name"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents,omitempty"`
}

type SaleReturnRequest struct {
	SaleID string       `json:"sale_id"`
	Reason string       `json:"reason"`
	Lines  []ReturnLine `json:"lines"`
}

type SaleReturn struct {
	ID          string       `json:"id"`
	SaleID      string       `json:"sale_id"`
	Reason      string       `json:"reason"`
	RefundCents int64        `json:"refund_cents"`
	Lines       []ReturnLine `json:"lines"`
	ProcessedBy string       `json:"processed_by"`
	CreatedAt   time.Time    `json:"created_at"`
}

type SaleReturnResponse struct {
	Return SaleReturn `json:"return"`
}

type Expense struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amount_cents"`
	SpentAt     time.Time `json:"spent_at"`
}

type ExpenseCreateRequest struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	SpentAt     string `json:"spent_at,omitempty"`
}

type Income struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amount_cents"`
	ReceivedAt  time.Time `json:"received_at"`
}

type IncomeCreateRequest struct {
	Source      string `json:"source"`
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	ReceivedAt  string `json:"received_at,omitempty"`
}

// Ledger entry types.
const (
	LedgerTypeSale       = "sale"
	LedgerTypeDuePayment = "due_payment"
	LedgerTypeExpense    = "expense"
	LedgerTypeIncome     = "income"
	LedgerTypeReturn     = "return"
)

// LedgerEntry is a single-entry cashbook row: credits record money in,
// debits record money out.
type LedgerEntry struct {
	ID          string    `json:"id"`
	EntryType   string    `json:"entry_type"`
	RefID       string    `json:"ref_id,omitempty"`
	DebitCents  int64     `json:"debit_cents"`
	CreditCents int64     `json:"credit_cents"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

type ChannelTotal struct {
	Channel    string `json:"channel"`
	Sales      int64  `json:"sales"`
	TotalCents int64  `json:"total_cents"`
}

type DailySummary struct {
	Date             string         `json:"date"`
	SalesCount       int64          `json:"sales_count"`
	GrossSalesCents  int64          `json:"gross_sales_cents"`
	DiscountCents    int64          `json:"discount_cents"`
	ReceivedCents    int64          `json:"received_cents"`
	NewDuesCents     int64          `json:"new_dues_cents"`
	ByChannel        []ChannelTotal `json:"by_channel"`
	ExpenseCents     int64          `json:"expense_cents"`
	OtherIncomeCents int64          `json:"other_income_cents"`
	NetCashCents     int64          `json:"net_cash_cents"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}
