// Package payment models the payment side of a sale: which method the
// cashier selected, the amounts tendered per channel, and the settlement
// math (received, due, change) against the sale total.
//
// Each method is its own variant type carrying only the fields that channel
// needs, so a card payment without a bank is unrepresentable-but-checkable
// rather than one of many nil optionals.
package payment

import (
	"errors"
	"fmt"
	"strings"

	"phoneshop/backend/internal/domain"
)

var (
	ErrUnknownMethod   = errors.New("unknown payment method")
	ErrBankRequired    = errors.New("bank selection required")
	ErrProviderRequired = errors.New("mobile banking provider required")
	ErrNoTender        = errors.New("no amount tendered")
	ErrInvalidChannel  = errors.New("invalid payment channel")
	// ErrShortfall is returned when the amount received is below the sale
	// total and the shortfall has not been acknowledged as a due.
	ErrShortfall = errors.New("received amount below total and due not acknowledged")
	// ErrDueChangeConflict is returned when the entered due would make both
	// due and change positive at once.
	ErrDueChangeConflict = errors.New("due and change cannot both be positive")
)

// Method is a validated payment method selection.
type Method interface {
	// Label is the persisted payment-method name.
	Label() string
	// Tenders expands the method into per-channel tendered amounts.
	Tenders() []domain.Tender
	// Validate checks the method's own required fields, before any
	// settlement math.
	Validate() error
}

type Cash struct {
	AmountCents int64
}

func (c Cash) Label() string { return "cash" }

func (c Cash) Tenders() []domain.Tender {
	return []domain.Tender{{Channel: domain.ChannelCash, AmountCents: c.AmountCents}}
}

func (c Cash) Validate() error {
	if c.AmountCents < 1 {
		return ErrNoTender
	}
	return nil
}

type Card struct {
	Bank        string
	AmountCents int64
	Reference   string
}

func (c Card) Label() string { return "card" }

func (c Card) Tenders() []domain.Tender {
	return []domain.Tender{{Channel: domain.ChannelCard, AmountCents: c.AmountCents, Bank: c.Bank, Reference: c.Reference}}
}

func (c Card) Validate() error {
	if strings.TrimSpace(c.Bank) == "" {
		return ErrBankRequired
	}
	if c.AmountCents < 1 {
		return ErrNoTender
	}
	return nil
}

type MobileBanking struct {
	Provider    string
	AmountCents int64
	Reference   string
}

func (m MobileBanking) Label() string { return "mobile_banking" }

func (m MobileBanking) Tenders() []domain.Tender {
	return []domain.Tender{{Channel: m.Provider, AmountCents: m.AmountCents, Reference: m.Reference}}
}

func (m MobileBanking) Validate() error {
	if !isMobileProvider(m.Provider) {
		return ErrProviderRequired
	}
	if m.AmountCents < 1 {
		return ErrNoTender
	}
	return nil
}

type BankTransfer struct {
	Bank        string
	AmountCents int64
	Reference   string
}

func (b BankTransfer) Label() string { return "bank_transfer" }

func (b BankTransfer) Tenders() []domain.Tender {
	return []domain.Tender{{Channel: domain.ChannelBankTransfer, AmountCents: b.AmountCents, Bank: b.Bank, Reference: b.Reference}}
}

func (b BankTransfer) Validate() error {
	if strings.TrimSpace(b.Bank) == "" {
		return ErrBankRequired
	}
	if b.AmountCents < 1 {
		return ErrNoTender
	}
	return nil
}

// Split carries independent amounts across several channels at once.
type Split struct {
	Parts []domain.Tender
}

func (s Split) Label() string { return "split" }

func (s Split) Tenders() []domain.Tender {
	out := make([]domain.Tender, len(s.Parts))
	copy(out, s.Parts)
	return out
}

func (s Split) Validate() error {
	if len(s.Parts) == 0 {
		return ErrNoTender
	}
	for _, part := range s.Parts {
		if !isChannel(part.Channel) {
			return fmt.Errorf("%w: %s", ErrInvalidChannel, part.Channel)
		}
		if part.AmountCents < 1 {
			return ErrNoTender
		}
		if (part.Channel == domain.ChannelCard || part.Channel == domain.ChannelBankTransfer) && strings.TrimSpace(part.Bank) == "" {
			return ErrBankRequired
		}
	}
	return nil
}

// Settlement is the outcome of reconciling tendered amounts against a total.
type Settlement struct {
	TotalReceivedCents int64
	DueCents           int64
	ChangeCents        int64
}

// Parse converts the flat wire form into a typed method variant. It does not
// validate amounts; Reconcile does.
func Parse(req domain.PaymentRequest) (Method, error) {
	method := strings.ToLower(strings.TrimSpace(req.Method))
	switch method {
	case "cash", "":
		return Cash{AmountCents: req.AmountCents}, nil
	case "card":
		return Card{Bank: strings.TrimSpace(req.Bank), AmountCents: req.AmountCents, Reference: strings.TrimSpace(req.Reference)}, nil
	case "mobile_banking":
		return MobileBanking{Provider: strings.ToLower(strings.TrimSpace(req.Provider)), AmountCents: req.AmountCents, Reference: strings.TrimSpace(req.Reference)}, nil
	case "bank_transfer":
		return BankTransfer{Bank: strings.TrimSpace(req.Bank), AmountCents: req.AmountCents, Reference: strings.TrimSpace(req.Reference)}, nil
	case "split":
		parts := make([]domain.Tender, 0, len(req.Tenders))
		for _, t := range req.Tenders {
			t.Channel = strings.ToLower(strings.TrimSpace(t.Channel))
			t.Bank = strings.TrimSpace(t.Bank)
			t.Reference = strings.TrimSpace(t.Reference)
			if t.Channel == "" && t.AmountCents == 0 {
				continue
			}
			parts = append(parts, t)
		}
		return Split{Parts: parts}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}

// SuggestDue is the auto-suggested due for a partially paid sale:
// max(0, total - received). Clients show this in the editable due field;
// Reconcile only accepts the due the caller actually submitted.
func SuggestDue(totalCents int64, receivedCents int64) int64 {
	if receivedCents >= totalCents {
		return 0
	}
	return totalCents - receivedCents
}

// Reconcile validates the method and computes the settlement for the given
// sale total. enteredDue is the submitted due-field value; nil means the due
// field was left untouched, so any shortfall is unacknowledged and rejected.
func Reconcile(m Method, totalCents int64, enteredDue *int64) (Settlement, error) {
	if err := m.Validate(); err != nil {
		return Settlement{}, err
	}

	var received int64
	for _, t := range m.Tenders() {
		received += t.AmountCents
	}

	var due int64
	if enteredDue != nil {
		if *enteredDue < 0 {
			return Settlement{}, ErrShortfall
		}
		due = *enteredDue
	}

	change := received + due - totalCents
	if change < 0 {
		change = 0
	}

	if received < totalCents && due == 0 {
		return Settlement{}, ErrShortfall
	}
	if due > 0 && change > 0 {
		return Settlement{}, ErrDueChangeConflict
	}

	return Settlement{
		TotalReceivedCents: received,
		DueCents:           due,
		ChangeCents:        change,
	}, nil
}

func isMobileProvider(provider string) bool {
	switch provider {
	case domain.ChannelBkash, domain.ChannelNagad, domain.ChannelRocket, domain.ChannelUpay:
		return true
	default:
		return false
	}
}

func isChannel(channel string) bool {
	switch channel {
	case domain.ChannelCash, domain.ChannelCard, domain.ChannelBankTransfer:
		return true
	default:
		return isMobileProvider(channel)
	}
}
