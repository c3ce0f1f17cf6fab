package payment

import (
	"errors"
	"testing"

	"phoneshop/backend/internal/domain"
)

func TestParseKnownMethods(t *testing.T) {
	cases := []struct {
		req   domain.PaymentRequest
		label string
	}{
		{domain.PaymentRequest{Method: "", AmountCents: 1000}, "cash"},
		{domain.PaymentRequest{Method: "cash", AmountCents: 1000}, "cash"},
		{domain.PaymentRequest{Method: "card", AmountCents: 1000, Bank: "City Bank"}, "card"},
		{domain.PaymentRequest{Method: "mobile_banking", AmountCents: 1000, Provider: "bkash"}, "mobile_banking"},
		{domain.PaymentRequest{Method: "bank_transfer", AmountCents: 1000, Reference: "TRX-1"}, "bank_transfer"},
		{domain.PaymentRequest{Method: "split", Tenders: []domain.Tender{
			{Channel: domain.ChannelCash, AmountCents: 500},
			{Channel: domain.ChannelBkash, AmountCents: 500},
		}}, "split"},
	}
	for _, tc := range cases {
		m, err := Parse(tc.req)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", tc.req.Method, err)
		}
		if m.Label() != tc.label {
			t.Fatalf("expected label %q, got %q", tc.label, m.Label())
		}
		if err := m.Validate(); err != nil {
			t.Fatalf("Validate for %q failed: %v", tc.label, err)
		}
	}
}

func TestParseUnknownMethod(t *testing.T) {
	_, err := Parse(domain.PaymentRequest{Method: "crypto", AmountCents: 1000})
	if !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestCardRequiresBank(t *testing.T) {
	m, err := Parse(domain.PaymentRequest{Method: "card", AmountCents: 1000})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := m.Validate(); !errors.Is(err, ErrBankRequired) {
		t.Fatalf("expected ErrBankRequired, got %v", err)
	}
}

func TestMobileBankingRequiresKnownProvider(t *testing.T) {
	m, err := Parse(domain.PaymentRequest{Method: "mobile_banking", AmountCents: 1000, Provider: "paypal"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := m.Validate(); !errors.Is(err, ErrProviderRequired) {
		t.Fatalf("expected ErrProviderRequired for unknown provider, got %v", err)
	}

	m, err = Parse(domain.PaymentRequest{Method: "mobile_banking", AmountCents: 1000})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := m.Validate(); !errors.Is(err, ErrProviderRequired) {
		t.Fatalf("expected ErrProviderRequired for missing provider, got %v", err)
	}
}

func TestSplitValidation(t *testing.T) {
	m, err := Parse(domain.PaymentRequest{Method: "split"})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := m.Validate(); !errors.Is(err, ErrNoTender) {
		t.Fatalf("expected ErrNoTender for empty split, got %v", err)
	}

	m, err = Parse(domain.PaymentRequest{Method: "split", Tenders: []domain.Tender{
		{Channel: "iou", AmountCents: 500},
	}})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := m.Validate(); !errors.Is(err, ErrInvalidChannel) {
		t.Fatalf("expected ErrInvalidChannel, got %v", err)
	}

	m, err = Parse(domain.PaymentRequest{Method: "split", Tenders: []domain.Tender{
		{Channel: domain.ChannelCard, AmountCents: 500},
	}})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := m.Validate(); !errors.Is(err, ErrBankRequired) {
		t.Fatalf("expected ErrBankRequired for card tender without bank, got %v", err)
	}

	m, err = Parse(domain.PaymentRequest{Method: "split", Tenders: []domain.Tender{
		{Channel: domain.ChannelCash, AmountCents: 0},
	}})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if err := m.Validate(); !errors.Is(err, ErrNoTender) {
		t.Fatalf("expected ErrNoTender for zero-amount tender, got %v", err)
	}
}

func TestReconcileExactCash(t *testing.T) {
	m, _ := Parse(domain.PaymentRequest{Method: "cash", AmountCents: 10000})
	settlement, err := Reconcile(m, 10000, nil)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if settlement.TotalReceivedCents != 10000 || settlement.DueCents != 0 || settlement.ChangeCents != 0 {
		t.Fatalf("unexpected settlement %+v", settlement)
	}
}

func TestReconcileShortfallWithoutAcknowledgedDue(t *testing.T) {
	m, _ := Parse(domain.PaymentRequest{Method: "cash", AmountCents: 7000})
	_, err := Reconcile(m, 10000, nil)
	if !errors.Is(err, ErrShortfall) {
		t.Fatalf("expected ErrShortfall when due is not acknowledged, got %v", err)
	}

	zero := int64(0)
	_, err = Reconcile(m, 10000, &zero)
	if !errors.Is(err, ErrShortfall) {
		t.Fatalf("expected ErrShortfall when acknowledged due covers nothing, got %v", err)
	}
}

func TestReconcileAcknowledgedDue(t *testing.T) {
	m, _ := Parse(domain.PaymentRequest{Method: "cash", AmountCents: 7000})
	due := int64(3000)
	settlement, err := Reconcile(m, 10000, &due)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if settlement.TotalReceivedCents != 7000 || settlement.DueCents != 3000 || settlement.ChangeCents != 0 {
		t.Fatalf("unexpected settlement %+v", settlement)
	}
}

func TestReconcileOverpaymentYieldsChange(t *testing.T) {
	m, _ := Parse(domain.PaymentRequest{Method: "cash", AmountCents: 12000})
	settlement, err := Reconcile(m, 10000, nil)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if settlement.TotalReceivedCents != 12000 || settlement.DueCents != 0 || settlement.ChangeCents != 2000 {
		t.Fatalf("unexpected settlement %+v", settlement)
	}
}

func TestReconcileDueAndChangeConflict(t *testing.T) {
	m, _ := Parse(domain.PaymentRequest{Method: "cash", AmountCents: 12000})
	due := int64(1000)
	_, err := Reconcile(m, 10000, &due)
	if !errors.Is(err, ErrDueChangeConflict) {
		t.Fatalf("expected ErrDueChangeConflict, got %v", err)
	}
}

func TestReconcileSplitSumsTenders(t *testing.T) {
	m, _ := Parse(domain.PaymentRequest{Method: "split", Tenders: []domain.Tender{
		{Channel: domain.ChannelCash, AmountCents: 6000},
		{Channel: domain.ChannelBkash, AmountCents: 4000},
	}})
	settlement, err := Reconcile(m, 10000, nil)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if settlement.TotalReceivedCents != 10000 {
		t.Fatalf("expected received 10000, got %d", settlement.TotalReceivedCents)
	}
}

func TestSuggestDue(t *testing.T) {
	if got := SuggestDue(10000, 7000); got != 3000 {
		t.Fatalf("expected suggested due 3000, got %d", got)
	}
	if got := SuggestDue(10000, 12000); got != 0 {
		t.Fatalf("expected suggested due 0 on overpayment, got %d", got)
	}
}
