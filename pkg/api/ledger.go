// Package api defines the divvy.v1 LedgerService messages.
//
// Money is carried as JSON numbers in dollars. Timestamps are Unix seconds.
// Optional request fields are pointers; a nil pointer leaves the stored value
// unchanged.
package api

// Party and owner wire values.
const (
	PartyA      = "A"
	PartyB      = "B"
	OwnerShared = "Shared"
)

// Payment method wire values.
const (
	MethodAppTransferA = "app-transfer-A"
	MethodAppTransferB = "app-transfer-B"
	MethodManual       = "manual"
)

type LineItem struct {
	RawText        string  `json:"raw_text,omitempty"`
	Label          string  `json:"label"`
	Amount         float64 `json:"amount"`
	Owner          string  `json:"owner"`
	SuggestedOwner string  `json:"suggested_owner,omitempty"`
}

// LineItems wraps a list so an update can tell "replace with empty" from "leave as is".
type LineItems struct {
	Items []*LineItem `json:"items"`
}

type Expense struct {
	Id           string      `json:"id"`
	OccurredAt   int64       `json:"occurred_at"`
	Payer        string      `json:"payer"`
	LineItems    []*LineItem `json:"line_items"`
	Tax          float64     `json:"tax"`
	Tip          float64     `json:"tip"`
	TotalAmount  float64     `json:"total_amount"`
	MerchantName string      `json:"merchant_name,omitempty"`
	Notes        string      `json:"notes,omitempty"`
	Manual       bool        `json:"manual,omitempty"`
	// Debtor owes DebtAmount for this expense alone.
	Debtor     string  `json:"debtor,omitempty"`
	DebtAmount float64 `json:"debt_amount"`
}

type Payment struct {
	Id                string   `json:"id"`
	OccurredAt        int64    `json:"occurred_at"`
	Amount            float64  `json:"amount"`
	From              string   `json:"from"`
	To                string   `json:"to"`
	Method            string   `json:"method"`
	RelatedExpenseIds []string `json:"related_expense_ids,omitempty"`
	Note              string   `json:"note,omitempty"`
}

type Balance struct {
	OwedByA float64 `json:"owed_by_a"`
	OwedByB float64 `json:"owed_by_b"`
	Settled bool    `json:"settled"`
	// Debtor and Creditor are empty when settled.
	Debtor   string  `json:"debtor,omitempty"`
	Creditor string  `json:"creditor,omitempty"`
	Amount   float64 `json:"amount"`
	// Summary reads like "Ben owes Ana $5.00" using configured names.
	Summary string `json:"summary"`
}

type CreateExpenseRequest struct {
	Payer     string      `json:"payer"`
	LineItems []*LineItem `json:"line_items"`
	Tax       float64     `json:"tax"`
	Tip       float64     `json:"tip"`
	// TotalAmount is derived when omitted.
	TotalAmount  *float64 `json:"total_amount,omitempty"`
	MerchantName string   `json:"merchant_name,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	Manual       bool     `json:"manual,omitempty"`
	OccurredAt   *int64   `json:"occurred_at,omitempty"`
}

type CreateExpenseResponse struct {
	Expense *Expense `json:"expense"`
	Balance *Balance `json:"balance"`
}

type UpdateExpenseRequest struct {
	ExpenseId    string     `json:"expense_id"`
	OccurredAt   *int64     `json:"occurred_at,omitempty"`
	LineItems    *LineItems `json:"line_items,omitempty"`
	Tax          *float64   `json:"tax,omitempty"`
	Tip          *float64   `json:"tip,omitempty"`
	MerchantName *string    `json:"merchant_name,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	Manual       *bool      `json:"manual,omitempty"`
}

type UpdateExpenseResponse struct {
	Expense *Expense `json:"expense"`
	Balance *Balance `json:"balance"`
}

type DeleteExpenseRequest struct {
	ExpenseId string `json:"expense_id"`
}

type DeleteExpenseResponse struct {
	Balance *Balance `json:"balance"`
}

type ListExpensesRequest struct{}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type CreatePaymentRequest struct {
	Amount            float64  `json:"amount"`
	From              string   `json:"from"`
	To                string   `json:"to"`
	Method            string   `json:"method"`
	RelatedExpenseIds []string `json:"related_expense_ids,omitempty"`
	Note              string   `json:"note,omitempty"`
	OccurredAt        *int64   `json:"occurred_at,omitempty"`
}

type CreatePaymentResponse struct {
	Payment *Payment `json:"payment"`
	Balance *Balance `json:"balance"`
}

type DeletePaymentRequest struct {
	PaymentId string `json:"payment_id"`
}

type DeletePaymentResponse struct {
	Balance *Balance `json:"balance"`
}

type ListPaymentsRequest struct{}

type ListPaymentsResponse struct {
	Payments []*Payment `json:"payments"`
}

type GetBalanceRequest struct{}

type GetBalanceResponse struct {
	Balance *Balance `json:"balance"`
}

type SettleUpRequest struct {
	// Actor is who is settling; the Divvy-Party header is used when empty.
	Actor  string `json:"actor,omitempty"`
	Method string `json:"method"`
}

type SettleUpResponse struct {
	Payment *Payment `json:"payment"`
	// DeepLink opens the payment app; empty for methods without one.
	DeepLink string   `json:"deep_link,omitempty"`
	Balance  *Balance `json:"balance"`
}

type AnalyzeReceiptRequest struct {
	Image         string `json:"image"`
	PayerIdentity string `json:"payer_identity"`
	Notes         string `json:"notes,omitempty"`
}

type AnalyzeReceiptResponse struct {
	LineItems     []*LineItem `json:"line_items"`
	Tax           float64     `json:"tax"`
	Tip           float64     `json:"tip"`
	MerchantName  string      `json:"merchant_name,omitempty"`
	ReportedTotal float64     `json:"reported_total"`
	// Warning is set when the items do not add up to the reported total.
	Warning string `json:"warning,omitempty"`
}
