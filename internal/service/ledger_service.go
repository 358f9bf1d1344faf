package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/divvy/internal/calculator"
	"github.com/mmynk/divvy/internal/config"
	"github.com/mmynk/divvy/internal/events"
	"github.com/mmynk/divvy/internal/metrics"
	"github.com/mmynk/divvy/internal/middleware"
	"github.com/mmynk/divvy/internal/models"
	"github.com/mmynk/divvy/internal/receipt"
	"github.com/mmynk/divvy/internal/settlement"
	"github.com/mmynk/divvy/internal/storage"
	"github.com/mmynk/divvy/pkg/api"
	"github.com/mmynk/divvy/pkg/api/apiconnect"
)

// LedgerService implements the Connect LedgerService.
type LedgerService struct {
	apiconnect.UnimplementedLedgerServiceHandler
	store     storage.Store
	analyzer  receipt.Analyzer
	publisher events.Publisher
	metrics   *metrics.Metrics
	parties   config.Parties
}

// Option configures a LedgerService.
type Option func(*LedgerService)

// WithAnalyzer sets the receipt analyzer. Without one, AnalyzeReceipt fails
// and clients fall back to manual entry.
func WithAnalyzer(a receipt.Analyzer) Option {
	return func(s *LedgerService) { s.analyzer = a }
}

// WithPublisher sets where change events go.
func WithPublisher(p events.Publisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *LedgerService) { s.metrics = m }
}

// WithParties sets display names and payment-app handles.
func WithParties(p config.Parties) Option {
	return func(s *LedgerService) { s.parties = p }
}

// NewLedgerService creates a new LedgerService with the given storage backend.
func NewLedgerService(store storage.Store, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:     store,
		analyzer:  receipt.Disabled{},
		publisher: events.Nop{},
		parties:   config.Parties{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// publish announces a change. Failures are logged and never fail the request.
func (s *LedgerService) publish(ctx context.Context, kind events.Kind, id string) {
	err := s.publisher.Publish(ctx, events.LedgerChanged{
		Kind:       kind,
		RecordID:   id,
		OccurredAt: time.Now(),
	})
	if err != nil {
		slog.Warn("Failed to publish ledger change", "kind", kind, "record_id", id, "error", err)
	}
}

// snapshot loads both collections. The ledger is only computed when both succeed.
func (s *LedgerService) snapshot(ctx context.Context) ([]*models.Expense, []*models.Payment, error) {
	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		return nil, nil, err
	}
	payments, err := s.store.ListPayments(ctx)
	if err != nil {
		return nil, nil, err
	}
	return expenses, payments, nil
}

func (s *LedgerService) computeBalance(expenses []*models.Expense, payments []*models.Payment) models.Balance {
	balance := calculator.ComputeBalance(expenses, payments)
	s.metrics.SetOutstanding(balance.Amount().InexactFloat64())
	slog.Debug("Balance computed",
		"expenses", len(expenses),
		"payments", len(payments),
		"owed_by_a", balance.OwedByA.StringFixed(2),
		"owed_by_b", balance.OwedByB.StringFixed(2),
	)
	return balance
}

// currentBalance recomputes the balance after a write. The write has already
// succeeded, so a failed reload is logged and the balance is left out.
func (s *LedgerService) currentBalance(ctx context.Context) *api.Balance {
	expenses, payments, err := s.snapshot(ctx)
	if err != nil {
		slog.Warn("Failed to reload ledger after write", "error", err)
		return nil
	}
	return balanceToProto(s.computeBalance(expenses, payments), s.parties)
}

// CreateExpense validates and persists a new expense.
func (s *LedgerService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	expense := expenseFromCreate(req.Msg)
	if err := models.ValidateExpense(expense); err != nil {
		return nil, toConnectError("CreateExpense", err, "payer", req.Msg.Payer)
	}
	if expense.TotalAmount.IsZero() {
		expense.TotalAmount = expense.ComputedTotal()
	}

	if err := s.store.CreateExpense(ctx, expense); err != nil {
		return nil, toConnectError("CreateExpense", err)
	}
	slog.Info("Expense created",
		"expense_id", expense.ID,
		"payer", expense.Payer,
		"items", len(expense.LineItems),
		"total", expense.TotalAmount.StringFixed(2),
	)
	s.publish(ctx, events.ExpenseCreated, expense.ID)

	return connect.NewResponse(&api.CreateExpenseResponse{
		Expense: expenseToProto(expense),
		Balance: s.currentBalance(ctx),
	}), nil
}

// UpdateExpense applies a partial correction. The merged record is validated
// before anything is written.
func (s *LedgerService) UpdateExpense(ctx context.Context, req *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error) {
	id := req.Msg.ExpenseId
	if id == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("expense_id is required"))
	}

	existing, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return nil, toConnectError("UpdateExpense", err, "expense_id", id)
	}

	update := updateFromProto(req.Msg)
	if err := models.ValidateUpdate(existing, update); err != nil {
		return nil, toConnectError("UpdateExpense", err, "expense_id", id)
	}
	merged := update.Apply(*existing)
	if err := models.ValidateExpense(&merged); err != nil {
		return nil, toConnectError("UpdateExpense", err, "expense_id", id)
	}

	updated, err := s.store.UpdateExpense(ctx, id, update)
	if err != nil {
		return nil, toConnectError("UpdateExpense", err, "expense_id", id)
	}
	slog.Info("Expense updated", "expense_id", id, "total", updated.TotalAmount.StringFixed(2))
	s.publish(ctx, events.ExpenseUpdated, id)

	return connect.NewResponse(&api.UpdateExpenseResponse{
		Expense: expenseToProto(updated),
		Balance: s.currentBalance(ctx),
	}), nil
}

// DeleteExpense removes an expense recorded by mistake.
func (s *LedgerService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	id := req.Msg.ExpenseId
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return nil, toConnectError("DeleteExpense", err, "expense_id", id)
	}
	slog.Info("Expense deleted", "expense_id", id)
	s.publish(ctx, events.ExpenseDeleted, id)

	return connect.NewResponse(&api.DeleteExpenseResponse{
		Balance: s.currentBalance(ctx),
	}), nil
}

// ListExpenses returns every expense, newest first, with its per-expense debt.
func (s *LedgerService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	expenses, err := s.store.ListExpenses(ctx)
	if err != nil {
		return nil, toConnectError("ListExpenses", err)
	}

	out := make([]*api.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = expenseToProto(e)
	}
	return connect.NewResponse(&api.ListExpensesResponse{Expenses: out}), nil
}

// CreatePayment validates and persists a payment.
func (s *LedgerService) CreatePayment(ctx context.Context, req *connect.Request[api.CreatePaymentRequest]) (*connect.Response[api.CreatePaymentResponse], error) {
	payment := paymentFromCreate(req.Msg)
	if err := models.ValidatePayment(payment); err != nil {
		return nil, toConnectError("CreatePayment", err, "from", req.Msg.From, "to", req.Msg.To)
	}

	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, toConnectError("CreatePayment", err)
	}
	slog.Info("Payment recorded",
		"payment_id", payment.ID,
		"from", payment.From,
		"to", payment.To,
		"amount", payment.Amount.StringFixed(2),
		"method", payment.Method,
	)
	s.publish(ctx, events.PaymentCreated, payment.ID)

	return connect.NewResponse(&api.CreatePaymentResponse{
		Payment: paymentToProto(payment),
		Balance: s.currentBalance(ctx),
	}), nil
}

// DeletePayment removes a payment recorded by mistake.
func (s *LedgerService) DeletePayment(ctx context.Context, req *connect.Request[api.DeletePaymentRequest]) (*connect.Response[api.DeletePaymentResponse], error) {
	id := req.Msg.PaymentId
	if err := s.store.DeletePayment(ctx, id); err != nil {
		return nil, toConnectError("DeletePayment", err, "payment_id", id)
	}
	slog.Info("Payment deleted", "payment_id", id)
	s.publish(ctx, events.PaymentDeleted, id)

	return connect.NewResponse(&api.DeletePaymentResponse{
		Balance: s.currentBalance(ctx),
	}), nil
}

// ListPayments returns every payment, newest first.
func (s *LedgerService) ListPayments(ctx context.Context, req *connect.Request[api.ListPaymentsRequest]) (*connect.Response[api.ListPaymentsResponse], error) {
	payments, err := s.store.ListPayments(ctx)
	if err != nil {
		return nil, toConnectError("ListPayments", err)
	}

	out := make([]*api.Payment, len(payments))
	for i, p := range payments {
		out[i] = paymentToProto(p)
	}
	return connect.NewResponse(&api.ListPaymentsResponse{Payments: out}), nil
}

// GetBalance recomputes the net balance from every stored record.
func (s *LedgerService) GetBalance(ctx context.Context, req *connect.Request[api.GetBalanceRequest]) (*connect.Response[api.GetBalanceResponse], error) {
	expenses, payments, err := s.snapshot(ctx)
	if err != nil {
		return nil, toConnectError("GetBalance", err)
	}

	balance := s.computeBalance(expenses, payments)
	return connect.NewResponse(&api.GetBalanceResponse{
		Balance: balanceToProto(balance, s.parties),
	}), nil
}

// SettleUp records a payment for the full outstanding balance, related to
// every expense, and returns the payment-app deep link when the method has one.
func (s *LedgerService) SettleUp(ctx context.Context, req *connect.Request[api.SettleUpRequest]) (*connect.Response[api.SettleUpResponse], error) {
	actor := models.Party(req.Msg.Actor)
	if actor == "" {
		actor = middleware.GetParty(ctx)
	}
	if !actor.Valid() {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			errors.New("actor is required: set the actor field or the "+middleware.PartyHeader+" header"))
	}
	method := models.PaymentMethod(req.Msg.Method)
	if !method.Valid() {
		return nil, toConnectError("SettleUp", &models.ValidationError{
			Field:  "method",
			Reason: "must be app-transfer-A, app-transfer-B or manual",
		})
	}

	expenses, payments, err := s.snapshot(ctx)
	if err != nil {
		return nil, toConnectError("SettleUp", err)
	}
	balance := calculator.ComputeBalance(expenses, payments)

	intent := settlement.Plan(balance, actor)
	if intent == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errors.New("balance is already settled"))
	}

	note := settlement.Note(expenses)
	payment := intent.Payment(method, expenses, note)
	if err := models.ValidatePayment(payment); err != nil {
		return nil, toConnectError("SettleUp", err)
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, toConnectError("SettleUp", err)
	}
	slog.Info("Settled up",
		"payment_id", payment.ID,
		"actor", actor,
		"from", payment.From,
		"to", payment.To,
		"amount", payment.Amount.StringFixed(2),
		"method", method,
	)
	s.publish(ctx, events.PaymentCreated, payment.ID)

	link, _ := settlement.Link(method, intent, s.parties.Handles(), note)

	after := s.computeBalance(expenses, append(payments, payment))
	return connect.NewResponse(&api.SettleUpResponse{
		Payment:  paymentToProto(payment),
		DeepLink: link,
		Balance:  balanceToProto(after, s.parties),
	}), nil
}

// AnalyzeReceipt drafts line items from a receipt photo. Nothing is stored;
// the caller reviews ownership and then calls CreateExpense.
func (s *LedgerService) AnalyzeReceipt(ctx context.Context, req *connect.Request[api.AnalyzeReceiptRequest]) (*connect.Response[api.AnalyzeReceiptResponse], error) {
	analysis, err := s.analyzer.Analyze(ctx, receipt.Request{
		Image: req.Msg.Image,
		Payer: models.Party(req.Msg.PayerIdentity),
		Notes: req.Msg.Notes,
	})
	if err != nil {
		if receipt.IsExtractionError(err) {
			s.metrics.ExtractionFailed()
		}
		return nil, toConnectError("AnalyzeReceipt", err, "payer", req.Msg.PayerIdentity)
	}

	draft := receipt.Draft(analysis)
	resp := &api.AnalyzeReceiptResponse{
		LineItems:     lineItemsToProto(draft.LineItems),
		Tax:           toFloat(draft.Tax),
		Tip:           toFloat(draft.Tip),
		MerchantName:  draft.MerchantName,
		ReportedTotal: toFloat(analysis.Total),
	}
	if draft.Warning != nil {
		resp.Warning = draft.Warning.String()
	}
	slog.Info("Receipt analyzed",
		"payer", req.Msg.PayerIdentity,
		"items", len(draft.LineItems),
		"merchant", draft.MerchantName,
		"inconsistent", draft.Warning != nil,
	)
	return connect.NewResponse(resp), nil
}
