package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"connectrpc.com/connect"
	"github.com/shopspring/decimal"

	"github.com/mmynk/divvy/internal/config"
	"github.com/mmynk/divvy/internal/events"
	"github.com/mmynk/divvy/internal/metrics"
	"github.com/mmynk/divvy/internal/middleware"
	"github.com/mmynk/divvy/internal/models"
	"github.com/mmynk/divvy/internal/receipt"
	"github.com/mmynk/divvy/internal/storage"
	"github.com/mmynk/divvy/internal/storage/sqlite"
	"github.com/mmynk/divvy/pkg/api"
	"github.com/mmynk/divvy/pkg/api/apiconnect"
)

var testParties = config.Parties{
	models.PartyA: {Name: "Ana", Handle: "ana-p"},
	models.PartyB: {Name: "Ben", Handle: "ben_q"},
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.LedgerChanged
}

func (p *recordingPublisher) Publish(_ context.Context, e events.LedgerChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	kinds := make([]events.Kind, len(p.events))
	for i, e := range p.events {
		kinds[i] = e.Kind
	}
	return kinds
}

type fakeAnalyzer struct {
	analysis *receipt.Analysis
	err      error
}

func (f *fakeAnalyzer) Analyze(context.Context, receipt.Request) (*receipt.Analysis, error) {
	return f.analysis, f.err
}

// setupTestServer creates a test server backed by a temporary SQLite database.
// The client sends actor in the Divvy-Party header when it is non-empty.
func setupTestServer(t *testing.T, actor models.Party, opts ...Option) (apiconnect.LedgerServiceClient, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	client, closeServer := serve(t, store, actor, opts...)
	cleanup := func() {
		closeServer()
		store.Close()
		os.Remove(tmpFile.Name())
	}
	return client, cleanup
}

func serve(t *testing.T, store storage.Store, actor models.Party, opts ...Option) (apiconnect.LedgerServiceClient, func()) {
	t.Helper()

	opts = append([]Option{WithParties(testParties)}, opts...)
	svc := NewLedgerService(store, opts...)
	path, handler := apiconnect.NewLedgerServiceHandler(svc,
		connect.WithInterceptors(middleware.ActingParty(), middleware.LoggingInterceptor()),
	)

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	server := httptest.NewServer(mux)

	client := apiconnect.NewLedgerServiceClient(
		http.DefaultClient,
		server.URL,
		connect.WithInterceptors(middleware.SetParty(actor)),
	)
	return client, server.Close
}

func ptr[T any](v T) *T { return &v }

func expectCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Fatalf("expected code %v, got %v (%v)", want, got, err)
	}
}

func sharedExpense(payer string, amount float64) *api.CreateExpenseRequest {
	return &api.CreateExpenseRequest{
		Payer: payer,
		LineItems: []*api.LineItem{
			{RawText: "GROCERIES", Label: "Groceries", Amount: amount, Owner: api.OwnerShared},
		},
	}
}

func getBalance(t *testing.T, client apiconnect.LedgerServiceClient) *api.Balance {
	t.Helper()
	resp, err := client.GetBalance(context.Background(), connect.NewRequest(&api.GetBalanceRequest{}))
	if err != nil {
		t.Fatalf("GetBalance failed: %v", err)
	}
	return resp.Msg.Balance
}

func TestGetBalance_Empty(t *testing.T) {
	client, cleanup := setupTestServer(t, "")
	defer cleanup()

	balance := getBalance(t, client)
	if balance.OwedByA != 0 || balance.OwedByB != 0 || !balance.Settled {
		t.Errorf("expected zero settled balance, got %+v", balance)
	}
	if balance.Summary != "All settled up" {
		t.Errorf("unexpected summary %q", balance.Summary)
	}
}

func TestCreateExpense_SharedItem(t *testing.T) {
	client, cleanup := setupTestServer(t, "")
	defer cleanup()

	resp, err := client.CreateExpense(context.Background(), connect.NewRequest(sharedExpense(api.PartyA, 10)))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	expense := resp.Msg.Expense
	if expense.Id == "" {
		t.Error("expected expense ID to be set")
	}
	if expense.TotalAmount != 10 {
		t.Errorf("expected derived total 10, got %v", expense.TotalAmount)
	}
	if expense.Debtor != api.PartyB || expense.DebtAmount != 5 {
		t.Errorf("expected B to owe 5 for this expense, got %s %v", expense.Debtor, expense.DebtAmount)
	}

	balance := resp.Msg.Balance
	if balance.OwedByB != 5 || balance.OwedByA != 0 {
		t.Errorf("expected B to owe 5, got %+v", balance)
	}
	if balance.Summary != "Ben owes Ana $5.00" {
		t.Errorf("unexpected summary %q", balance.Summary)
	}
}

func TestCreateExpense_TaxApportionment(t *testing.T) {
	client, cleanup := setupTestServer(t, "")
	defer cleanup()

	_, err := client.CreateExpense(context.Background(), connect.NewRequest(&api.CreateExpenseRequest{
		Payer: api.PartyA,
		LineItems: []*api.LineItem{
			{Label: "Ben's shirt", Amount: 20, Owner: api.PartyB},
			{Label: "Ana's shoes", Amount: 20, Owner: api.PartyA},
		},
		Tax:         4,
		TotalAmount: ptr(44.0),
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	if balance := getBalance(t, client); balance.OwedByB != 22 {
		t.Errorf("expected B to owe 22, got %+v", balance)
	}
}

func TestCreateExpense_Manual(t *testing.T) {
	client, cleanup := setupTestServer(t, "")
	defer cleanup()

	resp, err := client.CreateExpense(context.Background(), connect.NewRequest(&api.CreateExpenseRequest{
		Payer:  api.PartyB,
		Manual: true,
		Notes:  "placeholder, items to follow",
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	if len(resp.Msg.Expense.LineItems) != 0 || !resp.Msg.Expense.Manual {
		t.Errorf("expected manual expense without items, got %+v", resp.Msg.Expense)
	}
	if !resp.Msg.Balance.Settled {
		t.Errorf("expected manual expense to leave balance settled, got %+v", resp.Msg.Balance)
	}
}

func TestCreateExpense_ValidationErrors(t *testing.T) {
	client, cleanup := setupTestServer(t, "")
	defer cleanup()

	tests := []struct {
		name string
		req  *api.CreateExpenseRequest
	}{
		{"unknown payer", sharedExpense("C", 10)},
		{"negative item", sharedExpense(api.PartyA, -1)},
		{"no items", &api.CreateExpenseRequest{Payer: api.PartyA}},
		{"unknown owner", &api.CreateExpenseRequest{
			Payer:     api.PartyA,
			LineItems: []*api.LineItem{{Label: "x", Amount: 1, Owner: "Split"}},
		}},
		{"negative tip", &api.CreateExpenseRequest{
			Payer:     api.PartyA,
			LineItems: []*api.LineItem{{Label: "x", Amount: 1, Owner: api.OwnerShared}},
			Tip:       -2,
		}},
		{"total mismatch", &api.CreateExpenseRequest{
			Payer:       api.PartyA,
			LineItems:   []*api.LineItem{{Label: "x", Amount: 10, Owner: api.OwnerShared}},
			TotalAmount: ptr(12.0),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.CreateExpense(context.Background(), connect.NewRequest(tt.req))
			expectCode(t, err, connect.CodeInvalidArgument)
		})
	}

	list, err := client.ListExpenses(context.Background(), connect.NewRequest(&api.ListExpensesRequest{}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if len(list.Msg.Expenses) != 0 {
		t.Errorf("expected nothing persisted, got %d expenses", len(list.Msg.Expenses))
	}
}

func TestCreatePayment_FullOffsetAndOverpayment(t *testing.T) {
	client, cleanup := setupTestServer(t, "")
	defer cleanup()
	ctx := context.Background()

	if _, err := client.CreateExpense(ctx, connect.NewRequest(sharedExpense(api.PartyA, 10))); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	resp, err := client.CreatePayment(ctx, connect.NewRequest(&api.CreatePaymentRequest{
		Amount: 5, From: api.PartyB, To: api.PartyA, Method: api.MethodManual,
	}))
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}
	if !resp.Msg.Balance.Settled {
		t.Errorf("expected settled balance after full offset, got %+v", resp.Msg.Balance)
	}

	resp, err = client.CreatePayment(ctx, connect.NewRequest(&api.CreatePaymentRequest{
		Amount: 3, From: api.PartyB, To: api.PartyA, Method: api.MethodAppTransferB, Note: "extra",
	}))
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}
	balance := resp.Msg.Balance
	if balance.OwedByA != 3 || balance.OwedByB != 0 || balance.Debtor != api.PartyA {
		t.Errorf("expected A to owe 3 after overpayment, got %+v", balance)
	}

	payments, err := client.ListPayments(ctx, connect.NewRequest(&api.ListPaymentsRequest{}))
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if len(payments.Msg.Payments) != 2 {
		t.Fatalf("expected 2 payments, got %d", len(payments.Msg.Payments))
	}
}

func TestCreatePayment_ValidationErrors(t *testing.T) {
	client, cleanup := setupTestServer(t, "")
	defer cleanup()

	tests := []struct {
		name string
		req  *api.CreatePaymentRequest
	}{
		{"same party", &api.CreatePaymentRequest{Amount: 5, From: api.PartyA, To: api.PartyA, Method: api.MethodManual}},
		{"negative amount", &api.CreatePaymentRequest{Amount: -5, From: api.PartyA, To: api.PartyB, Method: api.MethodManual}},
		{"unknown method", &api.CreatePaymentRequest{Amount: 5, From: api.PartyA, To: api.PartyB, Method: "cash"}},
		{"unknown party", &api.CreatePaymentRequest{Amount: 5, From: "C", To: api.PartyB, Method: api.MethodManual}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.CreatePayment(context.Background(), connect.NewRequest(tt.req))
			expectCode(t, err, connect.CodeInvalidArgument)
		})
	}
}

func TestUpdateExpense(t *testing.T) {
	client, cleanup := setupTestServer(t, "")
	defer cleanup()
	ctx := context.Background()

	created, err := client.CreateExpense(ctx, connect.NewRequest(&api.CreateExpenseRequest{
		Payer: api.PartyB,
		LineItems: []*api.LineItem{
			{RawText: "AVCDO 5 CT", Label: "5 Avocados", Amount: 6, Owner: api.OwnerShared, SuggestedOwner: api.OwnerShared},
		},
		Notes: "weekly shop",
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	id := created.Msg.Expense.Id

	// Reassign the avocados to A and add a tip
	resp, err := client.UpdateExpense(ctx, connect.NewRequest(&api.UpdateExpenseRequest{
		ExpenseId: id,
		LineItems: &api.LineItems{Items: []*api.LineItem{
			{RawText: "AVCDO 5 CT", Label: "Avocados", Amount: 6, Owner: api.PartyA},
		}},
		Tip: ptr(1.5),
	}))
	if err != nil {
		t.Fatalf("UpdateExpense failed: %v", err)
	}

	expense := resp.Msg.Expense
	if expense.Payer != api.PartyB || expense.Notes != "weekly shop" {
		t.Errorf("expected untouched fields to survive, got %+v", expense)
	}
	if expense.TotalAmount != 7.5 {
		t.Errorf("expected total 7.5, got %v", expense.TotalAmount)
	}
	item := expense.LineItems[0]
	if item.Owner != api.PartyA || item.SuggestedOwner != api.OwnerShared {
		t.Errorf("expected owner A with suggested owner kept as Shared, got %+v", item)
	}
	if resp.Msg.Balance.OwedByA != 7.5 {
		t.Errorf("expected A to owe 7.5, got %+v", resp.Msg.Balance)
	}
}

func TestUpdateExpense_Errors(t *testing.T) {
	client, cleanup := setupTestServer(t, "")
	defer cleanup()
	ctx := context.Background()

	_, err := client.UpdateExpense(ctx, connect.NewRequest(&api.UpdateExpenseRequest{ExpenseId: "missing", Tax: ptr(1.0)}))
	expectCode(t, err, connect.CodeNotFound)

	_, err = client.UpdateExpense(ctx, connect.NewRequest(&api.UpdateExpenseRequest{}))
	expectCode(t, err, connect.CodeInvalidArgument)

	created, err := client.CreateExpense(ctx, connect.NewRequest(sharedExpense(api.PartyA, 10)))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	id := created.Msg.Expense.Id

	_, err = client.UpdateExpense(ctx, connect.NewRequest(&api.UpdateExpenseRequest{ExpenseId: id, Tax: ptr(-1.0)}))
	expectCode(t, err, connect.CodeInvalidArgument)

	_, err = client.UpdateExpense(ctx, connect.NewRequest(&api.UpdateExpenseRequest{
		ExpenseId: id,
		LineItems: &api.LineItems{},
	}))
	expectCode(t, err, connect.CodeInvalidArgument)

	if balance := getBalance(t, client); balance.OwedByB != 5 {
		t.Errorf("expected rejected updates to leave the balance alone, got %+v", balance)
	}
}

func createGroceries(t *testing.T, client apiconnect.LedgerServiceClient) string {
	t.Helper()
	resp, err := client.CreateExpense(context.Background(), connect.NewRequest(&api.CreateExpenseRequest{
		Payer: api.PartyA,
		LineItems: []*api.LineItem{
			{RawText: "MILK", Label: "Milk", Amount: 4, Owner: api.OwnerShared, SuggestedOwner: api.OwnerShared},
			{RawText: "BREAD", Label: "Bread", Amount: 3, Owner: api.OwnerShared, SuggestedOwner: api.OwnerShared},
		},
	}))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	return resp.Msg.Expense.Id
}

func TestUpdateExpense_RemovingItemKeepsSuggestedOwners(t *testing.T) {
	client, cleanup := setupTestServer(t, "")
	defer cleanup()
	id := createGroceries(t, client)

	// Drop MILK so BREAD moves to the first position, and add a hand-entered item
	resp, err := client.UpdateExpense(context.Background(), connect.NewRequest(&api.UpdateExpenseRequest{
		ExpenseId: id,
		LineItems: &api.LineItems{Items: []*api.LineItem{
			{RawText: "BREAD", Label: "Bread", Amount: 3, Owner: api.PartyB, SuggestedOwner: api.PartyB},
			{Label: "Bag fee", Amount: 0.1, Owner: api.PartyB, SuggestedOwner: api.PartyA},
		}},
	}))
	if err != nil {
		t.Fatalf("UpdateExpense failed: %v", err)
	}

	items := resp.Msg.Expense.LineItems
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].RawText != "BREAD" || items[0].Owner != api.PartyB || items[0].SuggestedOwner != api.OwnerShared {
		t.Errorf("expected BREAD owned by B and still suggested Shared, got %+v", items[0])
	}
	if items[1].SuggestedOwner != "" {
		t.Errorf("expected no suggested owner on a hand-entered item, got %+v", items[1])
	}

	list, err := client.ListExpenses(context.Background(), connect.NewRequest(&api.ListExpensesRequest{}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	if got := list.Msg.Expenses[0].LineItems[0].SuggestedOwner; got != api.OwnerShared {
		t.Errorf("expected stored suggested owner Shared, got %q", got)
	}
}

func TestUpdateExpense_RawTextIsImmutable(t *testing.T) {
	client, cleanup := setupTestServer(t, "")
	defer cleanup()
	ctx := context.Background()
	id := createGroceries(t, client)

	_, err := client.UpdateExpense(ctx, connect.NewRequest(&api.UpdateExpenseRequest{
		ExpenseId: id,
		LineItems: &api.LineItems{Items: []*api.LineItem{
			{RawText: "EDITED RAW", Label: "Milk", Amount: 4, Owner: api.OwnerShared},
			{RawText: "BREAD", Label: "Bread", Amount: 3, Owner: api.OwnerShared},
		}},
	}))
	expectCode(t, err, connect.CodeInvalidArgument)

	list, err := client.ListExpenses(ctx, connect.NewRequest(&api.ListExpensesRequest{}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	first := list.Msg.Expenses[0].LineItems[0]
	if first.RawText != "MILK" || first.SuggestedOwner != api.OwnerShared {
		t.Errorf("expected MILK untouched, got %+v", first)
	}
}

func TestDelete(t *testing.T) {
	client, cleanup := setupTestServer(t, "")
	defer cleanup()
	ctx := context.Background()

	created, err := client.CreateExpense(ctx, connect.NewRequest(sharedExpense(api.PartyA, 10)))
	if err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}
	paid, err := client.CreatePayment(ctx, connect.NewRequest(&api.CreatePaymentRequest{
		Amount: 2, From: api.PartyB, To: api.PartyA, Method: api.MethodManual,
	}))
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	resp, err := client.DeletePayment(ctx, connect.NewRequest(&api.DeletePaymentRequest{PaymentId: paid.Msg.Payment.Id}))
	if err != nil {
		t.Fatalf("DeletePayment failed: %v", err)
	}
	if resp.Msg.Balance.OwedByB != 5 {
		t.Errorf("expected B to owe 5 after removing payment, got %+v", resp.Msg.Balance)
	}

	delResp, err := client.DeleteExpense(ctx, connect.NewRequest(&api.DeleteExpenseRequest{ExpenseId: created.Msg.Expense.Id}))
	if err != nil {
		t.Fatalf("DeleteExpense failed: %v", err)
	}
	if !delResp.Msg.Balance.Settled {
		t.Errorf("expected settled balance after deleting everything, got %+v", delResp.Msg.Balance)
	}

	_, err = client.DeleteExpense(ctx, connect.NewRequest(&api.DeleteExpenseRequest{ExpenseId: created.Msg.Expense.Id}))
	expectCode(t, err, connect.CodeNotFound)
	_, err = client.DeletePayment(ctx, connect.NewRequest(&api.DeletePaymentRequest{PaymentId: paid.Msg.Payment.Id}))
	expectCode(t, err, connect.CodeNotFound)
}

func TestListExpenses_NewestFirst(t *testing.T) {
	client, cleanup := setupTestServer(t, "")
	defer cleanup()
	ctx := context.Background()

	for i, at := range []int64{1735725600, 1735898400, 1735812000} {
		req := sharedExpense(api.PartyA, float64(i+1))
		req.OccurredAt = ptr(at)
		if _, err := client.CreateExpense(ctx, connect.NewRequest(req)); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
	}

	resp, err := client.ListExpenses(ctx, connect.NewRequest(&api.ListExpensesRequest{}))
	if err != nil {
		t.Fatalf("ListExpenses failed: %v", err)
	}
	got := resp.Msg.Expenses
	if len(got) != 3 {
		t.Fatalf("expected 3 expenses, got %d", len(got))
	}
	want := []int64{1735898400, 1735812000, 1735725600}
	for i := range want {
		if got[i].OccurredAt != want[i] {
			t.Errorf("position %d: expected occurred_at %d, got %d", i, want[i], got[i].OccurredAt)
		}
	}
}

func TestSettleUp_DeepLink(t *testing.T) {
	publisher := &recordingPublisher{}
	client, cleanup := setupTestServer(t, models.PartyA, WithPublisher(publisher))
	defer cleanup()
	ctx := context.Background()

	first := sharedExpense(api.PartyA, 10)
	first.OccurredAt = ptr(int64(1735812000)) // Jan 2 2025
	second := sharedExpense(api.PartyA, 15)
	second.OccurredAt = ptr(int64(1736071200)) // Jan 5 2025
	var ids []string
	for _, req := range []*api.CreateExpenseRequest{first, second} {
		resp, err := client.CreateExpense(ctx, connect.NewRequest(req))
		if err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}
		ids = append(ids, resp.Msg.Expense.Id)
	}

	resp, err := client.SettleUp(ctx, connect.NewRequest(&api.SettleUpRequest{Method: api.MethodAppTransferA}))
	if err != nil {
		t.Fatalf("SettleUp failed: %v", err)
	}

	payment := resp.Msg.Payment
	if payment.From != api.PartyB || payment.To != api.PartyA || payment.Amount != 12.5 {
		t.Errorf("expected B to pay A 12.5, got %+v", payment)
	}
	if len(payment.RelatedExpenseIds) != 2 {
		t.Errorf("expected both expenses to be related, got %v", payment.RelatedExpenseIds)
	}
	for _, id := range ids {
		found := false
		for _, related := range payment.RelatedExpenseIds {
			found = found || related == id
		}
		if !found {
			t.Errorf("expense %s missing from related expenses", id)
		}
	}

	// A is owed money, so A charges B
	if !strings.HasPrefix(resp.Msg.DeepLink, "venmo://paycharge?txn=charge&recipients=ben_q&amount=12.50&note=Divvy%20settlement") {
		t.Errorf("unexpected deep link %q", resp.Msg.DeepLink)
	}
	if !resp.Msg.Balance.Settled {
		t.Errorf("expected settled balance, got %+v", resp.Msg.Balance)
	}
	if balance := getBalance(t, client); !balance.Settled {
		t.Errorf("expected stored ledger to be settled, got %+v", balance)
	}

	kinds := publisher.kinds()
	want := []events.Kind{events.ExpenseCreated, events.ExpenseCreated, events.PaymentCreated}
	if len(kinds) != len(want) {
		t.Fatalf("expected events %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], kinds[i])
		}
	}
}

func TestSettleUp_ManualHasNoLink(t *testing.T) {
	client, cleanup := setupTestServer(t, "")
	defer cleanup()
	ctx := context.Background()

	if _, err := client.CreateExpense(ctx, connect.NewRequest(sharedExpense(api.PartyB, 8))); err != nil {
		t.Fatalf("CreateExpense failed: %v", err)
	}

	resp, err := client.SettleUp(ctx, connect.NewRequest(&api.SettleUpRequest{Actor: api.PartyA, Method: api.MethodManual}))
	if err != nil {
		t.Fatalf("SettleUp failed: %v", err)
	}
	if resp.Msg.DeepLink != "" {
		t.Errorf("expected no deep link for manual settlement, got %q", resp.Msg.DeepLink)
	}
	if resp.Msg.Payment.From != api.PartyA || resp.Msg.Payment.Amount != 4 {
		t.Errorf("expected A to pay 4, got %+v", resp.Msg.Payment)
	}
}

func TestSettleUp_Errors(t *testing.T) {
	client, cleanup := setupTestServer(t, "")
	defer cleanup()
	ctx := context.Background()

	_, err := client.SettleUp(ctx, connect.NewRequest(&api.SettleUpRequest{Actor: api.PartyA, Method: api.MethodManual}))
	expectCode(t, err, connect.CodeFailedPrecondition)

	_, err = client.SettleUp(ctx, connect.NewRequest(&api.SettleUpRequest{Method: api.MethodManual}))
	expectCode(t, err, connect.CodeInvalidArgument)

	_, err = client.SettleUp(ctx, connect.NewRequest(&api.SettleUpRequest{Actor: api.PartyA, Method: "cash"}))
	expectCode(t, err, connect.CodeInvalidArgument)
}

func TestActingPartyHeader_Rejected(t *testing.T) {
	client, cleanup := setupTestServer(t, models.Party("C"))
	defer cleanup()

	_, err := client.GetBalance(context.Background(), connect.NewRequest(&api.GetBalanceRequest{}))
	expectCode(t, err, connect.CodeInvalidArgument)
}

func TestAnalyzeReceipt(t *testing.T) {
	merchant := "Trader Joe's"
	analyzer := &fakeAnalyzer{analysis: &receipt.Analysis{
		Items: []receipt.Item{
			{RawText: "AVCDO 5 CT", Label: "5 Avocados", Amount: decimal.RequireFromString("6.99"), SuggestedOwner: models.OwnerShared},
			{RawText: "OAT MLK", Label: "Oat milk", Amount: decimal.RequireFromString("4.49"), SuggestedOwner: models.OwnerB},
		},
		Total:        decimal.RequireFromString("13.00"),
		MerchantName: &merchant,
	}}
	client, cleanup := setupTestServer(t, "", WithAnalyzer(analyzer))
	defer cleanup()

	resp, err := client.AnalyzeReceipt(context.Background(), connect.NewRequest(&api.AnalyzeReceiptRequest{
		Image: "aGVsbG8=", PayerIdentity: api.PartyA,
	}))
	if err != nil {
		t.Fatalf("AnalyzeReceipt failed: %v", err)
	}

	if len(resp.Msg.LineItems) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp.Msg.LineItems))
	}
	for _, item := range resp.Msg.LineItems {
		if item.Owner != item.SuggestedOwner {
			t.Errorf("expected owner to start as suggested owner, got %+v", item)
		}
	}
	if resp.Msg.MerchantName != merchant || resp.Msg.ReportedTotal != 13 {
		t.Errorf("unexpected receipt fields %+v", resp.Msg)
	}
	if resp.Msg.Warning == "" {
		t.Error("expected a warning when items do not add up to the total")
	}
}

func TestAnalyzeReceipt_ExtractionFailure(t *testing.T) {
	m := metrics.New()
	analyzer := &fakeAnalyzer{err: &receipt.ExtractionError{Reason: "timed out", Err: context.DeadlineExceeded}}
	client, cleanup := setupTestServer(t, "", WithAnalyzer(analyzer), WithMetrics(m))
	defer cleanup()

	_, err := client.AnalyzeReceipt(context.Background(), connect.NewRequest(&api.AnalyzeReceiptRequest{
		Image: "aGVsbG8=", PayerIdentity: api.PartyA,
	}))
	expectCode(t, err, connect.CodeUnavailable)

	var connectErr *connect.Error
	if !errors.As(err, &connectErr) || connectErr.Message() != receipt.UserMessage {
		t.Errorf("expected message %q, got %v", receipt.UserMessage, err)
	}
}

func TestAnalyzeReceipt_NotConfigured(t *testing.T) {
	client, cleanup := setupTestServer(t, "")
	defer cleanup()

	_, err := client.AnalyzeReceipt(context.Background(), connect.NewRequest(&api.AnalyzeReceiptRequest{
		Image: "aGVsbG8=", PayerIdentity: api.PartyA,
	}))
	expectCode(t, err, connect.CodeUnavailable)
}

// flakyStore fails ListPayments to simulate an unavailable backend.
type flakyStore struct {
	storage.Store
}

func (flakyStore) ListPayments(context.Context) ([]*models.Payment, error) {
	return nil, errors.New("connection refused")
}

func TestGetBalance_StoreFailure(t *testing.T) {
	tmp := t.TempDir() + "/divvy.db"
	store, err := sqlite.New(tmp)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	client, closeServer := serve(t, flakyStore{store}, "")
	defer closeServer()

	_, err = client.GetBalance(context.Background(), connect.NewRequest(&api.GetBalanceRequest{}))
	expectCode(t, err, connect.CodeUnavailable)
}
