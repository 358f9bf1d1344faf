// Package apiconnect provides Connect handlers and clients for divvy.v1.LedgerService.
package apiconnect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/divvy/pkg/api"
)

// LedgerServiceName is the fully-qualified name of the LedgerService service.
const LedgerServiceName = "divvy.v1.LedgerService"

// Procedure paths for each LedgerService RPC.
const (
	LedgerServiceCreateExpenseProcedure  = "/divvy.v1.LedgerService/CreateExpense"
	LedgerServiceUpdateExpenseProcedure  = "/divvy.v1.LedgerService/UpdateExpense"
	LedgerServiceDeleteExpenseProcedure  = "/divvy.v1.LedgerService/DeleteExpense"
	LedgerServiceListExpensesProcedure   = "/divvy.v1.LedgerService/ListExpenses"
	LedgerServiceCreatePaymentProcedure  = "/divvy.v1.LedgerService/CreatePayment"
	LedgerServiceDeletePaymentProcedure  = "/divvy.v1.LedgerService/DeletePayment"
	LedgerServiceListPaymentsProcedure   = "/divvy.v1.LedgerService/ListPayments"
	LedgerServiceGetBalanceProcedure     = "/divvy.v1.LedgerService/GetBalance"
	LedgerServiceSettleUpProcedure       = "/divvy.v1.LedgerService/SettleUp"
	LedgerServiceAnalyzeReceiptProcedure = "/divvy.v1.LedgerService/AnalyzeReceipt"
)

// LedgerServiceClient is a client for the divvy.v1.LedgerService service.
type LedgerServiceClient interface {
	CreateExpense(context.Context, *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error)
	UpdateExpense(context.Context, *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error)
	DeleteExpense(context.Context, *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error)
	CreatePayment(context.Context, *connect.Request[api.CreatePaymentRequest]) (*connect.Response[api.CreatePaymentResponse], error)
	DeletePayment(context.Context, *connect.Request[api.DeletePaymentRequest]) (*connect.Response[api.DeletePaymentResponse], error)
	ListPayments(context.Context, *connect.Request[api.ListPaymentsRequest]) (*connect.Response[api.ListPaymentsResponse], error)
	GetBalance(context.Context, *connect.Request[api.GetBalanceRequest]) (*connect.Response[api.GetBalanceResponse], error)
	SettleUp(context.Context, *connect.Request[api.SettleUpRequest]) (*connect.Response[api.SettleUpResponse], error)
	AnalyzeReceipt(context.Context, *connect.Request[api.AnalyzeReceiptRequest]) (*connect.Response[api.AnalyzeReceiptResponse], error)
}

// NewLedgerServiceClient constructs a client for the divvy.v1.LedgerService service.
// The base URL is the scheme and host, e.g. http://localhost:8080.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(api.JSONCodec{})}, opts...)
	return &ledgerServiceClient{
		createExpense: connect.NewClient[api.CreateExpenseRequest, api.CreateExpenseResponse](
			httpClient,
			baseURL+LedgerServiceCreateExpenseProcedure,
			opts...,
		),
		updateExpense: connect.NewClient[api.UpdateExpenseRequest, api.UpdateExpenseResponse](
			httpClient,
			baseURL+LedgerServiceUpdateExpenseProcedure,
			opts...,
		),
		deleteExpense: connect.NewClient[api.DeleteExpenseRequest, api.DeleteExpenseResponse](
			httpClient,
			baseURL+LedgerServiceDeleteExpenseProcedure,
			opts...,
		),
		listExpenses: connect.NewClient[api.ListExpensesRequest, api.ListExpensesResponse](
			httpClient,
			baseURL+LedgerServiceListExpensesProcedure,
			opts...,
		),
		createPayment: connect.NewClient[api.CreatePaymentRequest, api.CreatePaymentResponse](
			httpClient,
			baseURL+LedgerServiceCreatePaymentProcedure,
			opts...,
		),
		deletePayment: connect.NewClient[api.DeletePaymentRequest, api.DeletePaymentResponse](
			httpClient,
			baseURL+LedgerServiceDeletePaymentProcedure,
			opts...,
		),
		listPayments: connect.NewClient[api.ListPaymentsRequest, api.ListPaymentsResponse](
			httpClient,
			baseURL+LedgerServiceListPaymentsProcedure,
			opts...,
		),
		getBalance: connect.NewClient[api.GetBalanceRequest, api.GetBalanceResponse](
			httpClient,
			baseURL+LedgerServiceGetBalanceProcedure,
			opts...,
		),
		settleUp: connect.NewClient[api.SettleUpRequest, api.SettleUpResponse](
			httpClient,
			baseURL+LedgerServiceSettleUpProcedure,
			opts...,
		),
		analyzeReceipt: connect.NewClient[api.AnalyzeReceiptRequest, api.AnalyzeReceiptResponse](
			httpClient,
			baseURL+LedgerServiceAnalyzeReceiptProcedure,
			opts...,
		),
	}
}

type ledgerServiceClient struct {
	createExpense  *connect.Client[api.CreateExpenseRequest, api.CreateExpenseResponse]
	updateExpense  *connect.Client[api.UpdateExpenseRequest, api.UpdateExpenseResponse]
	deleteExpense  *connect.Client[api.DeleteExpenseRequest, api.DeleteExpenseResponse]
	listExpenses   *connect.Client[api.ListExpensesRequest, api.ListExpensesResponse]
	createPayment  *connect.Client[api.CreatePaymentRequest, api.CreatePaymentResponse]
	deletePayment  *connect.Client[api.DeletePaymentRequest, api.DeletePaymentResponse]
	listPayments   *connect.Client[api.ListPaymentsRequest, api.ListPaymentsResponse]
	getBalance     *connect.Client[api.GetBalanceRequest, api.GetBalanceResponse]
	settleUp       *connect.Client[api.SettleUpRequest, api.SettleUpResponse]
	analyzeReceipt *connect.Client[api.AnalyzeReceiptRequest, api.AnalyzeReceiptResponse]
}

func (c *ledgerServiceClient) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	return c.createExpense.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) UpdateExpense(ctx context.Context, req *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error) {
	return c.updateExpense.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	return c.deleteExpense.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) CreatePayment(ctx context.Context, req *connect.Request[api.CreatePaymentRequest]) (*connect.Response[api.CreatePaymentResponse], error) {
	return c.createPayment.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) DeletePayment(ctx context.Context, req *connect.Request[api.DeletePaymentRequest]) (*connect.Response[api.DeletePaymentResponse], error) {
	return c.deletePayment.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) ListPayments(ctx context.Context, req *connect.Request[api.ListPaymentsRequest]) (*connect.Response[api.ListPaymentsResponse], error) {
	return c.listPayments.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) GetBalance(ctx context.Context, req *connect.Request[api.GetBalanceRequest]) (*connect.Response[api.GetBalanceResponse], error) {
	return c.getBalance.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) SettleUp(ctx context.Context, req *connect.Request[api.SettleUpRequest]) (*connect.Response[api.SettleUpResponse], error) {
	return c.settleUp.CallUnary(ctx, req)
}

func (c *ledgerServiceClient) AnalyzeReceipt(ctx context.Context, req *connect.Request[api.AnalyzeReceiptRequest]) (*connect.Response[api.AnalyzeReceiptResponse], error) {
	return c.analyzeReceipt.CallUnary(ctx, req)
}

// LedgerServiceHandler is an implementation of the divvy.v1.LedgerService service.
type LedgerServiceHandler interface {
	// CreateExpense validates and records an expense.
	CreateExpense(context.Context, *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error)

	// UpdateExpense applies a partial correction to an expense. The payer cannot change.
	UpdateExpense(context.Context, *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error)

	// DeleteExpense removes an expense recorded by mistake.
	DeleteExpense(context.Context, *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error)

	// ListExpenses returns every expense, newest first.
	ListExpenses(context.Context, *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error)

	// CreatePayment records a settlement payment.
	CreatePayment(context.Context, *connect.Request[api.CreatePaymentRequest]) (*connect.Response[api.CreatePaymentResponse], error)

	// DeletePayment removes a payment recorded by mistake.
	DeletePayment(context.Context, *connect.Request[api.DeletePaymentRequest]) (*connect.Response[api.DeletePaymentResponse], error)

	// ListPayments returns every payment, newest first.
	ListPayments(context.Context, *connect.Request[api.ListPaymentsRequest]) (*connect.Response[api.ListPaymentsResponse], error)

	// GetBalance recomputes the net balance from all records.
	GetBalance(context.Context, *connect.Request[api.GetBalanceRequest]) (*connect.Response[api.GetBalanceResponse], error)

	// SettleUp records a payment for the full balance and returns the payment-app link, if any.
	SettleUp(context.Context, *connect.Request[api.SettleUpRequest]) (*connect.Response[api.SettleUpResponse], error)

	// AnalyzeReceipt extracts draft line items from a receipt photo.
	AnalyzeReceipt(context.Context, *connect.Request[api.AnalyzeReceiptRequest]) (*connect.Response[api.AnalyzeReceiptResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(api.JSONCodec{})}, opts...)
	createExpenseHandler := connect.NewUnaryHandler(
		LedgerServiceCreateExpenseProcedure,
		svc.CreateExpense,
		opts...,
	)
	updateExpenseHandler := connect.NewUnaryHandler(
		LedgerServiceUpdateExpenseProcedure,
		svc.UpdateExpense,
		opts...,
	)
	deleteExpenseHandler := connect.NewUnaryHandler(
		LedgerServiceDeleteExpenseProcedure,
		svc.DeleteExpense,
		opts...,
	)
	listExpensesHandler := connect.NewUnaryHandler(
		LedgerServiceListExpensesProcedure,
		svc.ListExpenses,
		opts...,
	)
	createPaymentHandler := connect.NewUnaryHandler(
		LedgerServiceCreatePaymentProcedure,
		svc.CreatePayment,
		opts...,
	)
	deletePaymentHandler := connect.NewUnaryHandler(
		LedgerServiceDeletePaymentProcedure,
		svc.DeletePayment,
		opts...,
	)
	listPaymentsHandler := connect.NewUnaryHandler(
		LedgerServiceListPaymentsProcedure,
		svc.ListPayments,
		opts...,
	)
	getBalanceHandler := connect.NewUnaryHandler(
		LedgerServiceGetBalanceProcedure,
		svc.GetBalance,
		opts...,
	)
	settleUpHandler := connect.NewUnaryHandler(
		LedgerServiceSettleUpProcedure,
		svc.SettleUp,
		opts...,
	)
	analyzeReceiptHandler := connect.NewUnaryHandler(
		LedgerServiceAnalyzeReceiptProcedure,
		svc.AnalyzeReceipt,
		opts...,
	)
	return "/divvy.v1.LedgerService/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case LedgerServiceCreateExpenseProcedure:
			createExpenseHandler.ServeHTTP(w, r)
		case LedgerServiceUpdateExpenseProcedure:
			updateExpenseHandler.ServeHTTP(w, r)
		case LedgerServiceDeleteExpenseProcedure:
			deleteExpenseHandler.ServeHTTP(w, r)
		case LedgerServiceListExpensesProcedure:
			listExpensesHandler.ServeHTTP(w, r)
		case LedgerServiceCreatePaymentProcedure:
			createPaymentHandler.ServeHTTP(w, r)
		case LedgerServiceDeletePaymentProcedure:
			deletePaymentHandler.ServeHTTP(w, r)
		case LedgerServiceListPaymentsProcedure:
			listPaymentsHandler.ServeHTTP(w, r)
		case LedgerServiceGetBalanceProcedure:
			getBalanceHandler.ServeHTTP(w, r)
		case LedgerServiceSettleUpProcedure:
			settleUpHandler.ServeHTTP(w, r)
		case LedgerServiceAnalyzeReceiptProcedure:
			analyzeReceiptHandler.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// UnimplementedLedgerServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedLedgerServiceHandler struct{}

func (UnimplementedLedgerServiceHandler) CreateExpense(context.Context, *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("divvy.v1.LedgerService.CreateExpense is not implemented"))
}

func (UnimplementedLedgerServiceHandler) UpdateExpense(context.Context, *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("divvy.v1.LedgerService.UpdateExpense is not implemented"))
}

func (UnimplementedLedgerServiceHandler) DeleteExpense(context.Context, *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("divvy.v1.LedgerService.DeleteExpense is not implemented"))
}

func (UnimplementedLedgerServiceHandler) ListExpenses(context.Context, *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("divvy.v1.LedgerService.ListExpenses is not implemented"))
}

func (UnimplementedLedgerServiceHandler) CreatePayment(context.Context, *connect.Request[api.CreatePaymentRequest]) (*connect.Response[api.CreatePaymentResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("divvy.v1.LedgerService.CreatePayment is not implemented"))
}

func (UnimplementedLedgerServiceHandler) DeletePayment(context.Context, *connect.Request[api.DeletePaymentRequest]) (*connect.Response[api.DeletePaymentResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("divvy.v1.LedgerService.DeletePayment is not implemented"))
}

func (UnimplementedLedgerServiceHandler) ListPayments(context.Context, *connect.Request[api.ListPaymentsRequest]) (*connect.Response[api.ListPaymentsResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("divvy.v1.LedgerService.ListPayments is not implemented"))
}

func (UnimplementedLedgerServiceHandler) GetBalance(context.Context, *connect.Request[api.GetBalanceRequest]) (*connect.Response[api.GetBalanceResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("divvy.v1.LedgerService.GetBalance is not implemented"))
}

func (UnimplementedLedgerServiceHandler) SettleUp(context.Context, *connect.Request[api.SettleUpRequest]) (*connect.Response[api.SettleUpResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("divvy.v1.LedgerService.SettleUp is not implemented"))
}

func (UnimplementedLedgerServiceHandler) AnalyzeReceipt(context.Context, *connect.Request[api.AnalyzeReceiptRequest]) (*connect.Response[api.AnalyzeReceiptResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("divvy.v1.LedgerService.AnalyzeReceipt is not implemented"))
}
