package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/fkhayef/sharedexpenses/internal/database"
	"github.com/fkhayef/sharedexpenses/internal/database/dbtest"
	"github.com/fkhayef/sharedexpenses/internal/invoice"
	"github.com/fkhayef/sharedexpenses/pkg/middleware"
)

type fixture struct {
	db       *database.DB
	payments *Service
	invoices *invoice.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.New(t)
	log, _ := logtest.NewNullLogger()
	invoices := invoice.NewService(invoice.NewRepository(db), log)
	return &fixture{
		db:       db,
		payments: NewService(NewRepository(db), invoices, log),
		invoices: invoices,
	}
}

func (f *fixture) invoiceStatus(t *testing.T, id, userID int64) invoice.Status {
	t.Helper()
	inv, _, err := f.invoices.Get(context.Background(), id, userID)
	if err != nil {
		t.Fatalf("failed to get invoice: %v", err)
	}
	return inv.Status
}

func TestService_CreateReconcilesInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := dbtest.CreateUser(t, f.db, "ana@example.com", 0)

	inv, err := f.invoices.Create(ctx, ana, &invoice.CreateInvoiceRequest{
		VendorName: "Rent", Amount: decimal.NewFromInt(1000), InvoiceDate: "2024-01-01",
	})
	if err != nil {
		t.Fatalf("invoice Create() error = %v", err)
	}

	pending, err := f.payments.Create(ctx, ana, &CreatePaymentRequest{
		InvoiceID: &inv.ID, PaymentDate: "2024-01-05", PaymentType: TypeTransfer,
		AmountPaid: decimal.NewFromInt(1000), Status: StatusPending,
	})
	if err != nil {
		t.Fatalf("Create(pending) error = %v", err)
	}
	if got := f.invoiceStatus(t, inv.ID, ana); got != invoice.StatusPending {
		t.Errorf("after pending payment status = %s, want pending", got)
	}

	first, err := f.payments.Create(ctx, ana, &CreatePaymentRequest{
		InvoiceID: &inv.ID, PaymentDate: "2024-01-06", PaymentType: TypeCash,
		AmountPaid: decimal.NewFromInt(400),
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if first.Status != StatusCompleted || first.Reference == "" {
		t.Errorf("default status/reference = %s/%q", first.Status, first.Reference)
	}
	if got := f.invoiceStatus(t, inv.ID, ana); got != invoice.StatusPartial {
		t.Errorf("after partial payment status = %s, want partial", got)
	}

	completed := StatusCompleted
	if _, err := f.payments.Update(ctx, pending.ID, ana, &UpdatePaymentRequest{Status: &completed}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got := f.invoiceStatus(t, inv.ID, ana); got != invoice.StatusPaid {
		t.Errorf("after completing payment status = %s, want paid", got)
	}

	if err := f.payments.Delete(ctx, pending.ID, ana); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if got := f.invoiceStatus(t, inv.ID, ana); got != invoice.StatusPartial {
		t.Errorf("after deleting payment status = %s, want partial", got)
	}
}

func TestService_CreateRejectsForeignInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := dbtest.CreateUser(t, f.db, "ana@example.com", 0)
	ben := dbtest.CreateUser(t, f.db, "ben@example.com", 0)

	inv, err := f.invoices.Create(ctx, ana, &invoice.CreateInvoiceRequest{
		VendorName: "Rent", Amount: decimal.NewFromInt(10), InvoiceDate: "2024-01-01",
	})
	if err != nil {
		t.Fatalf("invoice Create() error = %v", err)
	}

	_, err = f.payments.Create(ctx, ben, &CreatePaymentRequest{
		InvoiceID: &inv.ID, PaymentDate: "2024-01-05", PaymentType: TypeCash, AmountPaid: decimal.NewFromInt(10),
	})
	if !errors.Is(err, invoice.ErrInvoiceNotFound) {
		t.Errorf("Create() against foreign invoice error = %v, want ErrInvoiceNotFound", err)
	}
}

func TestService_RecordSplitPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ben := dbtest.CreateUser(t, f.db, "ben@example.com", 0)

	p, err := f.payments.RecordSplitPayment(ctx, ben, decimal.RequireFromString("33.33"), "Dinner")
	if err != nil {
		t.Fatalf("RecordSplitPayment() error = %v", err)
	}
	if p.PaymentType != TypeGroupExpense || p.Status != StatusCompleted || p.InvoiceID != nil {
		t.Errorf("audit payment = %+v", p)
	}
	if !p.AmountPaid.Equal(decimal.RequireFromString("33.33")) {
		t.Errorf("amount = %s, want 33.33", p.AmountPaid)
	}
	if p.Notes == nil || !strings.Contains(*p.Notes, "Dinner") {
		t.Errorf("notes = %v", p.Notes)
	}

	other, err := f.payments.RecordSplitPayment(ctx, ben, decimal.NewFromInt(1), "Taxi")
	if err != nil {
		t.Fatalf("RecordSplitPayment() error = %v", err)
	}
	if other.Reference == p.Reference {
		t.Error("audit payments share a reference")
	}
}

func TestHandler_Payments(t *testing.T) {
	f := newFixture(t)
	ana := dbtest.CreateUser(t, f.db, "ana@example.com", 0)
	ben := dbtest.CreateUser(t, f.db, "ben@example.com", 0)

	router := chi.NewRouter()
	router.Use(middleware.TestUserMiddleware(ana))
	router.Mount("/payments", NewHandler(f.payments).Routes())

	tests := []struct {
		name       string
		method     string
		path       string
		user       int64
		body       string
		wantStatus int
		wantInBody string
	}{
		{"create", http.MethodPost, "/payments", ana, `{"payment_date":"2024-02-01","payment_type":"card","amount_paid":"12.5"}`, http.StatusCreated, `"payment_type":"card"`},
		{"create oversized amount", http.MethodPost, "/payments", ana, `{"payment_date":"2024-02-01","payment_type":"cash","amount_paid":"10000000000"}`, http.StatusBadRequest, "amount_paid must be less than 10000000000"},
		{"create audit type", http.MethodPost, "/payments", ana, `{"payment_date":"2024-02-01","payment_type":"group_expense","amount_paid":1}`, http.StatusBadRequest, "payment_type must be one of"},
		{"create unknown invoice", http.MethodPost, "/payments", ana, `{"invoice_id":99,"payment_date":"2024-02-01","payment_type":"cash","amount_paid":1}`, http.StatusNotFound, "invoice not found"},
		{"list", http.MethodGet, "/payments", ana, "", http.StatusOK, `"total":1`},
		{"get as other user", http.MethodGet, "/payments/1", ben, "", http.StatusNotFound, "payment not found"},
		{"update", http.MethodPut, "/payments/1", ana, `{"status":"failed"}`, http.StatusOK, `"status":"failed"`},
		{"update bad status", http.MethodPut, "/payments/1", ana, `{"status":"lost"}`, http.StatusBadRequest, "status must be one of"},
		{"delete", http.MethodDelete, "/payments/1", ana, "", http.StatusOK, `"success":true`},
		{"delete again", http.MethodDelete, "/payments/1", ana, "", http.StatusNotFound, "payment not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("X-Test-User-ID", fmt.Sprint(tt.user))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if !strings.Contains(rec.Body.String(), tt.wantInBody) {
				t.Errorf("body %s does not contain %q", rec.Body.String(), tt.wantInBody)
			}
		})
	}
}
