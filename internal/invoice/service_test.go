package invoice

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
	"github.com/fkhayef/sharedexpenses/pkg/middleware"
)

func TestDeriveStatus(t *testing.T) {
	amount := decimal.NewFromInt(100)

	tests := []struct {
		paid string
		want Status
	}{
		{"0", StatusPending},
		{"0.01", StatusPartial},
		{"99.99", StatusPartial},
		{"100", StatusPaid},
		{"120", StatusPaid},
	}

	for _, tt := range tests {
		t.Run(tt.paid, func(t *testing.T) {
			if got := DeriveStatus(amount, decimal.RequireFromString(tt.paid)); got != tt.want {
				t.Errorf("DeriveStatus(100, %s) = %s, want %s", tt.paid, got, tt.want)
			}
		})
	}
}

func addPayment(t *testing.T, db *database.DB, userID, invoiceID int64, amount, status string) {
	t.Helper()
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO payments (user_id, invoice_id, payment_date, payment_type, amount_paid, status, reference)
		VALUES ($1, $2, '2024-02-01', 'cash', $3, $4, $5)`,
		userID, invoiceID, decimal.RequireFromString(amount), status, fmt.Sprintf("ref-%s-%s", amount, status))
	if err != nil {
		t.Fatalf("failed to add payment: %v", err)
	}
}

func TestService_ReconcileStatus(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	ana := dbtest.CreateUser(t, db, "ana@example.com", 0)

	log, _ := logtest.NewNullLogger()
	svc := NewService(NewRepository(db), log)

	inv, err := svc.Create(ctx, ana, &CreateInvoiceRequest{
		VendorName:  " Power Co ",
		Amount:      decimal.NewFromInt(100),
		InvoiceDate: "2024-01-31",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if inv.Status != StatusPending || inv.Currency != "UYU" || inv.VendorName != "Power Co" {
		t.Fatalf("created invoice = %+v", inv)
	}
	if got := inv.InvoiceDate.Format("2006-01-02"); got != "2024-01-31" {
		t.Errorf("invoice date = %s", got)
	}

	addPayment(t, db, ana, inv.ID, "40", "completed")
	addPayment(t, db, ana, inv.ID, "500", "pending")

	status, err := svc.ReconcileStatus(ctx, inv.ID)
	if err != nil {
		t.Fatalf("ReconcileStatus() error = %v", err)
	}
	if status != StatusPartial {
		t.Errorf("status = %s, want partial", status)
	}

	addPayment(t, db, ana, inv.ID, "60", "completed")
	for i := 0; i < 2; i++ {
		status, err = svc.ReconcileStatus(ctx, inv.ID)
		if err != nil || status != StatusPaid {
			t.Fatalf("ReconcileStatus() run %d = %s, %v; want paid", i+1, status, err)
		}
	}

	updated, err := svc.Update(ctx, inv.ID, ana, &UpdateInvoiceRequest{Amount: ptr(decimal.NewFromInt(150))})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Status != StatusPartial {
		t.Errorf("status after raising amount = %s, want partial", updated.Status)
	}

	stored, payments, err := svc.Get(ctx, inv.ID, ana)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Status != StatusPartial || len(payments) != 3 {
		t.Errorf("stored status = %s with %d payments, want partial with 3", stored.Status, len(payments))
	}

	if _, err := svc.ReconcileStatus(ctx, 999); !errors.Is(err, ErrInvoiceNotFound) {
		t.Errorf("ReconcileStatus(unknown) error = %v, want ErrInvoiceNotFound", err)
	}
}

func TestService_Ownership(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	ana := dbtest.CreateUser(t, db, "ana@example.com", 0)
	ben := dbtest.CreateUser(t, db, "ben@example.com", 0)

	log, _ := logtest.NewNullLogger()
	svc := NewService(NewRepository(db), log)

	inv, err := svc.Create(ctx, ana, &CreateInvoiceRequest{VendorName: "Water", Amount: decimal.NewFromInt(10), InvoiceDate: "2024-01-01"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.CheckOwner(ctx, inv.ID, ben); !errors.Is(err, ErrInvoiceNotFound) {
		t.Errorf("CheckOwner(other user) error = %v, want ErrInvoiceNotFound", err)
	}
	if _, _, err := svc.Get(ctx, inv.ID, ben); !errors.Is(err, ErrInvoiceNotFound) {
		t.Errorf("Get(other user) error = %v, want ErrInvoiceNotFound", err)
	}
	if err := svc.Delete(ctx, inv.ID, ben); !errors.Is(err, ErrInvoiceNotFound) {
		t.Errorf("Delete(other user) error = %v, want ErrInvoiceNotFound", err)
	}
	if err := svc.Delete(ctx, inv.ID, ana); err != nil {
		t.Errorf("Delete(owner) error = %v", err)
	}
}

func TestHandler_Invoices(t *testing.T) {
	db := dbtest.New(t)
	ana := dbtest.CreateUser(t, db, "ana@example.com", 0)
	ben := dbtest.CreateUser(t, db, "ben@example.com", 0)

	log, _ := logtest.NewNullLogger()
	router := chi.NewRouter()
	router.Use(middleware.TestUserMiddleware(ana))
	router.Mount("/invoices", NewHandler(NewService(NewRepository(db), log)).Routes())

	tests := []struct {
		name       string
		method     string
		path       string
		user       int64
		body       string
		wantStatus int
		wantInBody string
	}{
		{"create", http.MethodPost, "/invoices", ana, `{"vendor_name":"Gas","amount":"80.5","invoice_date":"2024-03-01","currency":"usd"}`, http.StatusCreated, `"currency":"USD"`},
		{"create zero amount", http.MethodPost, "/invoices", ana, `{"vendor_name":"Gas","amount":0,"invoice_date":"2024-03-01"}`, http.StatusBadRequest, "amount must be greater than 0"},
		{"create oversized amount", http.MethodPost, "/invoices", ana, `{"vendor_name":"Gas","amount":"10000000000","invoice_date":"2024-03-01"}`, http.StatusBadRequest, "amount must be less than 10000000000"},
		{"create bad date", http.MethodPost, "/invoices", ana, `{"vendor_name":"Gas","amount":5,"invoice_date":"01/03/2024"}`, http.StatusBadRequest, "invoice_date must be a date"},
		{"list", http.MethodGet, "/invoices", ana, "", http.StatusOK, `"total":1`},
		{"list by status", http.MethodGet, "/invoices?status=paid", ana, "", http.StatusOK, `"total":0`},
		{"list bad status", http.MethodGet, "/invoices?status=done", ana, "", http.StatusBadRequest, "status must be one of"},
		{"get", http.MethodGet, "/invoices/1", ana, "", http.StatusOK, `"vendor_name":"Gas"`},
		{"get as other user", http.MethodGet, "/invoices/1", ben, "", http.StatusNotFound, "invoice not found"},
		{"update", http.MethodPut, "/invoices/1", ana, `{"category":"utilities"}`, http.StatusOK, `"category":"utilities"`},
		{"delete", http.MethodDelete, "/invoices/1", ana, "", http.StatusOK, `"success":true`},
		{"get deleted", http.MethodGet, "/invoices/1", ana, "", http.StatusNotFound, "invoice not found"},
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

func ptr[T any](v T) *T { return &v }
