package expense

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/fkhayef/sharedexpenses/internal/database/dbtest"
	"github.com/fkhayef/sharedexpenses/pkg/middleware"
)

func TestHandler_Expenses(t *testing.T) {
	f := newFixture(t)
	ana := dbtest.CreateUser(t, f.db, "ana@example.com", 0)
	ben := dbtest.CreateUser(t, f.db, "ben@example.com", 0)
	cara := dbtest.CreateUser(t, f.db, "cara@example.com", 0)
	outsider := dbtest.CreateUser(t, f.db, "outsider@example.com", 0)
	groupID := dbtest.CreateGroup(t, f.db, ana, "equal")
	dbtest.AddMember(t, f.db, groupID, ben, "member", 0)
	dbtest.AddMember(t, f.db, groupID, cara, "member", 0)

	router := chi.NewRouter()
	router.Use(middleware.TestUserMiddleware(ana))
	router.Route("/groups", func(r chi.Router) {
		NewHandler(f.svc).Register(r)
	})

	base := fmt.Sprintf("/groups/%d/expenses", groupID)

	// The first expense gets id 1 and its splits ids 1 (ana), 2 (ben), 3 (cara).
	tests := []struct {
		name       string
		method     string
		path       string
		user       int64
		body       string
		wantStatus int
		wantInBody string
	}{
		{"create", http.MethodPost, base, ana, `{"description":"Dinner","amount":100,"expense_date":"2024-03-01"}`, http.StatusCreated, `"amount_owed":"33.34"`},
		{"create missing fields", http.MethodPost, base, ana, `{"amount":100}`, http.StatusBadRequest, "Missing required fields"},
		{"create bad amount", http.MethodPost, base, ana, `{"description":"x","amount":"-3","expense_date":"2024-03-01"}`, http.StatusBadRequest, "amount must be positive"},
		{"create oversized amount", http.MethodPost, base, ana, `{"description":"x","amount":"10000000000","expense_date":"2024-03-01"}`, http.StatusBadRequest, "amount must be less than 10000000000"},
		{"create bad interval", http.MethodPost, base, ana, `{"description":"x","amount":3,"expense_date":"2024-03-01","is_recurring":true,"recurrence_interval":"hourly"}`, http.StatusBadRequest, "recurrence_interval must be one of"},
		{"create as outsider", http.MethodPost, base, outsider, `{"description":"x","amount":3,"expense_date":"2024-03-01"}`, http.StatusForbidden, "You are not a member of this group"},
		{"create in unknown group", http.MethodPost, "/groups/999/expenses", ana, `{"description":"x","amount":3,"expense_date":"2024-03-01"}`, http.StatusNotFound, "group not found"},
		{"list", http.MethodGet, base, ben, "", http.StatusOK, `"total":1`},
		{"get", http.MethodGet, base + "/1", cara, "", http.StatusOK, `"description":"Dinner"`},
		{"get unknown", http.MethodGet, base + "/99", ana, "", http.StatusNotFound, "expense not found"},
		{"get bad id", http.MethodGet, base + "/abc", ana, "", http.StatusBadRequest, "Invalid expense ID"},
		{"pay without split", http.MethodPost, base + "/1/pay", ben, `{}`, http.StatusBadRequest, "splitId is required"},
		{"pay", http.MethodPost, base + "/1/pay", ben, `{"splitId":2}`, http.StatusOK, "Payment recorded successfully"},
		{"pay again", http.MethodPost, base + "/1/pay", ben, `{"splitId":2}`, http.StatusConflict, "already been paid"},
		{"pay for someone else", http.MethodPost, base + "/1/pay", ben, `{"splitId":3}`, http.StatusOK, `"user_id":` + fmt.Sprint(cara)},
		{"pay unknown split", http.MethodPost, base + "/1/pay", ben, `{"splitId":77}`, http.StatusNotFound, "split not found"},
		{"pay as outsider", http.MethodPost, base + "/1/pay", outsider, `{"splitId":2}`, http.StatusForbidden, "not a member"},
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
