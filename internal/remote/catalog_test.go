package remote

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/dvloznov/ledger-sync/internal/domain"
)

func TestListCategories_NameThreshold(t *testing.T) {
	tests := []struct {
		name     string
		search   string
		wantName string
	}{
		{"short name is dropped", "fo", ""},
		{"three characters are sent", "foo", "foo"},
		{"whitespace is trimmed", "  food ", "food"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotName string
			var hadName bool
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, hadName = r.URL.Query()["name"]
				gotName = r.URL.Query().Get("name")
				_, _ = io.WriteString(w, `[{"id":1,"name":"Food","is_predefined":true}]`)
			})

			cats, err := c.ListCategories(context.Background(), tt.search)
			if err != nil {
				t.Fatalf("ListCategories failed: %v", err)
			}
			if gotName != tt.wantName || hadName != (tt.wantName != "") {
				t.Errorf("name param = %q (present %v), want %q", gotName, hadName, tt.wantName)
			}
			if len(cats) != 1 || cats[0].RemoteID != "1" || !cats[0].IsPredefined {
				t.Errorf("unexpected categories: %+v", cats)
			}
		})
	}
}

func TestCreateCategory(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v0/transaction_categories" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"id":"c1","name":"Rent","parent_id":4}`)
	})

	cat, err := c.CreateCategory(context.Background(), "Rent", "4")
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	if cat.RemoteID != "c1" || cat.ParentID != "4" {
		t.Errorf("unexpected category: %+v", cat)
	}

	if _, err := c.CreateCategory(context.Background(), "", ""); err == nil {
		t.Error("expected error for empty name")
	}
}

func TestListPaymentMethods_BalanceFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"id":1,"name":"Card","type":"CreditAccount","initial_balance":"100.50"},
			{"id":2,"name":"Cash","type":"Wallet","balance":20},
			{"id":3,"name":"Empty","type":"DebitAccount"}
		]`)
	})

	methods, err := c.ListPaymentMethods(context.Background())
	if err != nil {
		t.Fatalf("ListPaymentMethods failed: %v", err)
	}
	if len(methods) != 3 {
		t.Fatalf("got %d methods", len(methods))
	}
	if methods[0].Type != domain.PaymentMethodCredit || methods[0].InitialBalance.String() != "100.5" {
		t.Errorf("method 0 = %+v", methods[0])
	}
	if methods[1].Type != domain.PaymentMethodDebit || methods[1].InitialBalance.String() != "20" {
		t.Errorf("method 1 = %+v", methods[1])
	}
	if !methods[2].InitialBalance.IsZero() {
		t.Errorf("method 2 balance = %s", methods[2].InitialBalance)
	}
}
