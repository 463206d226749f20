package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/api/v0", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	for _, base := range []string{"", "not a url", "/api/v0"} {
		if _, err := NewClient(Config{BaseURL: base}); err == nil {
			t.Errorf("NewClient(%q) expected error", base)
		}
	}
}

func TestFetchTransactions_Shapes(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantShape   PageShape
		wantTotal   string
		wantPending string
		wantCount   int
	}{
		{
			name:        "wrapped with string totals",
			body:        `{"total":"150.00","pending":"50.00","transactions":[{"id":1,"amount":"100.00","type":"income","due_date":"2024-05-01T00:00:00.000Z"}]}`,
			wantShape:   ShapeWrapped,
			wantTotal:   "150.00",
			wantPending: "50.00",
			wantCount:   1,
		},
		{
			name:        "wrapped with numeric totals",
			body:        `{"total":150.5,"pending":0,"transactions":[]}`,
			wantShape:   ShapeWrapped,
			wantTotal:   "150.5",
			wantPending: "0",
			wantCount:   0,
		},
		{
			name:        "wrapped with missing totals",
			body:        `{"transactions":[{"id":"7","amount":"1.00"}]}`,
			wantShape:   ShapeWrapped,
			wantTotal:   "0.00",
			wantPending: "0.00",
			wantCount:   1,
		},
		{
			name:        "bare list",
			body:        `[{"id":"a1","amount":"5.00"},{"id":2,"amount":"6.00"}]`,
			wantShape:   ShapeBareList,
			wantTotal:   "0.00",
			wantPending: "0.00",
			wantCount:   2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})

			page, err := c.FetchTransactions(context.Background(), nil)
			if err != nil {
				t.Fatalf("FetchTransactions failed: %v", err)
			}
			if page.Shape != tt.wantShape {
				t.Errorf("Shape = %q, want %q", page.Shape, tt.wantShape)
			}
			if page.Total != tt.wantTotal || page.Pending != tt.wantPending {
				t.Errorf("totals = %q/%q, want %q/%q", page.Total, page.Pending, tt.wantTotal, tt.wantPending)
			}
			if len(page.Transactions) != tt.wantCount {
				t.Errorf("got %d transactions, want %d", len(page.Transactions), tt.wantCount)
			}
		})
	}
}

func TestFetchTransactions_FallbackEquivalence(t *testing.T) {
	records := `[{"id":1,"amount":"100.00","type":"Invoice","invoice_items":[{"id":2,"amount":"40.00"}]}]`

	wrapped := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"total":"0.00","pending":"0.00","transactions":`+records+`}`)
	})
	bare := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, records)
	})

	a, err := wrapped.FetchTransactions(context.Background(), nil)
	if err != nil {
		t.Fatalf("wrapped fetch failed: %v", err)
	}
	b, err := bare.FetchTransactions(context.Background(), nil)
	if err != nil {
		t.Fatalf("bare fetch failed: %v", err)
	}

	ja, _ := json.Marshal(a.Transactions)
	jb, _ := json.Marshal(b.Transactions)
	if string(ja) != string(jb) {
		t.Errorf("decoded records differ:\n%s\n%s", ja, jb)
	}
	if a.Total != b.Total || a.Pending != b.Pending {
		t.Errorf("totals differ: %q/%q vs %q/%q", a.Total, a.Pending, b.Total, b.Pending)
	}
}

func TestFetchTransactions_RecordNormalization(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[
			{"id":12,"amount":"1.00","type":"INCOME"},
			{"id":"13","amount":"2.00","type":"refund"},
			{"id":14,"amount":"3.00"},
			{"amount":"4.00","category_id":5,"payment_method_id":null}
		]`)
	})

	page, err := c.FetchTransactions(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchTransactions failed: %v", err)
	}

	got := page.Transactions
	if got[0].ID != "12" || got[0].Kind() != "income" {
		t.Errorf("record 0 = %q/%q", got[0].ID, got[0].Kind())
	}
	if got[1].ID != "13" || got[1].Kind() != "expense" {
		t.Errorf("record 1 = %q/%q", got[1].ID, got[1].Kind())
	}
	if got[2].Type != "expense" {
		t.Errorf("missing type = %q, want expense", got[2].Type)
	}
	if got[3].ID != "" || got[3].CategoryID != "5" || got[3].PaymentMethodID != "" {
		t.Errorf("record 3 = %+v", got[3])
	}
}

func TestFetchTransactions_SendsFilter(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v0/transactions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `[]`)
	})

	_, err := c.FetchTransactions(context.Background(), &Filter{Month: 5, Year: 2024, CategoryID: "9"})
	if err != nil {
		t.Fatalf("FetchTransactions failed: %v", err)
	}
	if gotQuery != "category_id=9&month=5&year=2024" {
		t.Errorf("query = %q", gotQuery)
	}
}

type recordingArchiver struct {
	calls int
	err   error
}

func (a *recordingArchiver) ArchivePayload(ctx context.Context, op string, body []byte) (string, error) {
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	return "gs://bucket/payloads/" + op + ".json", nil
}

func TestFetchTransactions_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "non-2xx is rejected",
			status: http.StatusUnprocessableEntity,
			body:   `{"error":"bad"}`,
			check: func(t *testing.T, err error) {
				var rej *RemoteRejectedError
				if !errors.As(err, &rej) {
					t.Fatalf("expected RemoteRejectedError, got %v", err)
				}
				if rej.StatusCode != http.StatusUnprocessableEntity || !strings.Contains(rej.Body, "bad") {
					t.Errorf("unexpected rejection: %+v", rej)
				}
			},
		},
		{
			name:   "empty body",
			status: http.StatusOK,
			body:   "  ",
			check: func(t *testing.T, err error) {
				if !errors.Is(err, ErrEmptyResponse) {
					t.Errorf("expected ErrEmptyResponse, got %v", err)
				}
			},
		},
		{
			name:   "object without transactions",
			status: http.StatusOK,
			body:   `{"total":"1.00"}`,
			check: func(t *testing.T, err error) {
				var mal *MalformedPayloadError
				if !errors.As(err, &mal) {
					t.Fatalf("expected MalformedPayloadError, got %v", err)
				}
				if mal.Body != `{"total":"1.00"}` {
					t.Errorf("Body = %q", mal.Body)
				}
				if mal.ArchiveURI == "" {
					t.Error("expected archive URI to be set")
				}
			},
		},
		{
			name:   "null",
			status: http.StatusOK,
			body:   `null`,
			check: func(t *testing.T, err error) {
				var mal *MalformedPayloadError
				if !errors.As(err, &mal) {
					t.Fatalf("expected MalformedPayloadError, got %v", err)
				}
			},
		},
		{
			name:   "html",
			status: http.StatusOK,
			body:   `<html></html>`,
			check: func(t *testing.T, err error) {
				var mal *MalformedPayloadError
				if !errors.As(err, &mal) {
					t.Fatalf("expected MalformedPayloadError, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c, err := NewClient(Config{BaseURL: srv.URL, Archiver: &recordingArchiver{}})
			if err != nil {
				t.Fatalf("NewClient failed: %v", err)
			}

			_, err = c.FetchTransactions(context.Background(), nil)
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)
		})
	}
}

func TestFetchTransactions_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := NewClient(Config{BaseURL: url})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	_, err = c.FetchTransactions(context.Background(), nil)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestMalformed_ArchiverFailureKeepsError(t *testing.T) {
	arch := &recordingArchiver{err: errors.New("bucket gone")}
	c, err := NewClient(Config{BaseURL: "http://example.test", Archiver: arch})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}

	err = c.malformed(context.Background(), "op", []byte("x"), errors.New("bad"))
	var mal *MalformedPayloadError
	if !errors.As(err, &mal) {
		t.Fatalf("expected MalformedPayloadError, got %v", err)
	}
	if mal.ArchiveURI != "" || arch.calls != 1 {
		t.Errorf("ArchiveURI = %q, calls = %d", mal.ArchiveURI, arch.calls)
	}
}
