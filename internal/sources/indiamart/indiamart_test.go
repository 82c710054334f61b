package indiamart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/sources"
)

func TestWindowOverlapsPreviousSync(t *testing.T) {
	last := time.Date(2026, 5, 4, 4, 30, 0, 0, time.UTC)
	now := time.Date(2026, 5, 4, 5, 0, 0, 0, time.UTC)

	start, end := Window(&last, now)
	if start != "04-May-2026 09:55:00" {
		t.Fatalf("unexpected start %q", start)
	}
	if end != "04-May-2026 10:30:00" {
		t.Fatalf("unexpected end %q", end)
	}

	if s, e := Window(nil, now); s != "" || e != "" {
		t.Fatal("first sync must not send a window")
	}
}

func TestFetchReturnsInquiries(t *testing.T) {
	var got listingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"CODE":200,"STATUS":"SUCCESS","TOTAL_RECORDS":1,"RESPONSE":[{"UNIQUE_QUERY_ID":2712345,"SENDER_NAME":"Meera","SENDER_MOBILE":"+91-9123456780"}]}`))
	}))
	defer srv.Close()

	items, err := NewClient(srv.URL).Fetch(context.Background(), Credentials{Mobile: "9000000000", Key: "k"}, nil, time.Now())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one inquiry, got %d", len(items))
	}
	if got.Mobile != "9000000000" || got.Key != "k" || got.StartTime != "" {
		t.Fatalf("unexpected request %+v", got)
	}

	envs, err := Envelopes(items)
	if err != nil {
		t.Fatalf("envelopes: %v", err)
	}
	if envs[0].MessageID != "IM_2712345" {
		t.Fatalf("unexpected message id %q", envs[0].MessageID)
	}
}

func TestFetchTreatsNoDataAsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"CODE":"404","STATUS":"FAILURE","MESSAGE":"No Data Found for the given time range"}`))
	}))
	defer srv.Close()

	items, err := NewClient(srv.URL).Fetch(context.Background(), Credentials{}, nil, time.Now())
	if err != nil || len(items) != 0 {
		t.Fatalf("expected empty success, got %v %v", items, err)
	}
}

func TestFetchReportsAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"CODE":429,"STATUS":"FAILURE","MESSAGE":"It is advised to hit this API once in every 5 minutes"}`))
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL).Fetch(context.Background(), Credentials{}, nil, time.Now()); err == nil {
		t.Fatal("expected api error")
	}
}

func TestAdapterMapsInquiry(t *testing.T) {
	inbound, err := Adapter{}.Parse(context.Background(), envelopeOf(t, `{
		"UNIQUE_QUERY_ID": "555",
		"SENDER_NAME": "Meera",
		"SENDER_MOBILE": "+91-9123456780",
		"SENDER_EMAIL": "meera@example.com",
		"SUBJECT": "Requirement for steel racks",
		"QUERY_MESSAGE": "Need 20 units",
		"SENDER_COMPANY": "Meera Traders",
		"SENDER_CITY": "Pune",
		"SENDER_STATE": "Maharashtra"
	}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rec := inbound[0].Record
	if rec.SourceLeadID != "IM_555" || inbound[0].MessageID != "IM_555" {
		t.Fatalf("unexpected ids %+v", inbound[0])
	}
	if rec.Phone != "+91-9123456780" || rec.Name != "Meera" {
		t.Fatalf("unexpected record %+v", rec)
	}
	for key, want := range map[string]string{
		domain.ExtSubject: "Requirement for steel racks",
		domain.ExtCompany: "Meera Traders",
		domain.ExtCity:    "Pune",
		domain.ExtState:   "Maharashtra",
	} {
		if got, _ := rec.Extension.String(key); got != want {
			t.Fatalf("%s: got %q want %q", key, got, want)
		}
	}
}

func envelopeOf(t *testing.T, body string) sources.Envelope {
	t.Helper()
	envs, err := Envelopes([]json.RawMessage{json.RawMessage(body)})
	if err != nil {
		t.Fatalf("envelopes: %v", err)
	}
	return envs[0]
}
