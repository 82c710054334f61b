package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	apphttp "leadintake_backend/internal/http"
	"leadintake_backend/internal/leads/assignment"
	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/ingestion"
	"leadintake_backend/internal/leads/leadstest"
	"leadintake_backend/internal/ledger"
	"leadintake_backend/internal/sources"
	"leadintake_backend/internal/sources/facebook"
	"leadintake_backend/platform/httpkit"
	"leadintake_backend/platform/logger"
	"leadintake_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const testKey = "whk_test"

type memoryKeys struct {
	byHash  map[string]APIKey
	created []APIKey
}

func (m *memoryKeys) GetByHash(_ context.Context, keyHash string) (APIKey, error) {
	key, ok := m.byHash[keyHash]
	if !ok {
		return APIKey{}, ErrAPIKeyNotFound
	}
	return key, nil
}

func (m *memoryKeys) Create(_ context.Context, tenantID int64, name, keyHash, keyPrefix string, campaignID *int64) (APIKey, error) {
	key := APIKey{ID: int64(len(m.created) + 1), TenantID: tenantID, Name: name, KeyHash: keyHash, KeyPrefix: keyPrefix, CampaignID: campaignID, IsActive: true}
	m.created = append(m.created, key)
	return key, nil
}

func (m *memoryKeys) ListByTenant(context.Context, int64) ([]APIKey, error) {
	return m.created, nil
}

func (m *memoryKeys) Revoke(context.Context, int64, int64) error {
	return ErrAPIKeyNotFound
}

type stubFacebook struct {
	err   error
	calls int
}

func (s *stubFacebook) HandleWebhook(_ context.Context, payload facebook.WebhookPayload) (facebook.Summary, error) {
	s.calls++
	return facebook.Summary{Received: len(payload.Leads())}, s.err
}

type memoryPages struct {
	connected []facebook.Page
}

func (m *memoryPages) Connect(_ context.Context, p facebook.Page) error {
	m.connected = append(m.connected, p)
	return nil
}

func (m *memoryPages) Disconnect(context.Context, int64, string) error {
	return facebook.ErrPageNotFound
}

type reverseSealer struct{}

func (reverseSealer) Seal(plaintext string) (string, error) { return "sealed:" + plaintext, nil }

type fixture struct {
	engine   *gin.Engine
	leads    *leadstest.Store
	keys     *memoryKeys
	facebook *stubFacebook
	pages    *memoryPages
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	leads := leadstest.NewStore()
	leads.AddAgent(domain.Agent{ID: 1, TenantID: 3, Name: "Asha", Active: true})
	leads.AddAgent(domain.Agent{ID: 2, TenantID: 3, Name: "Vikram", Active: true})
	leads.AddCampaign(domain.Campaign{ID: 5, TenantID: 3, Name: "Launch", Status: domain.CampaignActive}, 2)

	log := logger.Nop()
	engine := assignment.NewEngine(assignment.NewRoster(leads, assignment.FallbackWiden, log), assignment.NewKeyedMutex())
	svc := ingestion.New(leads, engine, nil, nil, log)

	campaignID := int64(5)
	keys := &memoryKeys{byHash: map[string]APIKey{
		HashKey(testKey): {ID: 9, TenantID: 3, CampaignID: &campaignID, IsActive: true},
	}}

	f := &fixture{leads: leads, keys: keys, facebook: &stubFacebook{}, pages: &memoryPages{}}
	handler := NewHandler(HandlerDeps{
		Keys:        keys,
		Campaigns:   leads,
		Processor:   sources.NewProcessor(ledger.NewMemory(), leads, svc, log),
		Facebook:    f.facebook,
		Pages:       f.pages,
		Sealer:      reverseSealer{},
		VerifyToken: "verify-me",
		Validator:   validator.New(),
		Log:         log,
	})

	r := gin.New()
	v1 := r.Group("/api/v1")
	admin := v1.Group("/admin")
	admin.Use(func(c *gin.Context) {
		c.Set(httpkit.ContextTenantIDKey, int64(3))
		c.Next()
	})
	NewModule(handler, keys).RegisterRoutes(&apphttp.RouterContext{Engine: r, V1: v1, Admin: admin})
	f.engine = r
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestLeadSubmissionCreatesAndAssigns(t *testing.T) {
	f := newFixture(t)

	req := jsonRequest(http.MethodPost, "/api/v1/webhook/leads", `{"full_name":"Neha Rao","mobile":"98765 43210","budget":"80L","utm_campaign":"diwali","preferred_tower":"B"}`)
	req.Header.Set(HeaderAPIKey, testKey)
	rec := f.do(req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp SubmissionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Outcome != string(sources.OutcomeIngested) || resp.AssignedAgentID == nil || *resp.AssignedAgentID != 2 {
		t.Fatalf("expected lead assigned within the key's campaign, got %+v", resp)
	}

	leads := f.leads.Leads()
	if len(leads) != 1 {
		t.Fatalf("expected one lead, got %d", len(leads))
	}
	lead := leads[0]
	if lead.Phone != "9876543210" || lead.Name != "Neha Rao" || lead.Source != domain.SourceWebhook {
		t.Fatalf("unexpected lead %+v", lead)
	}
	if domain.Deref(lead.SubSource) != "diwali" {
		t.Fatalf("expected sub source from utm_campaign, got %q", domain.Deref(lead.SubSource))
	}
	if budget, _ := lead.Extension.String(domain.ExtBudget); budget != "80L" {
		t.Fatalf("expected budget in extension, got %q", budget)
	}
	if _, ok := lead.Extension[domain.ExtFormFields]; !ok {
		t.Fatal("unmatched fields must be kept under form_fields")
	}
}

func TestLeadSubmissionRequiresKey(t *testing.T) {
	f := newFixture(t)

	rec := f.do(jsonRequest(http.MethodPost, "/api/v1/webhook/leads", `{"phone":"9876543210"}`))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := jsonRequest(http.MethodPost, "/api/v1/webhook/leads", `{"phone":"9876543210"}`)
	req.Header.Set(HeaderAPIKey, "whk_wrong")
	if rec := f.do(req); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for an unknown key, got %d", rec.Code)
	}
}

func TestLeadSubmissionRedeliveryIsSkipped(t *testing.T) {
	f := newFixture(t)

	for i, want := range []int{http.StatusCreated, http.StatusOK} {
		req := jsonRequest(http.MethodPost, "/api/v1/webhook/leads", `{"phone":"9876543210"}`)
		req.Header.Set(HeaderAPIKey, testKey)
		req.Header.Set(HeaderIdempotencyKey, "sub-77")
		rec := f.do(req)
		if rec.Code != want {
			t.Fatalf("delivery %d: expected %d, got %d", i, want, rec.Code)
		}
	}
	if f.leads.Inserts != 1 || f.leads.Updates != 0 {
		t.Fatalf("redelivery must not touch the store again, inserts=%d updates=%d", f.leads.Inserts, f.leads.Updates)
	}
}

func TestFormSubmissionWithoutContactIsRejected(t *testing.T) {
	f := newFixture(t)

	form := url.Values{"name": {"Someone"}, "message": {"call me"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/leads", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set(HeaderAPIKey, testKey)

	rec := f.do(req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(f.leads.Leads()) != 0 {
		t.Fatal("rejected submission must not create a lead")
	}
}

func TestFacebookVerify(t *testing.T) {
	f := newFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/webhook/facebook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=1158201444", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "1158201444" {
		t.Fatalf("expected challenge echo, got %d %q", rec.Code, rec.Body.String())
	}

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/v1/webhook/facebook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=1", nil))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestFacebookEvent(t *testing.T) {
	f := newFixture(t)
	body := `{"object":"page","entry":[{"id":"p1","changes":[{"field":"leadgen","value":{"leadgen_id":"l1","page_id":"p1"}}]}]}`

	if rec := f.do(jsonRequest(http.MethodPost, "/api/v1/webhook/facebook", body)); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	f.facebook.err = errors.New("graph timeout")
	if rec := f.do(jsonRequest(http.MethodPost, "/api/v1/webhook/facebook", body)); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 so the delivery is retried, got %d", rec.Code)
	}

	calls := f.facebook.calls
	if rec := f.do(jsonRequest(http.MethodPost, "/api/v1/webhook/facebook", `{"object":"instagram"}`)); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for ignored objects, got %d", rec.Code)
	}
	if f.facebook.calls != calls {
		t.Fatal("non-page events must not be processed")
	}
}

func TestCreateAPIKey(t *testing.T) {
	f := newFixture(t)

	rec := f.do(jsonRequest(http.MethodPost, "/api/v1/admin/webhook/keys", `{"name":"Website","campaignId":5}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp CreateAPIKeyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp.Key, "whk_") || resp.KeyPrefix != resp.Key[:12] {
		t.Fatalf("unexpected key %+v", resp)
	}
	if f.keys.created[0].KeyHash != HashKey(resp.Key) {
		t.Fatal("only the hash of the plaintext key may be stored")
	}

	rec = f.do(jsonRequest(http.MethodPost, "/api/v1/admin/webhook/keys", `{"name":"Other","campaignId":99}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a foreign campaign, got %d", rec.Code)
	}
}

func TestConnectPageSealsToken(t *testing.T) {
	f := newFixture(t)

	rec := f.do(jsonRequest(http.MethodPost, "/api/v1/admin/facebook/pages", `{"pageId":"p1","pageName":"Towers","accessToken":"EAAB"}`))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(f.pages.connected) != 1 || f.pages.connected[0].AccessTokenEnc != "sealed:EAAB" || f.pages.connected[0].TenantID != 3 {
		t.Fatalf("unexpected page %+v", f.pages.connected)
	}

	if rec := f.do(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/facebook/pages/p9", nil)); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestExtractRecordSplitNames(t *testing.T) {
	rec := ExtractRecord(map[string]string{
		"First Name": "Arjun",
		"last-name":  "Mehta",
		"email":      "not-an-email",
		"Lead ID":    "L-9",
	})
	if rec.Name != "Arjun Mehta" {
		t.Fatalf("expected joined name, got %q", rec.Name)
	}
	if rec.Email != "" {
		t.Fatalf("invalid email must be dropped, got %q", rec.Email)
	}
	if rec.SourceLeadID != "L-9" {
		t.Fatalf("expected source lead id, got %q", rec.SourceLeadID)
	}
}
