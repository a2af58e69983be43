package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPreviewWithSuppliedLead(t *testing.T) {
	h := NewCampaignHandler(nil, nil)

	body := `{
		"subject": "Quick question, {{first_name}}",
		"email_content": "<p>Hi {{first_name}} at {{company}}</p><a href=\"https://dest.example/demo\">Book a demo</a>",
		"lead": {"first_name": "Ann", "company": "Widgets Inc"}
	}`

	rec := httptest.NewRecorder()
	h.Preview(rec, httptest.NewRequest("POST", "/api/v1/campaigns/preview", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Subject string   `json:"subject"`
		HTML    string   `json:"html"`
		Links   []string `json:"links"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	if resp.Subject != "Quick question, Ann" {
		t.Errorf("subject = %q", resp.Subject)
	}
	if !strings.Contains(resp.HTML, "Hi Ann at Widgets Inc") {
		t.Errorf("html = %q", resp.HTML)
	}
	if len(resp.Links) != 1 || resp.Links[0] != "https://dest.example/demo" {
		t.Errorf("links = %v", resp.Links)
	}
}

func TestPreviewFallsBackToSampleLead(t *testing.T) {
	h := NewCampaignHandler(nil, nil)

	body := `{"subject": "Hello {{first_name}}", "email_content": "<p>{{company}}</p>"}`

	rec := httptest.NewRecorder()
	h.Preview(rec, httptest.NewRequest("POST", "/api/v1/campaigns/preview", strings.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Subject string `json:"subject"`
		HTML    string `json:"html"`
	}
	json.NewDecoder(rec.Body).Decode(&resp)

	if strings.Contains(resp.Subject, "{{") || strings.Contains(resp.HTML, "{{") {
		t.Errorf("unresolved placeholders: subject=%q html=%q", resp.Subject, resp.HTML)
	}
}

func TestPreviewRequiresContent(t *testing.T) {
	h := NewCampaignHandler(nil, nil)

	rec := httptest.NewRecorder()
	h.Preview(rec, httptest.NewRequest("POST", "/api/v1/campaigns/preview", strings.NewReader("{}")))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
