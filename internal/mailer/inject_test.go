package mailer

import (
	"net/url"
	"strings"
	"testing"
)

const (
	testTrackingID = "trk-123"
	testBaseURL    = "https://crm.example.com"
)

func TestInjectTracking_BeaconBeforeBody(t *testing.T) {
	html := `<html><body><p>Hello</p></body></html>`
	out := InjectTracking(html, testTrackingID, testBaseURL)

	pixel := `<img src="https://crm.example.com/api/track/open?id=trk-123" width="1" height="1" style="display:none;" alt="" />`
	want := `<html><body><p>Hello</p>` + pixel + `</body></html>`
	if out != want {
		t.Errorf("beacon not inserted before </body>:\n got: %s\nwant: %s", out, want)
	}
}

func TestInjectTracking_NoBodyTagAppendsBeacon(t *testing.T) {
	html := `<p>Hello</p>`
	out := InjectTracking(html, testTrackingID, testBaseURL)

	if !strings.HasPrefix(out, html) {
		t.Errorf("original content altered: %s", out)
	}
	suffix := strings.TrimPrefix(out, html)
	if !strings.Contains(suffix, "/api/track/open?id=trk-123") {
		t.Errorf("beacon missing from output: %s", out)
	}
	if strings.Count(out, "<img") != 1 {
		t.Errorf("expected exactly one beacon, got: %s", out)
	}
}

func TestInjectTracking_NoLinksOutputEqualsInputPlusBeacon(t *testing.T) {
	html := `<p>no links here</p>`
	out := InjectTracking(html, testTrackingID, testBaseURL)

	pixel := `<img src="https://crm.example.com/api/track/open?id=trk-123" width="1" height="1" style="display:none;" alt="" />`
	if out != html+pixel {
		t.Errorf("expected input + beacon, got: %s", out)
	}
}

func TestInjectTracking_RewritesLinks(t *testing.T) {
	html := `<body><a href="https://dest.example.com/page?x=1">go</a></body>`
	out := InjectTracking(html, testTrackingID, testBaseURL)

	wantHref := testBaseURL + "/api/track/click?id=trk-123&url=" +
		url.QueryEscape("https://dest.example.com/page?x=1")
	if !strings.Contains(out, `href="`+wantHref+`"`) {
		t.Errorf("link not rewritten:\n got: %s\nwant href: %s", out, wantHref)
	}
	if strings.Contains(out, `href="https://dest.example.com`) {
		t.Errorf("original href still present: %s", out)
	}
}

func TestInjectTracking_PreservesOtherAnchorAttributes(t *testing.T) {
	html := `<a class="btn" href="https://dest.example.com" target="_blank">go</a>`
	out := InjectTracking(html, testTrackingID, testBaseURL)

	if !strings.Contains(out, `class="btn"`) || !strings.Contains(out, `target="_blank"`) {
		t.Errorf("anchor attributes dropped: %s", out)
	}
}

func TestInjectTracking_RewritesEveryLink(t *testing.T) {
	html := `<a href="https://one.example.com">1</a><a href='https://two.example.com'>2</a>`
	out := InjectTracking(html, testTrackingID, testBaseURL)

	if strings.Count(out, "/api/track/click") != 2 {
		t.Errorf("expected both links rewritten: %s", out)
	}
}

func TestInjectTracking_Idempotent(t *testing.T) {
	html := `<body><a href="https://dest.example.com">go</a><p>hi</p></body>`
	once := InjectTracking(html, testTrackingID, testBaseURL)
	twice := InjectTracking(once, testTrackingID, testBaseURL)

	if strings.Count(twice, "/api/track/click") != strings.Count(once, "/api/track/click") {
		t.Errorf("links double-wrapped:\n once: %s\ntwice: %s", once, twice)
	}
	// The already-rewritten href must be byte-identical after reinjection.
	onceHref := extractFirstHref(t, once)
	twiceHref := extractFirstHref(t, twice)
	if onceHref != twiceHref {
		t.Errorf("rewritten link changed on reinjection:\n once: %s\ntwice: %s", onceHref, twiceHref)
	}
}

func TestInjectTracking_EmptyInput(t *testing.T) {
	if out := InjectTracking("", testTrackingID, testBaseURL); out != "" {
		t.Errorf("expected empty output for empty input, got %q", out)
	}
}

func TestInjectTracking_MissingIDOrBaseURLPassesThrough(t *testing.T) {
	html := `<a href="https://dest.example.com">go</a>`
	if out := InjectTracking(html, "", testBaseURL); out != html {
		t.Errorf("expected passthrough without tracking id, got %q", out)
	}
	if out := InjectTracking(html, testTrackingID, ""); out != html {
		t.Errorf("expected passthrough without base url, got %q", out)
	}
}

func TestExtractLinks(t *testing.T) {
	html := `<a href="https://one.example.com">1</a> text <a href='https://two.example.com'>2</a>`
	links := ExtractLinks(html)

	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %d", len(links))
	}
	if links[0] != "https://one.example.com" || links[1] != "https://two.example.com" {
		t.Errorf("unexpected links: %v", links)
	}

	if links := ExtractLinks("no anchors"); links != nil {
		t.Errorf("expected nil for link-free content, got %v", links)
	}
}

func extractFirstHref(t *testing.T, html string) string {
	t.Helper()
	start := strings.Index(html, `href="`)
	if start < 0 {
		t.Fatalf("no href in %s", html)
	}
	rest := html[start+len(`href="`):]
	end := strings.Index(rest, `"`)
	return rest[:end]
}
