package mailer

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	openPath  = "/api/track/open"
	clickPath = "/api/track/click"
)

var (
	anchorPattern = regexp.MustCompile(`(?i)<a\s+([^>]*href\s*=\s*["']([^"']+)["'][^>]*)>`)
	hrefPattern   = regexp.MustCompile(`(?i)href\s*=\s*["'][^"']+["']`)
)

// InjectTracking rewrites rendered HTML so engagement on the sent email is
// observable: an invisible 1x1 beacon image is placed before the closing body
// tag (or appended when there is none), and every hyperlink is routed through
// the click redirector with the original destination percent-encoded. Links
// that already point at the redirector are left alone, so injecting twice
// never double-wraps. Pure text transformation.
func InjectTracking(html, trackingID, baseURL string) string {
	if html == "" {
		return ""
	}
	if trackingID == "" || baseURL == "" {
		return html
	}

	pixel := fmt.Sprintf(
		`<img src="%s%s?id=%s" width="1" height="1" style="display:none;" alt="" />`,
		baseURL, openPath, url.QueryEscape(trackingID),
	)

	if strings.Contains(html, "</body>") {
		html = strings.Replace(html, "</body>", pixel+"</body>", 1)
	} else {
		html += pixel
	}

	return anchorPattern.ReplaceAllStringFunc(html, func(match string) string {
		sub := anchorPattern.FindStringSubmatch(match)
		attrs, original := sub[1], sub[2]

		// Already routed through the redirector.
		if strings.Contains(original, clickPath) {
			return match
		}

		trackingURL := fmt.Sprintf("%s%s?id=%s&url=%s",
			baseURL, clickPath, url.QueryEscape(trackingID), url.QueryEscape(original))

		return "<a " + hrefPattern.ReplaceAllString(attrs, `href="`+trackingURL+`"`) + ">"
	})
}

// ExtractLinks returns the destinations of every hyperlink in the content,
// in document order. Used by the campaign preview.
func ExtractLinks(html string) []string {
	if html == "" {
		return nil
	}

	var links []string
	for _, m := range anchorPattern.FindAllStringSubmatch(html, -1) {
		links = append(links, m[2])
	}
	return links
}
