package platform

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// challengeBodyLimit bounds the body size for marker-based detection. Real
// listing pages routinely embed reCAPTCHA on contact forms; interstitial
// challenge pages are small.
const challengeBodyLimit = 20 * 1024

// DetectBlock checks an HTTP response for signs of anti-bot protection.
// A JS shell is reported but is not a block for a listing page: the caller
// decides whether to escalate to rendering.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	// Cloudflare: 403/503 with cf-* headers.
	if resp.StatusCode == 403 || resp.StatusCode == 503 {
		if resp.Header.Get("cf-ray") != "" || resp.Header.Get("cf-cache-status") != "" {
			return true, BlockCloudflare
		}
		if resp.Header.Get("server") == "cloudflare" {
			return true, BlockCloudflare
		}
	}

	if len(body) > challengeBodyLimit {
		return false, BlockNone
	}
	lower := strings.ToLower(string(body))

	// Cloudflare challenge page markers.
	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge") {
		return true, BlockCloudflare
	}

	// Captcha interstitials.
	if strings.Contains(lower, "captcha") &&
		(resp.StatusCode >= 400 || !strings.Contains(lower, "<form") || strings.Contains(lower, "are you a robot") || strings.Contains(lower, "verify you are human")) {
		return true, BlockCaptcha
	}

	// JS-only shell: very small body with noscript or meta refresh.
	if len(body) < 2000 {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return false, BlockJSShell
		}
		if strings.Contains(lower, "meta http-equiv=\"refresh\"") {
			return false, BlockJSShell
		}
	}

	return false, BlockNone
}
