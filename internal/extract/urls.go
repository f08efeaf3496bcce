package extract

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	mediaExtRe = regexp.MustCompile(`(?i)\.(?:jpe?g|png|webp|avif|gif|mp4|webm|mov)(?:$|[?#&/])`)
	videoExtRe = regexp.MustCompile(`(?i)\.(?:mp4|webm|mov)(?:$|[?#])`)
)

// imageHosts serve images from extensionless paths.
var imageHosts = []string{
	"static.wixstatic.com",
	"res.cloudinary.com",
	"imgix.net",
	"googleusercontent.com",
	"resizedimgs.",
	"images.unsplash.com",
	"cdn.sanity.io",
	"images.ctfassets.net",
}

// VideoHosts are external video platforms. Their URLs are collected but
// never downloaded.
var VideoHosts = []string{
	"youtube.com",
	"youtu.be",
	"youtube-nocookie.com",
	"vimeo.com",
	"player.vimeo.com",
	"dailymotion.com",
	"wistia.com",
	"wistia.net",
}

// ResolveURL makes ref absolute against base. Protocol-relative URLs get
// https. It returns "" for data:, blob: and javascript: references and
// anything that does not parse.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	ref = strings.ReplaceAll(ref, `\/`, "/")
	ref = strings.ReplaceAll(ref, `\u002F`, "/")
	if ref == "" || ref == "#" {
		return ""
	}
	lower := strings.ToLower(ref)
	for _, p := range []string{"data:", "blob:", "javascript:", "about:", "mailto:", "tel:"} {
		if strings.HasPrefix(lower, p) {
			return ""
		}
	}
	if strings.HasPrefix(ref, "//") {
		ref = "https:" + ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if !u.IsAbs() {
		b, err := url.Parse(base)
		if err != nil || !b.IsAbs() {
			return ""
		}
		u = b.ResolveReference(u)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// LooksLikeMedia reports whether u points at an image or video asset,
// either by extension or by a known image CDN host.
func LooksLikeMedia(u string) bool {
	if mediaExtRe.MatchString(u) {
		return true
	}
	return IsVideoHost(u) || hostContainsAny(u, imageHosts)
}

// IsVideoHost reports whether u is on an external video platform.
func IsVideoHost(u string) bool {
	return hostContainsAny(u, VideoHosts)
}

// IsVideoURL reports whether u is a directly downloadable video file.
func IsVideoURL(u string) bool {
	return videoExtRe.MatchString(u)
}

func hostContainsAny(raw string, hosts []string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range hosts {
		if host == h || strings.HasSuffix(host, "."+h) || (strings.HasSuffix(h, ".") && strings.Contains(host, h)) {
			return true
		}
	}
	return false
}
