package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/mssola/useragent"
)

const maxDeviceLabelLen = 100

// ClientInfo is what the transport layer knows about the caller.
// It is recorded for audit and device labelling only.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Fingerprint digests ip and user agent. It is stored for audit and never
// used to authorize anything.
func Fingerprint(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + "|" + userAgent))
	return hex.EncodeToString(sum[:])
}

// DeviceLabel turns a user-agent string into something like "Chrome on macOS".
func DeviceLabel(userAgent string) string {
	userAgent = strings.TrimSpace(userAgent)
	if userAgent == "" {
		return "Unknown device"
	}

	ua := useragent.New(userAgent)
	browser, _ := ua.Browser()
	os := ua.OSInfo().Name

	var label string
	switch {
	case ua.Bot():
		label = "Bot"
		if browser != "" {
			label = browser
		}
	case browser != "" && os != "":
		label = browser + " on " + os
	case browser != "":
		label = browser
	case os != "":
		label = os
	default:
		label = "Unknown device"
	}
	if ua.Mobile() && !strings.Contains(label, "Unknown") {
		label += " (mobile)"
	}

	return truncateRunes(label, maxDeviceLabelLen)
}

// truncateRunes cuts s to at most n characters without splitting one.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
