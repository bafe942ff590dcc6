// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DeviceClass is a coarse classification of the client holding a session.
type DeviceClass string

const (
	DeviceMobile  DeviceClass = "mobile"
	DeviceTablet  DeviceClass = "tablet"
	DeviceDesktop DeviceClass = "desktop"
	DeviceBot     DeviceClass = "bot"
	DeviceUnknown DeviceClass = "unknown"
)

// Marker substrings, matched against the lower-cased user agent in order.
var (
	botMarkers     = []string{"bot", "crawler", "spider", "slurp", "curl/", "wget/", "python-requests", "go-http-client"}
	tabletMarkers  = []string{"ipad", "tablet", "kindle", "silk/", "playbook"}
	mobileMarkers  = []string{"mobi", "iphone", "ipod", "android", "windows phone", "blackberry", "opera mini"}
	desktopMarkers = []string{"windows nt", "macintosh", "mac os x", "x11", "linux", "cros"}
)

/*
ClassifyDevice derives a DeviceClass from a User-Agent header.

Android tablets omit "Mobile" from their user agent, which is how they are
told apart from phones.
*/
func ClassifyDevice(userAgent string) DeviceClass {
	agent := strings.ToLower(strings.TrimSpace(userAgent))
	if agent == "" {
		return DeviceUnknown
	}

	switch {
	case containsAny(agent, botMarkers):
		return DeviceBot
	case containsAny(agent, tabletMarkers):
		return DeviceTablet
	case strings.Contains(agent, "android") && !strings.Contains(agent, "mobile"):
		return DeviceTablet
	case containsAny(agent, mobileMarkers):
		return DeviceMobile
	case containsAny(agent, desktopMarkers):
		return DeviceDesktop
	default:
		return DeviceUnknown
	}
}

/*
NewDeviceInfo builds device metadata from request attributes.

Both inputs are client controlled. Invalid UTF-8 and control characters are
dropped from the user agent before it is cut to MaxUserAgentLength, and an
address that does not parse as an IP is recorded as empty.
*/
func NewDeviceInfo(userAgent, ipAddress string) DeviceInfo {
	agent := strings.Map(dropControl, strings.ToValidUTF8(userAgent, ""))
	return DeviceInfo{
		UserAgent:   truncate(agent, MaxUserAgentLength),
		IPAddress:   normalizeIP(ipAddress),
		DeviceClass: ClassifyDevice(agent),
	}
}

// dropControl removes control characters, NUL included, for use with strings.Map.
func dropControl(r rune) rune {
	if unicode.IsControl(r) {
		return -1
	}
	return r
}

// normalizeIP returns the canonical form of an IP address, with or without a
// port, or "" when the value is not an address.
func normalizeIP(value string) string {
	value = strings.TrimSpace(value)
	if host, _, err := net.SplitHostPort(value); err == nil {
		value = host
	}
	ip := net.ParseIP(value)
	if ip == nil {
		return ""
	}
	return ip.String()
}

func containsAny(value string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(value, marker) {
			return true
		}
	}
	return false
}

// truncate cuts value to at most max bytes without splitting a rune.
func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}
