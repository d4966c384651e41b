// Package util holds small helpers shared by the HTTP and logging layers.
package util

import (
	"net/url"
	"strings"
)

// HideSecret obscures a credential for logging, keeping only its edges.
func HideSecret(secret string) string {
	switch n := len(secret); {
	case n > 8:
		return secret[:4] + "..." + secret[n-4:]
	case n > 4:
		return secret[:2] + "..." + secret[n-2:]
	case n > 2:
		return secret[:1] + "..." + secret[n-1:]
	}
	return secret
}

// MaskSensitiveQuery masks credential-like parameters such as token or password
// within a raw query string. Other parameters are left untouched.
func MaskSensitiveQuery(raw string) string {
	if raw == "" {
		return ""
	}
	parts := strings.Split(raw, "&")
	changed := false
	for i, part := range parts {
		if part == "" {
			continue
		}
		keyPart, valuePart, _ := strings.Cut(part, "=")
		decodedKey, err := url.QueryUnescape(keyPart)
		if err != nil {
			decodedKey = keyPart
		}
		if !isSensitiveParam(decodedKey) {
			continue
		}
		decodedValue, err := url.QueryUnescape(valuePart)
		if err != nil {
			decodedValue = valuePart
		}
		parts[i] = keyPart + "=" + url.QueryEscape(HideSecret(strings.TrimSpace(decodedValue)))
		changed = true
	}
	if !changed {
		return raw
	}
	return strings.Join(parts, "&")
}

func isSensitiveParam(key string) bool {
	key = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(key)), "[]")
	if key == "" {
		return false
	}
	if key == "key" || strings.Contains(key, "api_key") || strings.Contains(key, "apikey") {
		return true
	}
	for _, marker := range []string{"token", "secret", "password", "jwt"} {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}
