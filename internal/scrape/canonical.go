package scrape

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Tracking parameters stripped during canonicalization. Two listing links
// that differ only in these must dedup to one article.
var trackedParams = map[string]bool{
	"fbclid": true,
	"gclid":  true,
	"ref":    true,
}

// CanonicalURL normalizes a URL into the form used as the dedup key:
// lowercase scheme and host, trailing slash stripped, fragment dropped,
// tracking parameters removed, remaining query keys sorted.
func CanonicalURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("url %q is not absolute", raw)
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	path := strings.TrimRight(parsed.Path, "/")
	if path == "" {
		path = "/"
	}
	parsed.Path = path

	query := parsed.Query()
	keys := make([]string, 0, len(query))
	for key := range query {
		if trackedParams[key] || strings.HasPrefix(key, "utm_") {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	cleaned := url.Values{}
	for _, key := range keys {
		for _, value := range query[key] {
			cleaned.Add(key, value)
		}
	}
	parsed.RawQuery = cleaned.Encode()

	return parsed.String(), nil
}

// HashURL returns the SHA-256 hex digest of the canonical URL, stored next
// to the URL itself for duplicate detection.
func HashURL(canonical string) string {
	digest := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(digest[:])
}
