package domain

import (
	"net/url"
	"strings"
)

// DedupKey builds the normalized identity key used to detect leads that were
// already created for a tenant, including across re-runs of the same
// campaign. The key is lowercased company name plus the website host with any
// "www." prefix stripped, joined by "|". A lead with no usable website falls
// back to the name alone.
func DedupKey(companyName, website string) string {
	name := normalizeName(companyName)
	host := normalizeHost(website)
	if host == "" {
		return name
	}
	return name + "|" + host
}

func normalizeName(name string) string {
	collapsed := strings.Join(strings.Fields(name), " ")
	return strings.ToLower(collapsed)
}

func normalizeHost(website string) string {
	trimmed := strings.TrimSpace(website)
	if trimmed == "" {
		return ""
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return ""
	}

	host := strings.ToLower(parsed.Host)
	host = strings.TrimPrefix(host, "www.")
	return host
}
