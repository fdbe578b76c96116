package utils

import (
	"errors"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

var urlRegex = regexp.MustCompile(`https?://[^\s<>]+`)

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "fbclid", "gclid"}

var errEmptyHost = errors.New("url has no host")

func ExtractURLs(content string) []string {
	return urlRegex.FindAllString(content, -1)
}

func NormalizeURL(raw string) (string, string, error) {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}

	host := strings.TrimSuffix(strings.ToLower(parsed.Hostname()), ".")
	if host == "" {
		return "", "", errEmptyHost
	}
	asciiHost, err := idna.ToASCII(host)
	if err == nil {
		host = asciiHost
	}

	parsed.Host = host
	parsed.Fragment = ""
	parsed.User = nil

	query := parsed.Query()
	for _, key := range trackingParams {
		query.Del(key)
	}
	parsed.RawQuery = normalizeQuery(query)

	return parsed.String(), host, nil
}

// NormalizeDomain accepts a bare domain or a URL and returns its ASCII
// host.
func NormalizeDomain(input string) (string, error) {
	_, host, err := NormalizeURL(strings.TrimSpace(input))
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(host, "www."), nil
}

func normalizeQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	clean := url.Values{}
	for _, key := range keys {
		clean[key] = values[key]
	}
	return clean.Encode()
}

// DomainMatch checks domain and each of its parent domains against the
// lists. An allow entry wins over a block entry.
func DomainMatch(domain string, allowlist, blocklist []string) (allowed bool, blocked bool) {
	domain = strings.ToLower(domain)
	for _, candidate := range parentDomains(domain) {
		if contains(allowlist, candidate) {
			return true, false
		}
	}
	for _, candidate := range parentDomains(domain) {
		if contains(blocklist, candidate) {
			return false, true
		}
	}
	return false, false
}

func parentDomains(domain string) []string {
	var out []string
	for domain != "" {
		out = append(out, domain)
		dot := strings.IndexByte(domain, '.')
		if dot < 0 {
			break
		}
		domain = domain[dot+1:]
	}
	return out
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}
