package provider

import "strings"

const (
	genericSuffix = "/chat/completions"
	openAISuffix  = "/v1/chat/completions"
)

// genericSuffixProviders mount chat completions without a /v1 prefix.
var genericSuffixProviders = map[Tag]bool{
	Baidu:      true,
	Aliyun:     true,
	Volcengine: true,
}

// Candidates expands a base URL into the ordered endpoint URLs to probe.
// The user's URL is always tried first, untouched apart from trimming.
func Candidates(baseURL string, tag Tag) []string {
	cleaned := strings.TrimRight(strings.TrimSpace(baseURL), "/")

	if strings.HasSuffix(cleaned, genericSuffix) {
		return []string{cleaned}
	}

	suffix := openAISuffix
	if genericSuffixProviders[tag] {
		suffix = genericSuffix
	}

	return []string{cleaned, cleaned + suffix}
}
