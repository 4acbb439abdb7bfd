package domain

import "fmt"

// providerCodes is the closed set of supported identity providers and their
// compact codes. The compact code is what gets signed, so entries must never
// be renumbered once issued.
var providerCodes = map[string]string{
	"google":    "g",
	"github":    "gh",
	"twitter":   "t",
	"facebook":  "f",
	"microsoft": "m",
	"apple":     "a",
	"linkedin":  "li",
	"tiktok":    "tk",
	"wechat":    "w",
	"alipay":    "ap",
	"paypal":    "pp",
	"line":      "l",
}

var providerNames = func() map[string]string {
	names := make(map[string]string, len(providerCodes))
	for name, code := range providerCodes {
		names[code] = name
	}
	return names
}()

// CompactProviderCode resolves a provider id to its compact code. Signing
// must call this before any repository read so an unknown provider aborts
// with no side effects.
func CompactProviderCode(provider string) (string, error) {
	code, ok := providerCodes[provider]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	return code, nil
}

// ProviderFromCode is the inverse lookup, used when expanding a verified
// record back into a readable identity.
func ProviderFromCode(code string) (string, bool) {
	name, ok := providerNames[code]
	return name, ok
}
