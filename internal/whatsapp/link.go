// Package whatsapp builds wa.me deep links with a prefilled message.
package whatsapp

import (
	"net/url"
	"strings"
)

const baseURL = "https://wa.me/"

// NormalizePhone reduces a loosely formatted phone number to the bare
// digits wa.me expects: every character outside [0-9+] is dropped, then a
// single leading "+" is stripped.
//
// Known quirk kept from the product: a leading "00" international trunk
// prefix is NOT rewritten, it stays in the output verbatim
// ("00243..." -> "00243...").
func NormalizePhone(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	return strings.TrimPrefix(b.String(), "+")
}

// BuildURL returns "https://wa.me/<digits>?text=<encoded message>".
//
// No plausibility checks are made on the phone number; this is a text
// transform, not a validator. Empty phone or message still yield a
// syntactically valid URL.
func BuildURL(phone, message string) string {
	text := url.QueryEscape(message)
	// QueryEscape encodes spaces as "+"; wa.me prefills expect %20.
	text = strings.ReplaceAll(text, "+", "%20")
	return baseURL + NormalizePhone(phone) + "?text=" + text
}
