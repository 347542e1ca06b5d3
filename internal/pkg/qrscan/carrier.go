// internal/pkg/qrscan/carrier.go
package qrscan

import (
	"net/url"
	"strings"

	xerrors "namy-service/internal/pkg/errors"
)

// CarrierParam is the query parameter carrying the cipher string inside a
// coupon URL.
const CarrierParam = "enc"

// ParseCarrier interprets decoded QR text as a cipher-string carrier: either
// a URL whose query holds the payload under CarrierParam, or the bare
// three-part cipher string itself. Anything else is unsupported.
func ParseCarrier(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", xerrors.ErrUnsupportedPayload
	}

	if u, err := url.Parse(text); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		enc := u.Query().Get(CarrierParam)
		if isCipherShape(enc) {
			return enc, nil
		}
		return "", xerrors.ErrUnsupportedPayload
	}

	if isCipherShape(text) {
		return text, nil
	}
	return "", xerrors.ErrUnsupportedPayload
}

// isCipherShape checks the iv.ciphertext.tag outline without decoding it.
func isCipherShape(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		for _, r := range p {
			switch {
			case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			case r == '-' || r == '_' || r == '=':
			default:
				return false
			}
		}
	}
	return true
}
