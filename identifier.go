package goOTP

import "strings"

const phoneCountryCode = "91"

// NormalizeIdentifier canonicalizes a raw phone number or email address into
// the single key every store in the engine is indexed by.
//
// Phone numbers are accepted as a national 10-digit mobile number beginning
// with 6–9, optionally preceded by the trunk prefix "0", the country calling
// code "91", or both, with or without a leading "+". The canonical form is
// "+91" followed by the 10 subscriber digits. Email addresses (anything
// containing "@") are lower-cased and returned otherwise unchanged.
//
// The function is pure: no I/O, no clock access. Normalizing an already
// normalized identifier yields the identifier itself.
func NormalizeIdentifier(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", ErrInvalidIdentifier
	}

	if strings.ContainsRune(trimmed, '@') {
		return normalizeEmail(trimmed)
	}

	return normalizePhone(trimmed)
}

func normalizeEmail(raw string) (string, error) {
	lowered := strings.ToLower(raw)

	at := strings.IndexByte(lowered, '@')
	if at <= 0 || at == len(lowered)-1 {
		return "", ErrInvalidIdentifier
	}
	if strings.Count(lowered, "@") != 1 {
		return "", ErrInvalidIdentifier
	}
	if strings.ContainsAny(lowered, " \t") {
		return "", ErrInvalidIdentifier
	}
	domain := lowered[at+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", ErrInvalidIdentifier
	}

	return lowered, nil
}

func normalizePhone(raw string) (string, error) {
	hasPlus := strings.HasPrefix(raw, "+")
	if hasPlus {
		raw = raw[1:]
	}

	var digits strings.Builder
	digits.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')':
			// separators are tolerated, everything else is rejected
		default:
			return "", ErrInvalidIdentifier
		}
	}

	subscriber, ok := subscriberDigits(digits.String())
	if !ok {
		return "", ErrInvalidIdentifier
	}

	return "+" + phoneCountryCode + subscriber, nil
}

// subscriberDigits strips the accepted trunk/country prefixes and returns the
// bare 10-digit subscriber number.
func subscriberDigits(d string) (string, bool) {
	switch len(d) {
	case 10:
		// bare national number
	case 11:
		if d[0] != '0' {
			return "", false
		}
		d = d[1:]
	case 12:
		if !strings.HasPrefix(d, phoneCountryCode) {
			return "", false
		}
		d = d[2:]
	case 13:
		if !strings.HasPrefix(d, "0"+phoneCountryCode) {
			return "", false
		}
		d = d[3:]
	default:
		return "", false
	}

	if d[0] < '6' || d[0] > '9' {
		return "", false
	}

	return d, true
}

// IsEmailIdentifier reports whether a normalized identifier is an email
// address rather than a phone number.
func IsEmailIdentifier(identifier string) bool {
	return strings.ContainsRune(identifier, '@')
}
