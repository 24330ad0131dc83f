package internal

import (
	"testing"
)

func TestSessionIDRoundTrip(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID failed: %v", err)
	}

	parsed, err := ParseSessionID(sid.String())
	if err != nil {
		t.Fatalf("ParseSessionID failed: %v", err)
	}
	if parsed != sid {
		t.Fatal("session id round trip mismatch")
	}

	if _, err := ParseSessionID("too-short"); err == nil {
		t.Fatal("expected malformed session id to be rejected")
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID failed: %v", err)
	}
	secret, err := NewRefreshSecret()
	if err != nil {
		t.Fatalf("NewRefreshSecret failed: %v", err)
	}

	token, err := EncodeRefreshToken(sid.String(), secret)
	if err != nil {
		t.Fatalf("EncodeRefreshToken failed: %v", err)
	}

	gotSID, gotSecret, err := DecodeRefreshToken(token)
	if err != nil {
		t.Fatalf("DecodeRefreshToken failed: %v", err)
	}
	if gotSID != sid.String() {
		t.Fatalf("session id mismatch: got %q want %q", gotSID, sid.String())
	}
	if gotSecret != secret {
		t.Fatal("secret mismatch after round trip")
	}

	for _, bad := range []string{"", "garbage", "AAAA"} {
		if _, _, err := DecodeRefreshToken(bad); err == nil {
			t.Fatalf("expected token %q to be rejected", bad)
		}
	}
}

func TestNewOTPShape(t *testing.T) {
	for _, digits := range []int{4, 6, 10} {
		code, err := NewOTP(digits)
		if err != nil {
			t.Fatalf("NewOTP(%d) failed: %v", digits, err)
		}
		if len(code) != digits {
			t.Fatalf("expected %d digits, got %q", digits, code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in code %q", code)
			}
		}
	}

	for _, digits := range []int{0, 3, 11} {
		if _, err := NewOTP(digits); err == nil {
			t.Fatalf("expected NewOTP(%d) to be rejected", digits)
		}
	}
}

func TestHashCodeIsDeterministic(t *testing.T) {
	a := HashCode([]byte("482913"))
	b := HashCode([]byte("482913"))
	c := HashCode([]byte("482914"))

	if a != b {
		t.Fatal("expected identical hashes for identical input")
	}
	if a == c {
		t.Fatal("expected different hashes for different input")
	}
}
