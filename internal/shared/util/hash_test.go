package util

import "testing"

func TestFingerprint(t *testing.T) {
	got := Fingerprint("fcm-token-123", 12)
	if got != Fingerprint("fcm-token-123", 12) {
		t.Fatalf("expected stable fingerprint, got %s", got)
	}
	if len(got) != 12 {
		t.Fatalf("expected 12 characters, got %d", len(got))
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("fingerprint contains non-hex character: %c", ch)
		}
	}
	if len(Fingerprint("x", 0)) != 64 {
		t.Fatalf("expected full digest for n=0")
	}
	if Fingerprint("", 12) != "" {
		t.Fatalf("expected empty fingerprint for empty input")
	}
}
