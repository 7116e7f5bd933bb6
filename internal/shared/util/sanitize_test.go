package util

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: "morning.wav", want: "morning.wav"},
		{name: "separators", in: "a/b\\c.m4a", want: "a_b_c.m4a"},
		{name: "hidden", in: ".call.wav", want: "call.wav"},
		{name: "control", in: "call\n1.wav", want: "call_1.wav"},
		{name: "traversal", in: "../etc/passwd", wantErr: true},
		{name: "only dots", in: " . ", wantErr: true},
		{name: "empty", in: "   ", wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeFileName(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFileName) {
					t.Fatalf("expected ErrInvalidFileName, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSanitizeFileNameTruncatesKeepingExtension(t *testing.T) {
	got, err := SanitizeFileName(strings.Repeat("é", 150) + ".wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) > maxFileNameBytes {
		t.Fatalf("expected at most %d bytes, got %d", maxFileNameBytes, len(got))
	}
	if !strings.HasSuffix(got, ".wav") {
		t.Fatalf("expected extension kept, got %q", got)
	}
}
