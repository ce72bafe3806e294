package textnorm

import "testing"

func TestFold(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  Hello ", "hello"},
		{"STRASSE", "strasse"},
		{"Ünïcode", "ünïcode"},
		{"two   words", "two   words"},
		{"cafe\u0301", "caf\u00e9"},
		{"CAFE\u0301", "caf\u00e9"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Fold(tt.in); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStripDiacritics(t *testing.T) {
	tests := []struct{ in, want string }{
		{"café", "cafe"},
		{"naïve", "naive"},
		{"ação", "acao"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := StripDiacritics(tt.in); got != tt.want {
			t.Errorf("StripDiacritics(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoose(t *testing.T) {
	if Loose(" Café ") != Loose("cafe") {
		t.Error("Loose should ignore case, whitespace and accents")
	}
	if Loose("ice  cream") != Loose("ice cream") {
		t.Error("Loose should collapse inner whitespace")
	}
	if Fold("ice  cream") == Fold("ice cream") {
		t.Error("Fold must keep inner whitespace significant")
	}
	if Fold("Café") == Fold("cafe") {
		t.Error("Fold must keep accents significant")
	}
}

func TestIsBlank(t *testing.T) {
	if !IsBlank(" \t\n") {
		t.Error("whitespace should be blank")
	}
	if IsBlank(" a ") {
		t.Error("non-empty should not be blank")
	}
}
