package validate

import "testing"

func TestEmail(t *testing.T) {
	valid := []string{"a@b.co", "student.one@example.org", " padded@mail.in "}
	for _, s := range valid {
		if !Email(s) {
			t.Errorf("Email(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "plain", "a@b", "a b@c.d", "@no-local.com"}
	for _, s := range invalid {
		if Email(s) {
			t.Errorf("Email(%q) = true, want false", s)
		}
	}
}

func TestRequired(t *testing.T) {
	if Required("") || Required("   ") || Required("\t\n") {
		t.Error("whitespace-only input should not satisfy Required")
	}
	if !Required("x") || !Required(" x ") {
		t.Error("non-empty input should satisfy Required")
	}
}

func TestPincode(t *testing.T) {
	cases := map[string]bool{
		"123456":  true,
		"12345":   false,
		"1234567": false,
		"12a456":  false,
		"":        false,
	}
	for in, want := range cases {
		if got := Pincode(in); got != want {
			t.Errorf("Pincode(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestMinLength(t *testing.T) {
	if !MinLength("abcd", 4) || MinLength("abc", 4) {
		t.Error("MinLength boundary wrong")
	}
	if MinLength("  ab  ", 3) {
		t.Error("MinLength should trim before counting")
	}
}

func TestPasswordStrength(t *testing.T) {
	if msg := PasswordStrength("Abcdef12"); msg != "" {
		t.Errorf("strong password rejected: %q", msg)
	}
	for _, weak := range []string{"short1A", "alllowercase1", "ALLUPPERCASE1", "NoDigitsHere"} {
		if PasswordStrength(weak) == "" {
			t.Errorf("weak password %q accepted", weak)
		}
	}
}

func TestFileConstraints(t *testing.T) {
	allowed := []string{".pdf"}
	if msg := FileConstraints("notes.pdf", 1024, 5*1024*1024, allowed); msg != "" {
		t.Errorf("valid file rejected: %q", msg)
	}
	if msg := FileConstraints("notes.PDF", 1024, 5*1024*1024, allowed); msg != "" {
		t.Errorf("extension check should be case-insensitive: %q", msg)
	}
	if FileConstraints("notes.exe", 1024, 5*1024*1024, allowed) == "" {
		t.Error("disallowed extension accepted")
	}
	if FileConstraints("notes.pdf", 6*1024*1024, 5*1024*1024, allowed) == "" {
		t.Error("oversized file accepted")
	}
}
