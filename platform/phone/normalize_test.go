package phone

import "testing"

func TestDigits_StripsFormatting(t *testing.T) {
	got := Digits("+998 (90) 123-45-67")
	if got != "998901234567" {
		t.Fatalf("expected 998901234567, got %q", got)
	}
}

func TestDigits_SameNumberDifferentFormatting(t *testing.T) {
	a := Digits("+998 90-123-45-67")
	b := Digits("998901234567")
	if a != b {
		t.Fatalf("expected equal digit strings, got %q and %q", a, b)
	}
}

func TestDigits_Idempotent(t *testing.T) {
	once := Digits("+7 (495) 123 45 67")
	twice := Digits(once)
	if once != twice {
		t.Fatalf("expected idempotent normalization, got %q then %q", once, twice)
	}
}

func TestDigits_EmptyAndNonDigit(t *testing.T) {
	if got := Digits(""); got != "" {
		t.Fatalf("expected empty result, got %q", got)
	}
	if got := Digits("abc-+()"); got != "" {
		t.Fatalf("expected empty result for non-digit input, got %q", got)
	}
}
