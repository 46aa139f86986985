package domain

import "testing"

func TestNormalizeSessionID(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"test-1234":     "TEST-1234",
		"test1234":      "TEST-1234",
		" ab 12 34 56 ": "AB12-3456",
		"abc":           "ABC",
		"abcd":          "ABCD",
		"abcd1":         "ABCD-1",
		"abcd-12345678": "ABCD-1234",
		"!!":            "",
	}
	for raw, want := range cases {
		if got := NormalizeSessionID(raw); got != want {
			t.Fatalf("NormalizeSessionID(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestValidSessionID(t *testing.T) {
	t.Parallel()

	valid := []string{"TEST-1234", "AB12-3456", "0000-0000"}
	for _, id := range valid {
		if !ValidSessionID(id) {
			t.Fatalf("expected %q to be valid", id)
		}
	}

	invalid := []string{"", "TEST1234", "test-1234", "TEST-12AB", "TES-1234", "TEST-12345", "ABCD-1"}
	for _, id := range invalid {
		if ValidSessionID(id) {
			t.Fatalf("expected %q to be invalid", id)
		}
	}
}

func TestMaskSessionID(t *testing.T) {
	t.Parallel()

	if got := MaskSessionID("AB12-3456"); got != "ABXX-##56" {
		t.Fatalf("unexpected mask: %q", got)
	}
	if got := MaskSessionID(""); got != "Unknown Session" {
		t.Fatalf("unexpected empty mask: %q", got)
	}
	if got := MaskSessionID("ABC-123"); got != "ABC-123" {
		t.Fatalf("expected malformed id unchanged, got %q", got)
	}
}

func TestPhraseSpeakerLabel(t *testing.T) {
	t.Parallel()

	if got := (Phrase{SpeakerName: "Ana"}).SpeakerLabel(); got != "Ana" {
		t.Fatalf("unexpected label: %q", got)
	}
	if got := (Phrase{SpeakerID: "speaker-abcd1234"}).SpeakerLabel(); got != "Speaker 1234" {
		t.Fatalf("unexpected label: %q", got)
	}
	if got := (Phrase{SpeakerID: "s1"}).SpeakerLabel(); got != "Speaker s1" {
		t.Fatalf("unexpected short label: %q", got)
	}
}

func TestLanguages(t *testing.T) {
	t.Parallel()

	if !KnownLanguage(DefaultLanguage) {
		t.Fatalf("default language must be known")
	}
	if KnownLanguage("xx") {
		t.Fatalf("unexpected known language")
	}
	if got := LanguageName("de"); got != "German" {
		t.Fatalf("unexpected name: %q", got)
	}
	if got := LanguageName("xx"); got != "xx" {
		t.Fatalf("expected code fallback, got %q", got)
	}

	list := Languages()
	for i := 1; i < len(list); i++ {
		if list[i-1].Name > list[i].Name {
			t.Fatalf("languages not sorted at %d", i)
		}
	}
}
