package types

import "testing"

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in string
		ok bool
	}{
		{"admin@dsa.com", true}, {"a@b.co", true}, {"first.last@sub.example.org", true},
		{"", false}, {"no-at-sign", false}, {"@dsa.com", false}, {"user@", false},
		{"user@nodot", false}, {"spaced user@dsa.com", false},
	}
	for _, c := range cases {
		err := ValidateEmail(c.in)
		if c.ok && err != nil {
			t.Fatalf("expected ok for %q, got %v", c.in, err)
		}
		if !c.ok && err == nil {
			t.Fatalf("expected error for %q", c.in)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	if err := ValidatePassword("abc12"); err == nil {
		t.Fatal("expected error for short password")
	}
	if err := ValidatePassword("abc123"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidatePatch(t *testing.T) {
	t.Parallel()
	low, high, ok := 10, 9999, 120
	if err := ValidatePatch(ProfilePatch{DailyTimeLimitMinutes: &low}); err == nil {
		t.Fatal("expected error below minimum")
	}
	if err := ValidatePatch(ProfilePatch{DailyTimeLimitMinutes: &high}); err == nil {
		t.Fatal("expected error above maximum")
	}
	if err := ValidatePatch(ProfilePatch{DailyTimeLimitMinutes: &ok}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := LearningPace("turbo")
	if err := ValidatePatch(ProfilePatch{LearningPace: &bad}); err == nil {
		t.Fatal("expected error for unknown pace")
	}
}

func TestPatchApply(t *testing.T) {
	t.Parallel()
	base := &SessionRecord{UserID: "u1", Email: "a@b.co", Username: "old", DailyTimeLimitMinutes: 60}
	name := "new"
	limit := 90
	out := ProfilePatch{Username: &name, DailyTimeLimitMinutes: &limit}.Apply(base)
	if out.Username != "new" || out.DailyTimeLimitMinutes != 90 {
		t.Fatalf("patch not applied: %+v", out)
	}
	if base.Username != "old" || base.DailyTimeLimitMinutes != 60 {
		t.Fatalf("base mutated: %+v", base)
	}
}

func TestRecordEqualAndClone(t *testing.T) {
	t.Parallel()
	url := "https://cdn.dsa.com/a.png"
	a := &SessionRecord{UserID: "u1", Email: "a@b.co", AvatarURL: &url, DifficultyPreferences: []string{"easy", "hard"}}
	b := a.Clone()
	if !a.Equal(b) {
		t.Fatal("clone should be equal")
	}
	*b.AvatarURL = "other"
	if *a.AvatarURL != url {
		t.Fatal("clone aliases avatar url")
	}
	b = a.Clone()
	b.DifficultyPreferences[0] = "medium"
	if a.DifficultyPreferences[0] != "easy" {
		t.Fatal("clone aliases preference slice")
	}
}
