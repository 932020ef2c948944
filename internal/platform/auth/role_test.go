package auth

import "testing"

func TestParseRole(t *testing.T) {
	for _, s := range []string{"Patient", "Doctor"} {
		r, err := ParseRole(s)
		if err != nil {
			t.Fatalf("ParseRole(%q): unexpected error: %v", s, err)
		}
		if string(r) != s {
			t.Errorf("expected %s, got %s", s, r)
		}
	}

	for _, s := range []string{"", "patient", "DOCTOR", "Admin", "Nurse"} {
		if _, err := ParseRole(s); err == nil {
			t.Errorf("ParseRole(%q): expected error", s)
		}
	}
}

func TestRole_PublicIDPrefix(t *testing.T) {
	if RolePatient.PublicIDPrefix() != "P-" {
		t.Errorf("expected P-, got %s", RolePatient.PublicIDPrefix())
	}
	if RoleDoctor.PublicIDPrefix() != "DR-" {
		t.Errorf("expected DR-, got %s", RoleDoctor.PublicIDPrefix())
	}
	if Role("Admin").PublicIDPrefix() != "" {
		t.Error("expected empty prefix for unknown role")
	}
}
