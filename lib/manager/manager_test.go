package manager

import "testing"

func TestValidateIdentifier(t *testing.T) {
	valid := []string{
		"io.example.manager.test",
		"org.some-vendor.asset_system",
		"a",
		"Plugin-1.2_beta",
	}
	for _, id := range valid {
		if err := ValidateIdentifier(id); err != nil {
			t.Errorf("Expected %q to be valid, got: %v", id, err)
		}
	}

	invalid := []string{
		"",
		"has space",
		"has/slash",
		"has:colon",
		"tab\tchar",
		"unicode-é",
	}
	for _, id := range invalid {
		if err := ValidateIdentifier(id); err == nil {
			t.Errorf("Expected %q to be rejected", id)
		}
	}
}
