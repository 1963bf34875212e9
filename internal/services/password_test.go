package services

import (
	"strings"
	"testing"
)

// buildPassword returns a password that satisfies exactly the requirements
// whose bit is set, in PasswordRequirements order.
func buildPassword(mask int) string {
	var b strings.Builder
	if mask&(1<<1) != 0 {
		b.WriteString("A")
	}
	if mask&(1<<2) != 0 {
		b.WriteString("a")
	}
	if mask&(1<<3) != 0 {
		b.WriteString("1")
	}
	if mask&(1<<4) != 0 {
		b.WriteString("!")
	}
	if mask&1 != 0 {
		for b.Len() < 8 {
			b.WriteString("~")
		}
	}
	return b.String()
}

func TestPasswordRequirementsTruthTable(t *testing.T) {
	if len(PasswordRequirements) != 5 {
		t.Fatalf("Expected 5 requirements, got %d", len(PasswordRequirements))
	}

	for mask := 0; mask < 1<<5; mask++ {
		password := buildPassword(mask)

		statuses := EvaluatePassword(password)
		all := true
		for i, status := range statuses {
			want := mask&(1<<i) != 0
			if status.Met != want {
				t.Errorf("mask %05b password %q: requirement %s met = %v, want %v",
					mask, password, status.Name, status.Met, want)
			}
			all = all && status.Met
		}

		want := mask == 1<<5-1
		if got := MeetsAllRequirements(password); got != want || got != all {
			t.Errorf("mask %05b password %q: MeetsAllRequirements = %v, want %v", mask, password, got, want)
		}
	}
}

func TestPasswordRequirementDetails(t *testing.T) {
	tests := []struct {
		name        string
		requirement string
		password    string
		want        bool
	}{
		{"seven characters", "length", "Abc12!x", false},
		{"eight characters", "length", "Abc12!xy", true},
		{"multibyte characters count once", "length", "ñññññññ", false},
		{"newline breaks length", "length", "abcd\nefgh", false},
		{"non ascii uppercase ignored", "upper", "ÁÉÍÓÚ", false},
		{"digit", "number", "x9", true},
		{"quote is special", "special", `abc"`, true},
		{"underscore is not special", "special", "abc_def", false},
		{"tilde is not special", "special", "~~~", false},
	}

	byName := make(map[string]PasswordRequirement)
	for _, req := range PasswordRequirements {
		byName[req.Name] = req
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, ok := byName[tt.requirement]
			if !ok {
				t.Fatalf("Unknown requirement %q", tt.requirement)
			}
			if got := req.Met(tt.password); got != tt.want {
				t.Errorf("%s.Met(%q) = %v, want %v", tt.requirement, tt.password, got, tt.want)
			}
		})
	}
}

func TestCheckMatch(t *testing.T) {
	for _, password := range []string{"", "x", "Secure#Pass1"} {
		if got := CheckMatch(password, ""); got.Visible {
			t.Errorf("Match indicator must be hidden for empty confirmation (password %q)", password)
		}
	}

	if got := CheckMatch("Secure#Pass1", "Secure#Pass1"); !got.Visible || !got.Matches {
		t.Errorf("Expected visible match, got %+v", got)
	}

	if got := CheckMatch("Secure#Pass1", "Secure#Pass"); !got.Visible || got.Matches {
		t.Errorf("Expected visible mismatch, got %+v", got)
	}
}
