package model

import (
	"strings"
	"testing"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"valid simple", "staff1", nil},
		{"valid with numbers", "user123", nil},
		{"valid with underscore", "my_user", nil},
		{"valid with hyphen", "my-user", nil},
		{"valid mixed", "A-b_3", nil},
		{"valid max length", strings.Repeat("a", MaxUsernameLength), nil},
		{"empty", "", ErrUsernameEmpty},
		{"too long", strings.Repeat("a", MaxUsernameLength+1), ErrUsernameTooLong},
		{"contains space", "has space", ErrUsernameInvalidChars},
		{"contains dot", "user.name", ErrUsernameInvalidChars},
		{"contains @", "user@name", ErrUsernameInvalidChars},
		{"unicode letter", "ñoño", ErrUsernameInvalidChars},
		{"newline", "user\nname", ErrUsernameInvalidChars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUsername(tt.input)
			if err != tt.wantErr {
				t.Errorf("ValidateUsername(%q) = %v, want %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestRoleRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		s    string
		want Role
	}{
		{"admin", "admin", RoleAdmin},
		{"staff", "staff", RoleStaff},
		{"basic", "basic", RoleBasic},
		{"unknown falls back to basic", "superuser", RoleBasic},
		{"empty falls back to basic", "", RoleBasic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseRole(tt.s); got != tt.want {
				t.Errorf("ParseRole(%q) = %v, want %v", tt.s, got, tt.want)
			}
		})
	}

	for _, r := range []Role{RoleBasic, RoleStaff, RoleAdmin} {
		if got := ParseRole(r.String()); got != r {
			t.Errorf("ParseRole(%q.String()) = %v, want %v", r, got, r)
		}
	}
}

func TestRoleValid(t *testing.T) {
	tests := []struct {
		name string
		role Role
		want bool
	}{
		{"RoleBasic", RoleBasic, true},
		{"RoleStaff", RoleStaff, true},
		{"RoleAdmin", RoleAdmin, true},
		{"negative", Role(-1), false},
		{"three", Role(3), false},
		{"large", Role(99), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.role.Valid(); got != tt.want {
				t.Errorf("Role(%d).Valid() = %v, want %v", tt.role, got, tt.want)
			}
		})
	}
}

func TestMessageValidate(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{"valid", "hi", nil},
		{"valid long", strings.Repeat("a", MessageMaxTextLength), nil},
		{"empty", "", ErrMessageTextEmpty},
		{"whitespace only", "   \t ", ErrMessageTextEmpty},
		{"too long", strings.Repeat("a", MessageMaxTextLength+1), ErrMessageTextTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Message{From: "staff1", To: "staff2", Text: tt.text}
			if err := m.Validate(); err != tt.wantErr {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
