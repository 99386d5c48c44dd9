package dto

import (
	"testing"
	"time"

	"github.com/prohmpiriya/auth-service/internal/domain"
)

func TestRegisterRequest_ValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     bool
		wantMsg  string
	}{
		{
			name:     "valid password",
			password: "Password1!",
			want:     true,
			wantMsg:  "",
		},
		{
			name:     "valid complex password",
			password: "MyP@ssw0rd123!",
			want:     true,
			wantMsg:  "",
		},
		{
			name:     "too short",
			password: "Pass1!",
			want:     false,
			wantMsg:  "Password must be at least 8 characters",
		},
		{
			name:     "no uppercase",
			password: "password1!",
			want:     false,
			wantMsg:  "Password must contain at least one uppercase letter",
		},
		{
			name:     "no lowercase",
			password: "PASSWORD1!",
			want:     false,
			wantMsg:  "Password must contain at least one lowercase letter",
		},
		{
			name:     "no digit",
			password: "Password!",
			want:     false,
			wantMsg:  "Password must contain at least one digit",
		},
		{
			name:     "no special character",
			password: "Password1",
			want:     false,
			wantMsg:  "Password must contain at least one special character",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &RegisterRequest{Password: tt.password}
			got, msg := req.ValidatePassword()
			if got != tt.want {
				t.Errorf("ValidatePassword() got = %v, want %v", got, tt.want)
			}
			if msg != tt.wantMsg {
				t.Errorf("ValidatePassword() msg = %v, want %v", msg, tt.wantMsg)
			}
		})
	}
}

func TestRegisterRequest_ValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		want    bool
		wantMsg string
	}{
		{
			name:    "valid email",
			email:   "test@example.com",
			want:    true,
			wantMsg: "",
		},
		{
			name:    "valid email with subdomain",
			email:   "test@mail.example.com",
			want:    true,
			wantMsg: "",
		},
		{
			name:    "valid email with plus",
			email:   "test+tag@example.com",
			want:    true,
			wantMsg: "",
		},
		{
			name:    "invalid - no @",
			email:   "testexample.com",
			want:    false,
			wantMsg: "Invalid email format",
		},
		{
			name:    "invalid - no domain",
			email:   "test@",
			want:    false,
			wantMsg: "Invalid email format",
		},
		{
			name:    "invalid - no TLD",
			email:   "test@example",
			want:    false,
			wantMsg: "Invalid email format",
		},
		{
			name:    "invalid - spaces",
			email:   "test @example.com",
			want:    false,
			wantMsg: "Invalid email format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &RegisterRequest{Email: tt.email}
			got, msg := req.ValidateEmail()
			if got != tt.want {
				t.Errorf("ValidateEmail() got = %v, want %v", got, tt.want)
			}
			if msg != tt.wantMsg {
				t.Errorf("ValidateEmail() msg = %v, want %v", msg, tt.wantMsg)
			}
		})
	}
}

func TestNewUserResponse(t *testing.T) {
	createdAt := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	user := &domain.User{
		ID:           "user-123",
		Email:        "resp@example.com",
		PasswordHash: "$2a$10$secret",
		FirstName:    "Res",
		LastName:     "Ponse",
		Role:         domain.RoleEditor,
		IsActive:     true,
		CreatedAt:    createdAt,
	}

	resp := NewUserResponse(user)

	if resp.ID != user.ID {
		t.Errorf("NewUserResponse() ID = %v, want %v", resp.ID, user.ID)
	}
	if resp.Email != user.Email {
		t.Errorf("NewUserResponse() Email = %v, want %v", resp.Email, user.Email)
	}
	if resp.Role != "editor" {
		t.Errorf("NewUserResponse() Role = %v, want editor", resp.Role)
	}
	if resp.CreatedAt != "2025-03-10T08:00:00Z" {
		t.Errorf("NewUserResponse() CreatedAt = %v, want 2025-03-10T08:00:00Z", resp.CreatedAt)
	}
}
