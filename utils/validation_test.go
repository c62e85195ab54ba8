package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsStrongPassword(t *testing.T) {
	tests := []struct {
		password string
		want     bool
	}{
		{"SecurePass123", true},
		{"Short1A", false},
		{"alllowercase1", false},
		{"NoDigitsHere", false},
		{"ABCDEFG1", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsStrongPassword(tt.password), tt.password)
	}
}

func TestIsValidPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  bool
	}{
		{"+15551234567", true},
		{"(555) 123-4567", true},
		{"555.123.4567", true},
		{"12345", false},
		{"+1555123456789012", false},
		{"555-CALL-NOW", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidPhone(tt.phone), tt.phone)
	}
}

func TestNewValidator_CustomTags(t *testing.T) {
	v := NewValidator()

	type payload struct {
		Password string `validate:"password_strength"`
		Phone    string `validate:"phone_format"`
		Name     string `validate:"alpha_space"`
	}

	assert.NoError(t, v.Struct(payload{Password: "SecurePass123", Phone: "+15551234567", Name: "Jane Doe"}))
	assert.Error(t, v.Struct(payload{Password: "weak", Phone: "+15551234567", Name: "Jane Doe"}))
	assert.Error(t, v.Struct(payload{Password: "SecurePass123", Phone: "abc", Name: "Jane Doe"}))
	assert.Error(t, v.Struct(payload{Password: "SecurePass123", Phone: "+15551234567", Name: "Jane_Doe"}))
}

func TestNewValidator_NotBlank(t *testing.T) {
	v := NewValidator()

	type payload struct {
		Title string `validate:"required,notblank"`
	}

	assert.NoError(t, v.Struct(payload{Title: " Great service "}))
	assert.Error(t, v.Struct(payload{Title: "   "}))
	assert.Error(t, v.Struct(payload{Title: "\t\n"}))
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 20))
	assert.Equal(t, 1, TotalPages(1, 20))
	assert.Equal(t, 1, TotalPages(20, 20))
	assert.Equal(t, 2, TotalPages(21, 20))
	assert.Equal(t, 0, TotalPages(10, 0))
}
