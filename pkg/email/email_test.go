package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "ana@example.com", Normalize("  Ana@Example.COM "))
}

func TestIsValid(t *testing.T) {
	valid := []string{"ana@example.com", "first.last+tag@sub.example.org"}
	invalid := []string{"", "ana", "ana@", "@example.com", "Ana <ana@example.com>", "ana@localhost"}

	for _, v := range valid {
		assert.True(t, IsValid(v), v)
	}
	for _, v := range invalid {
		assert.False(t, IsValid(v), v)
	}
}

func TestDeriveNameFromEmail(t *testing.T) {
	assert.Equal(t, "Ana Lima", DeriveNameFromEmail("ana.lima@example.com"))
	assert.Equal(t, "Bob", DeriveNameFromEmail("bob@example.com"))
	assert.Equal(t, "User", DeriveNameFromEmail("...@example.com"))
}
