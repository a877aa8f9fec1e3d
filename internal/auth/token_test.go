package auth_test

import (
	"testing"
	"time"

	"pos-core/internal/auth"

	"github.com/stretchr/testify/assert"
)

func TestMintAndParse(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)

	token, err := tm.Mint(5, "Carol", "waiter")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := tm.Parse(token)
	assert.NoError(t, err)
	assert.Equal(t, int64(5), claims.StaffID)
	assert.Equal(t, "Carol", claims.StaffName)
	assert.Equal(t, "waiter", claims.Role)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)
	other := auth.NewTokenManager("other-secret", time.Hour)

	token, err := tm.Mint(5, "Carol", "waiter")
	assert.NoError(t, err)

	_, err = other.Parse(token)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", -time.Minute)

	token, err := tm.Mint(5, "Carol", "waiter")
	assert.NoError(t, err)

	_, err = tm.Parse(token)
	assert.Error(t, err)
}
