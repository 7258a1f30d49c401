package utils

import (
	"testing"

	"astrolab/config"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	config.AppConfig = &config.Config{SaltRound: bcrypt.MinCost}

	hashed, err := HashPassword("observatory1610")
	require.NoError(t, err)
	require.NotEqual(t, "observatory1610", hashed)

	require.True(t, CheckPassword(hashed, "observatory1610"))
	require.False(t, CheckPassword(hashed, "Observatory1610"))
	require.False(t, CheckPassword(hashed, ""))
}
