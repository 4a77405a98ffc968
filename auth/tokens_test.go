package auth_test

import (
	"testing"
	"time"

	"github.com/botarena/backend/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("test-secret")

func TestMatchTokenRoundTrip(t *testing.T) {
	token, err := auth.GenerateMatchToken(
		"contest-1", "room-1", [2]string{"team-a", "team-b"},
		time.Hour, testKey)
	require.NoError(t, err)

	claims, err := auth.ValidateMatchToken(token, testKey)
	require.NoError(t, err)
	assert.Equal(t, "contest-1", claims.ContestID)
	assert.Equal(t, "room-1", claims.RoomID)
	assert.Equal(t, [2]string{"team-a", "team-b"}, claims.TeamIDs)
}

func TestMatchTokenWrongKey(t *testing.T) {
	token, err := auth.GenerateMatchToken(
		"contest-1", "room-1", [2]string{"team-a", "team-b"},
		time.Hour, testKey)
	require.NoError(t, err)

	_, err = auth.ValidateMatchToken(token, []byte("other-secret"))
	assert.Error(t, err)
}

func TestMatchTokenExpired(t *testing.T) {
	token, err := auth.GenerateMatchToken(
		"contest-1", "room-1", [2]string{"team-a", "team-b"},
		-time.Minute, testKey)
	require.NoError(t, err)

	_, err = auth.ValidateMatchToken(token, testKey)
	assert.Error(t, err)
}

func TestCompileTokenRoundTrip(t *testing.T) {
	token, err := auth.GenerateCompileToken(
		"code-1", "team-a", "spring-open", "/tmp/code-1/main.cpp",
		10*time.Minute, testKey)
	require.NoError(t, err)

	claims, err := auth.ValidateCompileToken(token, testKey)
	require.NoError(t, err)
	assert.Equal(t, "code-1", claims.CodeID)
	assert.Equal(t, "team-a", claims.TeamID)
	assert.Equal(t, "spring-open", claims.ContestName)
	assert.Equal(t, "/tmp/code-1/main.cpp", claims.SourcePath)
}

func TestCompileTokenNotValidForMatchFinish(t *testing.T) {
	token, err := auth.GenerateCompileToken(
		"code-1", "team-a", "spring-open", "/tmp/code-1/main.cpp",
		10*time.Minute, testKey)
	require.NoError(t, err)

	claims, err := auth.ValidateMatchToken(token, testKey)
	if err == nil {
		// signature checks out but the claim set is foreign
		assert.Empty(t, claims.RoomID)
	}
}
