package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MatchClaims is embedded in the token handed to a match sandbox at
// launch. The sandbox presents it back on the completion callback.
type MatchClaims struct {
	ContestID string    `json:"contest_id"`
	RoomID    string    `json:"room_id"`
	TeamIDs   [2]string `json:"team_ids"`
	jwt.RegisteredClaims
}

// CompileClaims is embedded in the token handed to a compiler sandbox.
type CompileClaims struct {
	CodeID      string `json:"code_id"`
	TeamID      string `json:"team_id"`
	ContestName string `json:"contest_name"`
	SourcePath  string `json:"source_path"`
	jwt.RegisteredClaims
}

func GenerateMatchToken(contestID string, roomID string, teamIDs [2]string, ttl time.Duration, jwtKey []byte) (string, error) {
	claims := &MatchClaims{
		ContestID: contestID,
		RoomID:    roomID,
		TeamIDs:   teamIDs,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

func ValidateMatchToken(tokenStr string, jwtKey []byte) (*MatchClaims, error) {
	claims := &MatchClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return jwtKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return nil, errors.New("invalid token signature")
		}
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func GenerateCompileToken(codeID string, teamID string, contestName string, sourcePath string, ttl time.Duration, jwtKey []byte) (string, error) {
	claims := &CompileClaims{
		CodeID:      codeID,
		TeamID:      teamID,
		ContestName: contestName,
		SourcePath:  sourcePath,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

func ValidateCompileToken(tokenStr string, jwtKey []byte) (*CompileClaims, error) {
	claims := &CompileClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return jwtKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return nil, errors.New("invalid token signature")
		}
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
