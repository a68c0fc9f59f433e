// Package auth issues and verifies the HS256 access tokens that carry a
// caller's user id and capabilities.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/dmitrijs2005/teamflow/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload: the standard registered claims plus the
// caller's capability set. Subject holds the decimal user id.
type Claims struct {
	jwt.RegisteredClaims
	UserID       int64    `json:"uid"`
	Capabilities []string `json:"caps"`
}

var roleCapabilities = map[string][]string{
	"team_member": {common.CapTrackTime},
	"team_manager": {
		common.CapTrackTime, common.CapViewTimesheets, common.CapManageTeam, common.CapManagePayroll,
	},
	"administrator": {
		common.CapTrackTime, common.CapViewTimesheets, common.CapManageTeam, common.CapManagePayroll,
	},
}

// CapabilitiesForRole returns the capabilities granted to a named role.
func CapabilitiesForRole(role string) ([]string, error) {
	caps, ok := roleCapabilities[role]
	if !ok {
		return nil, fmt.Errorf("unknown role %q", role)
	}
	return slices.Clone(caps), nil
}

func GenerateToken(userID int64, capabilities []string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		UserID:       userID,
		Capabilities: capabilities,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies tokenString and returns its claims. Expired tokens
// yield common.ErrTokenExpired; every other failure common.ErrInvalidToken.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID <= 0 {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
