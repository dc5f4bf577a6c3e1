package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// jwtKey is the secret used to sign tokens.
// In a production environment, this should be loaded from an environment variable or a secret manager.
var jwtKey = []byte("chat_rooms_signing_key_2026")

// SetSigningKey overrides the token secret, typically from configuration at
// startup.
func SetSigningKey(key string) {
	if key != "" {
		jwtKey = []byte(key)
	}
}

// CustomClaims defines the structure of the data stored inside the JWT.
type CustomClaims struct {
	Username string `json:"username"`
	IsMod    bool   `json:"is_mod"`
	jwt.RegisteredClaims
}

// GenerateToken creates a signed JWT for a specific user.
func GenerateToken(username string, isMod bool, authTokenDuration time.Duration) (string, error) {
	expirationTime := time.Now().Add(authTokenDuration)

	claims := &CustomClaims{
		Username: username,
		IsMod:    isMod,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "chat-rooms",
		},
	}

	// HS256 (HMAC with SHA256)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtKey)
}

// ValidateToken parses and validates the signature and expiration of a JWT string.
func ValidateToken(tokenString string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		return jwtKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*CustomClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrSignatureInvalid
}
