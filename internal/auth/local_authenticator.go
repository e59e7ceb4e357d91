package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// LocalAuthenticator validates HS256 tokens signed with a shared key,
// the scheme the frontend's login endpoint issues.
type LocalAuthenticator struct {
	signingKey []byte
}

func NewLocalAuthenticator(signingKey []byte) (*LocalAuthenticator, error) {
	if len(signingKey) == 0 {
		return nil, errors.New("local authentication requires a signing key")
	}
	return &LocalAuthenticator{signingKey: signingKey}, nil
}

func (la *LocalAuthenticator) AuthenticateToken(token string) (User, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}), jwt.WithExpirationRequired())
	t, err := parser.Parse(token, func(t *jwt.Token) (any, error) {
		return la.signingKey, nil
	})
	if err != nil {
		zap.S().Named("auth").Errorf("failed to parse or the token is invalid: %v", err)
		return User{}, fmt.Errorf("failed to authenticate token: %w", err)
	}

	if !t.Valid {
		return User{}, errors.New("failed to parse or validate token")
	}

	return la.parseToken(t)
}

func (la *LocalAuthenticator) parseToken(userToken *jwt.Token) (User, error) {
	claims, ok := userToken.Claims.(jwt.MapClaims)
	if !ok {
		return User{}, errors.New("failed to parse jwt token claims")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return User{}, errors.New("token has no subject")
	}
	id, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return User{}, fmt.Errorf("invalid subject %q: %w", sub, err)
	}

	email, _ := claims["email"].(string)

	return User{
		ID:    id,
		Email: email,
		Token: userToken,
	}, nil
}

func (la *LocalAuthenticator) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accessToken := r.Header.Get("Authorization")
		if accessToken == "" || len(accessToken) < len("Bearer ") {
			http.Error(w, "No token provided", http.StatusUnauthorized)
			return
		}

		accessToken = accessToken[len("Bearer "):]
		user, err := la.AuthenticateToken(accessToken)
		if err != nil {
			http.Error(w, "authentication failed", http.StatusUnauthorized)
			return
		}

		ctx := NewTokenContext(r.Context(), user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
