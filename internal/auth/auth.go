package auth

import (
	"net/http"

	"github.com/refurbd/renovation-planner/internal/config"
	"go.uber.org/zap"
)

type Authenticator interface {
	Authenticator(next http.Handler) http.Handler
	// AuthenticateToken resolves a bare token string, used by the
	// websocket endpoint where the token travels in the query string.
	AuthenticateToken(token string) (User, error)
}

const (
	LocalAuthentication string = "local"
	NoneAuthentication  string = "none"
)

func NewAuthenticator(authConfig config.Auth) (Authenticator, error) {
	zap.S().Named("auth").Infof("authentication: '%s'", authConfig.AuthenticationType)

	switch authConfig.AuthenticationType {
	case LocalAuthentication:
		return NewLocalAuthenticator([]byte(authConfig.LocalSigningKey))
	default:
		return NewNoneAuthenticator()
	}
}
