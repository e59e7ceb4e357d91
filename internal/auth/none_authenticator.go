package auth

import (
	"net/http"

	"github.com/golang-jwt/jwt/v5"
)

type NoneAuthenticator struct{}

func NewNoneAuthenticator() (*NoneAuthenticator, error) {
	return &NoneAuthenticator{}, nil
}

func (n *NoneAuthenticator) user() User {
	user := User{
		ID:    1,
		Email: "admin@localhost",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "1",
		"email": "admin@localhost",
	})
	token.Raw = "fake-raw-token"
	user.Token = token
	return user
}

func (n *NoneAuthenticator) Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := NewTokenContext(r.Context(), n.user())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (n *NoneAuthenticator) AuthenticateToken(_ string) (User, error) {
	return n.user(), nil
}
