package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var errNoToken = errors.New("missing session token")

// HashPassword returns the bcrypt hash to put in server.password-hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

func (s *Server) signToken(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   "avm",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.opts.TokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.opts.Secret))
}

func (s *Server) verifyToken(tokenString string) error {
	_, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.opts.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	return err
}

// authorize checks the bearer token or the token query parameter. Browsers
// cannot set headers on websocket requests, hence the query fallback.
func (s *Server) authorize(r *http.Request) error {
	if s.opts.Secret == "" {
		return nil
	}
	tok := r.URL.Query().Get("token")
	if h := r.Header.Get("Authorization"); h != "" {
		var ok bool
		tok, ok = strings.CutPrefix(h, "Bearer ")
		if !ok {
			return fmt.Errorf("unsupported authorization scheme")
		}
	}
	if tok == "" {
		return errNoToken
	}
	return s.verifyToken(tok)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if s.opts.Secret == "" || s.opts.PasswordHash == "" {
		http.Error(w, "token issuing is not configured", http.StatusNotFound)
		return
	}
	password := r.PostFormValue("password")
	if err := bcrypt.CompareHashAndPassword([]byte(s.opts.PasswordHash), []byte(password)); err != nil {
		s.log.Warningf("rejected token request from %s", r.RemoteAddr)
		http.Error(w, "invalid password", http.StatusUnauthorized)
		return
	}

	tok, err := s.signToken(time.Now())
	if err != nil {
		s.log.Errorf("sign token: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"token": tok})
}
