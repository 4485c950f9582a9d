package server

import (
	"net/http"
	"strings"

	"github.com/mpapenbr/tirecast/log"
	"github.com/mpapenbr/tirecast/pkg/utils"
)

const tokenHeader = "api-token"

// requireToken rejects api and websocket requests without the configured
// token. Browsers cannot set headers on websocket requests, so the token
// is also accepted as query parameter there.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiTokenHash == "" || !protected(r.URL.Path) || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		token := r.Header.Get(tokenHeader)
		if token == "" && strings.HasPrefix(r.URL.Path, "/ws/") {
			token = r.URL.Query().Get(tokenHeader)
		}
		if !utils.TokenMatches(token, s.apiTokenHash) {
			s.l.Debug("request rejected", log.String("path", r.URL.Path))
			http.Error(w, "permission denied", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func protected(path string) bool {
	return strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/ws/")
}
