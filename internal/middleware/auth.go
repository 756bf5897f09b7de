package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/ctxkeys"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/repository"
	"github.com/lukeboustridge-prog/Worldskills-sub001/internal/service"
)

// Auth resolves the JWT (cookie or bearer) and adds the user to the request
// context if valid. Requests without a valid token continue anonymously;
// RequireUser is the gate.
func Auth(authService *service.AuthService, userRepo repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := service.TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID, err := authService.VerifyToken(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			user, err := userRepo.ByID(userID)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctxkeys.WithUser(r.Context(), user)))
		})
	}
}

// RequireUser rejects unauthenticated requests with a JSON 401.
func RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.User(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	}
}
