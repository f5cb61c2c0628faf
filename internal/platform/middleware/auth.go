package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "certtrack/pkg/domain"
	"certtrack/pkg/requestcontext"
)

// IdentityClaims are the JWT claims the gateway in front of this service
// asserts. Subject carries the person id.
type IdentityClaims struct {
	jwt.RegisteredClaims
	TenantID  string   `json:"tid"`
	Roles     []string `json:"roles"`
	SchoolIDs []string `json:"schools,omitempty"`
}

// Validator verifies identity assertions signed with a shared HMAC key.
type Validator struct {
	signingKey []byte
}

// NewValidator constructs a Validator for the given signing key.
func NewValidator(signingKey string) *Validator {
	return &Validator{signingKey: []byte(signingKey)}
}

// ValidateToken parses and verifies a token and maps its claims onto a
// domain identity.
func (v *Validator) ValidateToken(tokenString string) (*id.Identity, error) {
	claims := &IdentityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return v.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	tenantID, err := id.ParseTenantID(claims.TenantID)
	if err != nil {
		return nil, fmt.Errorf("token tenant id: %w", err)
	}
	personID, err := id.ParsePersonID(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("token subject: %w", err)
	}

	identity := &id.Identity{TenantID: tenantID, PersonID: personID}
	for _, r := range claims.Roles {
		identity.Roles = append(identity.Roles, id.Role(r))
	}
	for _, s := range claims.SchoolIDs {
		schoolID, err := id.ParseSchoolID(s)
		if err != nil {
			return nil, fmt.Errorf("token school id: %w", err)
		}
		identity.SchoolIDs = append(identity.SchoolIDs, schoolID)
	}
	return identity, nil
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireAuth rejects requests without a valid bearer token and stores the
// asserted identity in the request context for services to scope against.
func RequireAuth(validator *Validator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			identity, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = requestcontext.WithIdentity(ctx, *identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
