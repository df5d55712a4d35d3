package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"rifa-web-app/internal/apperrors"
	"rifa-web-app/internal/identity"
	"rifa-web-app/internal/logger"
	"rifa-web-app/internal/models"
)

type claimsKey struct{}

// AdminDirectory maps an authenticated email to its staff account.
// Satisfied by the store.
type AdminDirectory interface {
	GetAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error)
}

// Authenticator resolves staff credentials into explicit StaffClaims.
// Two paths: a bearer token verified against the identity provider, or a
// break-glass BasicAuth fallback for the superadmin.
type Authenticator struct {
	verifier      identity.Verifier
	admins        AdminDirectory
	adminPassword string
	log           *logger.Logger
}

func NewAuthenticator(verifier identity.Verifier, admins AdminDirectory, adminPassword string, log *logger.Logger) *Authenticator {
	return &Authenticator{
		verifier:      verifier,
		admins:        admins,
		adminPassword: adminPassword,
		log:           log,
	}
}

// RequireStaff authenticates the request and injects StaffClaims into the
// context. Role enforcement per operation happens in the services; this
// only establishes who is calling.
func (a *Authenticator) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if claims, ok := a.checkBasicAuth(r); ok {
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
			return
		}

		token := bearerToken(r)
		if token == "" {
			w.Header().Set("WWW-Authenticate", `Basic realm="Rifa Admin"`)
			http.Error(w, "Acceso denegado: no autorizado", http.StatusUnauthorized)
			return
		}

		email, err := a.verifier.Verify(r.Context(), token)
		if err != nil {
			a.fail(w, err)
			return
		}

		admin, err := a.admins.GetAdminByEmail(r.Context(), models.NormalizeEmail(email))
		if err != nil {
			// An authenticated user without an admin row is simply not
			// staff; report it the same way as a bad role.
			if errors.Is(err, apperrors.ErrNotFound) {
				err = apperrors.ErrNotAuthorized
			}
			a.fail(w, err)
			return
		}

		claims := models.StaffClaims{AdminID: admin.ID, Email: admin.Email, Role: admin.Role}
		a.log.Debugf("Staff authenticated: %s (%s)", claims.Email, claims.Role)
		next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
	})
}

func (a *Authenticator) checkBasicAuth(r *http.Request) (models.StaffClaims, bool) {
	if a.adminPassword == "" {
		return models.StaffClaims{}, false
	}
	user, pass, ok := r.BasicAuth()
	if !ok || user != "admin" {
		return models.StaffClaims{}, false
	}
	if subtle.ConstantTimeCompare([]byte(pass), []byte(a.adminPassword)) != 1 {
		return models.StaffClaims{}, false
	}
	return models.StaffClaims{Email: "admin", Role: models.RoleSuperadmin}, true
}

func (a *Authenticator) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, apperrors.ErrNotAuthorized) {
		http.Error(w, "Acceso denegado: no autorizado", http.StatusForbidden)
		return
	}
	a.log.Errorf("Staff authentication failed: %v", err)
	http.Error(w, "Error de autenticación", http.StatusBadGateway)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[len("Bearer "):])
}

func withClaims(ctx context.Context, claims models.StaffClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFrom extracts the staff claims the middleware resolved.
func ClaimsFrom(r *http.Request) (models.StaffClaims, bool) {
	claims, ok := r.Context().Value(claimsKey{}).(models.StaffClaims)
	return claims, ok
}
