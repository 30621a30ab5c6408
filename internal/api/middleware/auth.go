package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hamzaawan7/blackcms/internal/api/response"
	"github.com/hamzaawan7/blackcms/internal/store"
	"github.com/hamzaawan7/blackcms/internal/tenant"
	"golang.org/x/crypto/bcrypt"
)

const keyPrefixLen = 8

// Auth validates API keys and attaches the resulting principal to the
// request context. It is the principal/session provider the tenant resolver
// consumes: the key's tenant becomes resolution tier 1, and any
// tenant-switch override stored for the key's session becomes tier 2's
// context value.
type Auth struct {
	store     store.Store
	overrides tenant.OverrideStore
}

// NewAuth creates the auth middleware.
func NewAuth(s store.Store, overrides tenant.OverrideStore) *Auth {
	return &Auth{store: s, overrides: overrides}
}

// Authenticate validates the Bearer token, looks up the API key, and sets
// the principal (and any session override) in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawKey := extractBearerToken(r)
		if rawKey == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Missing or invalid Authorization header", nil)
			return
		}

		if len(rawKey) < keyPrefixLen {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key format", nil)
			return
		}

		prefix := rawKey[:keyPrefixLen]

		keys, err := a.store.GetAPIKeyByPrefix(r.Context(), prefix)
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				"INTERNAL_ERROR", "Failed to validate API key", nil)
			return
		}

		var matched bool
		for _, key := range keys {
			if bcrypt.CompareHashAndPassword([]byte(key.KeyHash), []byte(rawKey)) == nil {
				ctx := tenant.WithPrincipal(r.Context(), &tenant.Principal{
					TenantID:  key.TenantID,
					Role:      key.Role,
					SessionID: prefix,
					Scopes:    key.Scopes,
				})
				active := key.TenantID
				if override, ok, err := a.overrides.GetOverride(ctx, prefix); err == nil && ok {
					ctx = tenant.WithOverride(ctx, override)
					active = &override
				}
				infoFrom(ctx).set(prefix, active)
				r = r.WithContext(ctx)
				matched = true

				// Update last_used_at async
				go a.store.UpdateAPIKeyLastUsed(context.Background(), key.ID)
				break
			}
		}

		if !matched {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Invalid API key", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// RequireScope returns middleware that checks whether the authenticated
// principal has the specified scope.
func (a *Auth) RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := tenant.PrincipalFrom(r.Context())
			if ok {
				for _, s := range p.Scopes {
					if s == scope {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			response.Error(w, http.StatusForbidden,
				"FORBIDDEN", "Insufficient permissions", nil)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
