package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/terra-clan/studio-engine/internal/models"
	"github.com/terra-clan/studio-engine/internal/storage"
)

type contextKey string

const clientContextKey contextKey = "api_client"

// ClientFromContext extracts the authenticated staff client
func ClientFromContext(ctx context.Context) *models.ApiClient {
	client, ok := ctx.Value(clientContextKey).(*models.ApiClient)
	if !ok {
		return nil
	}
	return client
}

// ContextWithClient adds ApiClient to context
func ContextWithClient(ctx context.Context, client *models.ApiClient) context.Context {
	return context.WithValue(ctx, clientContextKey, client)
}

// AuthMiddleware guards the staff routes with API keys
type AuthMiddleware struct {
	repo storage.Repository
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(repo storage.Repository) *AuthMiddleware {
	return &AuthMiddleware{repo: repo}
}

// Authenticate verifies the staff API key.
// Accepts "Bearer sk_xxx" or "sk_xxx" in Authorization, the X-API-Key header,
// or an api_key query parameter for browser websockets.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := extractAPIKey(r)
		if apiKey == "" {
			respondError(w, http.StatusUnauthorized, "missing_api_key", "provide Authorization header with Bearer token or X-API-Key header")
			return
		}

		// Resolve the key to a staff client
		client, err := m.repo.GetClientByApiKey(r.Context(), apiKey)
		if err != nil {
			slog.Error("failed to lookup api client", "error", err, "key_prefix", maskKey(apiKey))
			respondError(w, http.StatusInternalServerError, "internal_error", "authentication error")
			return
		}

		if client == nil {
			slog.Warn("invalid api key attempt", "key_prefix", maskKey(apiKey), "remote_addr", r.RemoteAddr)
			respondError(w, http.StatusUnauthorized, "invalid_api_key", "the provided api key is not valid")
			return
		}

		if !client.IsActive {
			slog.Warn("inactive client attempt", "client", client.Name, "key_prefix", maskKey(apiKey))
			respondError(w, http.StatusUnauthorized, "client_inactive", "this api key has been deactivated")
			return
		}

		// Update last_used_at without blocking the request
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.repo.UpdateClientLastUsed(ctx, apiKey); err != nil {
				slog.Error("failed to update client last_used_at", "error", err, "client", client.Name)
			}
		}()

		slog.Debug("authenticated request", "client", client.Name, "key_prefix", client.MaskedApiKey())

		// Hand the client to the permission checks and handlers
		ctx := ContextWithClient(r.Context(), client)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission returns middleware that checks for specific permission
func (m *AuthMiddleware) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := ClientFromContext(r.Context())
			if client == nil {
				respondError(w, http.StatusUnauthorized, "not_authenticated", "authentication required")
				return
			}

			// Wildcards like bookings:* are resolved by HasPermission
			if !client.HasPermission(permission) {
				slog.Warn("permission denied",
					"client", client.Name,
					"required", permission,
					"has", client.Permissions,
				)
				respondError(w, http.StatusForbidden, "permission_denied",
					"client does not have required permission: "+permission)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractAPIKey reads the key from headers, then the query string
func extractAPIKey(r *http.Request) string {
	// Authorization wins, with or without the Bearer prefix
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}

	// Browsers cannot set headers on a websocket upgrade
	return r.URL.Query().Get("api_key")
}

// maskKey returns first 8 chars of key for safe logging
func maskKey(key string) string {
	if len(key) < 8 {
		return "***"
	}
	return key[:8] + "..."
}
