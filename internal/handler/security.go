package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/agrovalue/marketplace-api/internal/domain/user"
)

// identityKey is the context key for the authenticated identity.
type identityKey struct{}

// identityFrom extracts the authenticated identity stored by requireRole.
func identityFrom(ctx context.Context) (user.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(user.Identity)
	return id, ok
}

// requireRole authenticates the request's bearer token and checks the
// caller's role before invoking next. The verified identity is stored in the
// request context and passed explicitly into domain calls by the handlers.
func (h *Handler) requireRole(next http.HandlerFunc, roles ...user.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		identity, err := h.auth.Verify(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		allowed := false
		for _, role := range roles {
			if identity.Role == role {
				allowed = true
				break
			}
		}
		if !allowed {
			respondError(w, http.StatusForbidden, "insufficient role")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, *identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// verifyWebhookSignature checks the HMAC-SHA256 signature the processor puts
// on webhook deliveries. Constant-time comparison guards against timing
// side-channels.
func verifyWebhookSignature(secret, body []byte, signatureHex string) bool {
	sig, err := hex.DecodeString(signatureHex)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), sig)
}
