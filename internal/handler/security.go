package handler

import (
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/promo-engine/internal/domain/auth"
	"github.com/xenking/promo-engine/pkg/httpmiddleware"
)

// APIKeyHeader carries the client API key.
const APIKeyHeader = "api_key"

// RequireAPIKey authenticates requests via HMAC-SHA256 hashed API keys and
// rejects keys lacking scope.
func RequireAPIKey(apikeys auth.Repository, pepper []byte, scope string) httpmiddleware.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(APIKeyHeader)
			if key == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			hexHash := auth.HashKey(key, pepper)
			info, err := apikeys.FindByHash(r.Context(), hexHash)
			if err != nil {
				zctx.From(r.Context()).Debug("API key rejected", zap.Error(err))
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			// The stored row may be stale, so compare the hashes again.
			computed, _ := hex.DecodeString(hexHash)
			stored, err := hex.DecodeString(info.KeyHash)
			if err != nil || subtle.ConstantTimeCompare(computed, stored) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			if !info.HasScope(scope) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
