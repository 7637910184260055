package middleware

import (
	"fmt"
	"net/http"

	"github.com/cloo-solutions/transcriptrag/internal/api"
	"github.com/cloo-solutions/transcriptrag/internal/domain"
)

// MaxBodyBytes caps request bodies at limit bytes. A declared length over the
// cap is refused before the handler runs; bodies without a length are cut
// off by the reader and fail decoding with domain.ErrBodyTooLarge.
func MaxBodyBytes(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 || r.Body == nil {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > limit {
				api.JSON(w, http.StatusRequestEntityTooLarge, api.ErrorResponse{
					Error: fmt.Sprintf("%s: transcript uploads are limited to %d bytes", domain.ErrBodyTooLarge.Message, limit),
					Code:  domain.ErrCodeValidation,
				})
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
