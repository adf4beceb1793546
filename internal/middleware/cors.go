package middleware

import (
	"net/http"

	"github.com/rs/cors"

	"crm-backend/internal/config"
)

// NewCORS builds the CORS wrapper from the configured origins. Credentials
// are allowed because the frontend sends the JWT cookie on every call.
func NewCORS(cfg *config.Config) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CorsAllowedOrigins,
		AllowedMethods:   cfg.Server.CorsAllowedMethods,
		AllowedHeaders:   cfg.Server.CorsAllowedHeaders,
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
