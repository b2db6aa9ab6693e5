package middleware

import (
	"github.com/go-chi/cors"
)

// CORSHandler builds the CORS policy for the upload and caption API. With no
// configured origins it falls back to a wildcard, which also drops credential
// support since the two cannot be combined safely.
func CORSHandler(allowedOrigins []string) cors.Options {
	wildcard := len(allowedOrigins) == 0
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
		}
	}
	if wildcard {
		allowedOrigins = []string{"*"}
	}

	return cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		// Authorization carries the caller token; chunk PUTs send raw bodies
		// with an explicit Content-Type.
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	}
}
