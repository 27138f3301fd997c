package middleware

import (
	"encoding/base64"
	"net/http"
	"strings"

	apperrors "gemini-gateway/internal/errors"
	"gemini-gateway/internal/httpformat"
	"github.com/gin-gonic/gin"
)

// AuthConfig holds authentication configuration
type AuthConfig struct {
	// RequiredKey is the expected shared secret (spec.md 4.1). Empty
	// disables auth, matching the teacher's "auth optional in dev" escape
	// hatch.
	RequiredKey string
	// AllowMultipleSources enables checking multiple header/query locations
	AllowMultipleSources bool
}

// UnifiedAuth accepts the caller iff one of the following equals
// cfg.RequiredKey (spec.md 4.1): the "key" query parameter, the
// x-goog-api-key header, a Bearer token in Authorization, the password half
// of Basic credentials in Authorization, or (for parity with the Anthropic
// SDK's default auth header) x-api-key.
func UnifiedAuth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip auth if no key is configured
		if cfg.RequiredKey == "" {
			c.Next()
			return
		}

		var providedKey string

		// Try Authorization header (Bearer token, or Basic with the key as
		// the password half — kept for parity with CLI tools that only
		// know how to send HTTP Basic auth).
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			switch {
			case strings.HasPrefix(strings.ToLower(authHeader), "bearer "):
				providedKey = strings.TrimSpace(authHeader[7:])
			case strings.HasPrefix(authHeader, "Basic "):
				if decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(authHeader[6:])); err == nil {
					if _, pass, ok := strings.Cut(string(decoded), ":"); ok {
						providedKey = pass
					}
				}
			default:
				providedKey = authHeader
			}
		}

		// Try x-goog-api-key header (Gemini style)
		if providedKey == "" || cfg.AllowMultipleSources {
			if key := c.GetHeader("x-goog-api-key"); key != "" {
				providedKey = key
			}
		}

		// Try x-api-key header (Claude/Anthropic style)
		if providedKey == "" || cfg.AllowMultipleSources {
			if key := c.GetHeader("x-api-key"); key != "" {
				providedKey = key
			}
		}

		// Try query parameter
		if providedKey == "" || cfg.AllowMultipleSources {
			if key := c.Query("key"); key != "" {
				providedKey = key
			}
		}

		// Validate the key
		if providedKey == "" {
			respondUnauthorized(c, "API key not provided")
			return
		}

		if providedKey != cfg.RequiredKey {
			respondUnauthorized(c, "Invalid API key")
			return
		}

		c.Set("api_key", providedKey)
		c.Next()
	}
}

func respondUnauthorized(c *gin.Context, message string) {
	err := apperrors.New(
		http.StatusUnauthorized,
		"invalid_api_key",
		"invalid_request_error",
		message,
	)
	c.Header("WWW-Authenticate", "Basic")
	format := httpformat.DetectFromContext(c)
	payload, marshalErr := err.ToJSON(format)
	if marshalErr != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"message": err.Message,
				"type":    err.Type,
				"code":    err.Code,
			},
		})
		c.Abort()
		return
	}
	c.Data(http.StatusUnauthorized, "application/json", payload)
	c.Abort()
}
