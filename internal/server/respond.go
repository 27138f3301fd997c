package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "gemini-gateway/internal/errors"
	"gemini-gateway/internal/gateway"
	"gemini-gateway/internal/httpformat"
	"gemini-gateway/internal/logging"
	"gemini-gateway/internal/oauth"
	"gemini-gateway/internal/onboard"
	"gemini-gateway/internal/project"
)

// writeError renders err in the public schema the request path implies and
// logs it at a level appropriate to its criticality.
func writeError(c *gin.Context, err error) {
	format := httpformat.DetectFromContext(c)
	apiErr := toAPIError(err)

	entry := logging.WithReq(c, nil)
	if apiErr.IsCritical() {
		entry.WithError(err).Error("request failed")
	} else {
		entry.WithError(err).Warn("request failed")
	}

	payload, marshalErr := apiErr.ToJSON(format)
	if marshalErr != nil {
		c.JSON(apiErr.HTTPStatus, gin.H{"error": gin.H{"message": apiErr.Message}})
		return
	}
	c.Data(apiErr.HTTPStatus, "application/json", payload)
}

// toAPIError classifies an error from the gateway/upstream layers into a
// standardized APIError. The readiness-sequence failures named in spec.md 7
// (AuthFailed, NoRefreshToken, ProjectUndiscoverable, ProjectRequired,
// OnboardingFailed, OnboardingTimeout) surface as 500 with a descriptive
// message; everything else not already an *APIError falls back to the
// network/transport classifier.
func toAPIError(err error) *apperrors.APIError {
	switch {
	case errors.Is(err, gateway.ErrNoCredential):
		return apperrors.New(http.StatusUnauthorized, "no_credential", "authentication_error", "no OAuth credential is loaded; run the auth CLI to add one")
	case errors.Is(err, oauth.ErrNoRefreshToken):
		return apperrors.New(http.StatusInternalServerError, "no_refresh_token", "authentication_error", "credential has no refresh_token: "+err.Error())
	case errors.Is(err, oauth.ErrAuthFailed), errors.Is(err, oauth.ErrListenerTimeout):
		return apperrors.New(http.StatusInternalServerError, "auth_failed", "authentication_error", "authentication failed: "+err.Error())
	case errors.Is(err, project.ErrUndiscoverable):
		return apperrors.New(http.StatusInternalServerError, "project_undiscoverable", "server_error", "could not resolve a Google Cloud project for this identity: "+err.Error())
	case errors.Is(err, onboard.ErrProjectRequired):
		return apperrors.New(http.StatusInternalServerError, "project_required", "server_error", "the selected Code Assist tier requires a project id: "+err.Error())
	case errors.Is(err, onboard.ErrTimeout):
		return apperrors.New(http.StatusInternalServerError, "onboarding_timeout", "server_error", "onboarding did not complete in time: "+err.Error())
	case errors.Is(err, onboard.ErrFailed):
		return apperrors.New(http.StatusInternalServerError, "onboarding_failed", "server_error", err.Error())
	case errors.Is(err, io.ErrUnexpectedEOF):
		return apperrors.MapNetworkError(err)
	}
	return apperrors.MapNetworkError(err)
}

// writeUpstreamError reads resp's body (already known non-2xx) and renders
// it in the public schema the request path implies.
func writeUpstreamError(c *gin.Context, resp *http.Response) {
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	format := httpformat.DetectFromContext(c)
	apiErr := apperrors.MapHTTPError(resp.StatusCode, body)
	logging.WithReq(c, nil).WithField("status", resp.StatusCode).Warn("upstream returned an error")
	payload, marshalErr := apiErr.ToJSON(format)
	if marshalErr != nil {
		c.JSON(apiErr.HTTPStatus, gin.H{"error": gin.H{"message": apiErr.Message}})
		return
	}
	c.Data(apiErr.HTTPStatus, "application/json", payload)
}
