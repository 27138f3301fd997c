// Package server assembles the gin engine: middleware stack, route
// registration, and the handler methods backing each public endpoint
// (spec.md 6).
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gemini-gateway/internal/gateway"
	"gemini-gateway/internal/middleware"
)

// Dependencies are the collaborators the engine needs beyond the gateway
// Core itself.
type Dependencies struct {
	Core *gateway.Core
	Log  *logrus.Entry
}

// BuildEngine constructs the gin.Engine serving every public endpoint.
func BuildEngine(deps Dependencies) *gin.Engine {
	cfg := deps.Core.Config()
	h := NewHandlers(deps.Core, deps.Log)

	engine := gin.New()
	applyStandardEngineSettings(engine)

	engine.Use(middleware.RequestID())
	engine.Use(middleware.RequestLogger())
	engine.Use(middleware.Recovery())
	engine.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	engine.GET("/", h.Root)
	engine.GET("/health", h.Health)

	authed := engine.Group("/")
	authed.Use(middleware.UnifiedAuth(middleware.AuthConfig{
		RequiredKey:          cfg.AuthPassword,
		AllowMultipleSources: true,
	}))

	registerOpenAIRoutes(authed, h)
	registerAnthropicRoutes(authed, h)
	registerGeminiRoutes(authed, h)

	return engine
}

// applyStandardEngineSettings matches the teacher's engine configuration:
// no default recovery (ours is custom), trusted proxies disabled since the
// gateway expects to sit directly behind its own listener or a trusted LB.
func applyStandardEngineSettings(engine *gin.Engine) {
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false
	_ = engine.SetTrustedProxies(nil)
}

func registerOpenAIRoutes(r gin.IRoutes, h *Handlers) {
	r.POST("/v1/chat/completions", h.ChatCompletions)
	r.POST("/v1/responses", h.Responses)
	r.GET("/v1/models", h.ListModelsOpenAI)
}

func registerAnthropicRoutes(r gin.IRoutes, h *Handlers) {
	r.POST("/v1/messages", h.Messages)
}

func registerGeminiRoutes(r gin.IRoutes, h *Handlers) {
	r.GET("/v1beta/models", h.ListModelsGemini)
	r.POST("/v1beta/models/:modelAction", h.dispatchModelAction)
}
