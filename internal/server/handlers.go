package server

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"gemini-gateway/internal/gateway"
	"gemini-gateway/internal/logging"
)

// Handlers groups every public endpoint's methods around the shared
// gateway Core.
type Handlers struct {
	core *gateway.Core
	log  *logrus.Entry
}

// NewHandlers constructs a Handlers bound to core.
func NewHandlers(core *gateway.Core, log *logrus.Entry) *Handlers {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handlers{core: core, log: log}
}

func logEntryFor(c *gin.Context) *logrus.Entry {
	return logging.WithReq(c, nil)
}
