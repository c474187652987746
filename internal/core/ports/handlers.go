package ports

import (
	"github.com/gin-gonic/gin"
)

type LayoutHTTPHandler interface {
	HandleLayoutCreated(c *gin.Context)
	SubmitLayout(c *gin.Context)
	GetLatestLayout(c *gin.Context)
}

type SessionMonitorHTTPHandler interface {
	HandleSessionMonitoring(c *gin.Context)
	DisconnectParticipant(c *gin.Context)
}

type EventHTTPHandler interface {
	StartBroadcast(c *gin.Context)
	StopBroadcast(c *gin.Context)
}

type ConfigurationHTTPHandler interface {
	PutEventSession(c *gin.Context)
	PutChannelStack(c *gin.Context)
}
