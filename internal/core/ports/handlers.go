package ports

import (
	"github.com/gin-gonic/gin"
)

type HTTPHandler interface {
	ListNodes(c *gin.Context)
	ListPairs(c *gin.Context)
	GetLatency(c *gin.Context)
	GetSnapshot(c *gin.Context)
	GetSnapshotGeoJSON(c *gin.Context)
	GetRegions(c *gin.Context)
	GetHistory(c *gin.Context)
	PushFeed(c *gin.Context)
}

type StreamHandler interface {
	HandleStream(c *gin.Context)
}
