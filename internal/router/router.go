package router

import (
	"net/http"

	"phrasecut/internal/handler"

	"github.com/gin-gonic/gin"
)

func SetupRouter(r *gin.Engine, hdl handler.Handler) {
	api := r.Group("/api")
	{
		api.GET("/health", hdl.Health)
		api.GET("/index", hdl.ListIndex)
		api.POST("/index", hdl.BuildIndex)
		api.POST("/index/reload", hdl.ReloadIndex)
		api.POST("/query", hdl.Query)
		api.GET("/clips", hdl.ListClipRuns)
		api.POST("/clips", hdl.StartClips)
		api.GET("/clips/:runId", hdl.GetClipRun)
		api.POST("/clips/:runId/retry", hdl.RetryClipRun)
		api.POST("/file", hdl.UploadFile)
		api.GET("/file/*filepath", hdl.DownloadFile)
		api.HEAD("/file/*filepath", hdl.DownloadFile)
	}

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/api/health")
	})
}
