package health

import (
	"net/http"
	"time"

	"github.com/ethanbaker/minutes/pkg/sdk"
	"github.com/gin-gonic/gin"
)

var started = time.Now()

// Status is the body of a health check
type Status struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// getStatus reports that the API is up
func getStatus(c *gin.Context) {
	status := Status{
		Status: "ok",
		Uptime: time.Since(started).Round(time.Second).String(),
	}

	c.JSON(sdk.NewSuccessResponse("Service is healthy", status).WithCode(http.StatusOK).AsGinResponse())
}
