package handlers

import (
	"net/http"

	"github.com/lazypandaa/connect/db"

	"github.com/gin-gonic/gin"
)

// Health проверяет соединение с базой
func Health(c *gin.Context) {
	sqlDB, err := db.GetWriteDB(c.Request.Context()).DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		respondStatus(c, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "ok"})
}
