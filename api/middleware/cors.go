package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// DefaultOrigin - адрес веб-клиента, если список origin пуст
const DefaultOrigin = "http://localhost:5173"

// CORS разрешает запросы веб-клиента; "*" в списке открывает все origin
func CORS(origins []string) gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			conf.AllowAllOrigins = true
			conf.AllowCredentials = false
			return cors.New(conf)
		}
		if o != "" {
			allowed = append(allowed, o)
		}
	}
	// cors.New паникует без единого origin
	if len(allowed) == 0 {
		allowed = []string{DefaultOrigin}
	}
	conf.AllowOrigins = allowed
	return cors.New(conf)
}
