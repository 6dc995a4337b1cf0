package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/lazypandaa/connect/api/middleware"
	"github.com/lazypandaa/connect/logger"
	"github.com/lazypandaa/connect/services"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"
)

// ID - идентификатор из тела запроса; клиент шлет его и числом, и строкой
type ID int64

func (id *ID) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*id = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", s)
	}
	*id = ID(v)
	return nil
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(middleware.UserIDKey)
}

// bindBody разбирает JSON-тело (оно уже могло быть прочитано AuthMiddleware).
// Пустое тело допустимо, если в запросе нет обязательных полей
func bindBody(c *gin.Context, req interface{}) bool {
	err := c.ShouldBindBodyWith(req, binding.JSON)
	if errors.Is(err, io.EOF) {
		err = binding.Validator.ValidateStruct(req)
	}
	if err != nil {
		respondStatus(c, http.StatusBadRequest, "Invalid request: "+err.Error())
		return false
	}
	return true
}

func respondOK(c *gin.Context, code int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["status"] = "success"
	c.JSON(code, body)
}

func respondStatus(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"status": "error", "message": message})
}

// respondError переводит ошибку сервиса в HTTP-ответ.
// Внутренние ошибки логируются, клиент получает общий текст.
func respondError(c *gin.Context, err error) {
	code := errorStatus(err)
	if code == http.StatusInternalServerError {
		logger.L().Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int64("user_id", currentUserID(c)),
			zap.Error(err))
		_ = c.Error(err)
		respondStatus(c, code, "internal server error")
		return
	}
	respondStatus(c, code, err.Error())
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrSelfRelation),
		errors.Is(err, services.ErrEmptyMessage),
		errors.Is(err, services.ErrEmptyPost),
		errors.Is(err, services.ErrInvalidVisibility):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrBlocked),
		errors.Is(err, services.ErrNotRecipient):
		return http.StatusForbidden
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrRequestNotFound),
		errors.Is(err, services.ErrPostNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUserExists),
		errors.Is(err, services.ErrAlreadyFriends),
		errors.Is(err, services.ErrRequestAlreadySent),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrNotFriends),
		errors.Is(err, services.ErrNoRelationship),
		errors.Is(err, services.ErrNotBlocked):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
