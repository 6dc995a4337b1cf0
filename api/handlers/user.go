package handlers

import (
	"net/http"
	"time"

	"github.com/lazypandaa/connect/api/middleware"
	"github.com/lazypandaa/connect/services"

	"github.com/gin-gonic/gin"
)

var userService = services.NewUserService()

type SignUpRequest struct {
	Fullname string `json:"fullname" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

func SignUp(c *gin.Context) {
	var req SignUpRequest
	if !bindBody(c, &req) {
		return
	}

	user, err := userService.Register(c.Request.Context(), req.Fullname, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user_id": user.ID,
	})
}

func SignIn(c *gin.Context) {
	var req SignInRequest
	if !bindBody(c, &req) {
		return
	}

	started := time.Now()
	token, user, err := userService.Login(c.Request.Context(), req.Email, req.Password)
	middleware.RecordOperation("signin", started, err)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"message":  "Login successful",
		"token":    token,
		"user_id":  user.ID,
		"fullname": user.Fullname,
	})
}

func SignOut(c *gin.Context) {
	if err := userService.Logout(c.Request.Context(), middleware.CurrentClaims(c)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Logout successful"})
}

func GetFullname(c *gin.Context) {
	user, err := userService.GetUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"fullname": user.Fullname})
}

func GetUserID(c *gin.Context) {
	respondOK(c, http.StatusOK, gin.H{"user_id": currentUserID(c)})
}

func ListUsers(c *gin.Context) {
	users, err := userService.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"users": users})
}

// SearchUsers - поиск по имени или email, без текущего пользователя
func SearchUsers(c *gin.Context) {
	var req SearchRequest
	if !bindBody(c, &req) {
		return
	}

	users, err := userService.SearchUsers(c.Request.Context(), currentUserID(c), req.Query)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"users": users})
}
