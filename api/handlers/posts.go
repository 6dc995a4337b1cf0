package handlers

import (
	"net/http"
	"time"

	"github.com/lazypandaa/connect/api/middleware"
	"github.com/lazypandaa/connect/models"
	"github.com/lazypandaa/connect/services"

	"github.com/gin-gonic/gin"
)

var postService = services.NewPostService()

type CreatePostRequest struct {
	Caption    string `json:"caption"`
	ImageURL   string `json:"imageUrl"`
	Visibility string `json:"visibility"`
}

// CreatePost создает пост; imageUrl может быть ссылкой или data URI
func CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if !bindBody(c, &req) {
		return
	}

	started := time.Now()
	post, err := postService.Create(c.Request.Context(), currentUserID(c), req.Caption, req.ImageURL, models.Visibility(req.Visibility))
	middleware.RecordOperation("post_create", started, err)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{
		"message": "Post created successfully",
		"postId":  post.ID,
	})
}

// GetFeed - лента с пагинацией по id последнего поста
func GetFeed(c *gin.Context) {
	var req struct {
		LastID ID  `json:"lastId"`
		Limit  int `json:"limit"`
	}
	if !bindBody(c, &req) {
		return
	}

	feed, err := postService.Feed(c.Request.Context(), currentUserID(c), int64(req.LastID), req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"posts":   feed.Posts,
		"hasMore": feed.HasMore,
		"lastId":  feed.LastID,
	})
}

// GetUserPosts - посты пользователя (по умолчанию свои)
func GetUserPosts(c *gin.Context) {
	var req struct {
		UserID ID `json:"userId"`
	}
	if !bindBody(c, &req) {
		return
	}

	viewerID := currentUserID(c)
	ownerID := int64(req.UserID)
	if ownerID == 0 {
		ownerID = viewerID
	}
	posts, err := postService.UserPosts(c.Request.Context(), viewerID, ownerID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"posts": posts})
}

type postAction struct {
	PostID ID `json:"postId" binding:"required"`
}

func LikePost(c *gin.Context) {
	var req postAction
	if !bindBody(c, &req) {
		return
	}

	started := time.Now()
	likes, err := postService.Like(c.Request.Context(), currentUserID(c), int64(req.PostID))
	middleware.RecordOperation("post_like", started, err)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"likesCount": likes})
}

func UnlikePost(c *gin.Context) {
	var req postAction
	if !bindBody(c, &req) {
		return
	}
	likes, err := postService.Unlike(c.Request.Context(), currentUserID(c), int64(req.PostID))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"likesCount": likes})
}

func PostsAPITest(c *gin.Context) {
	respondOK(c, http.StatusOK, gin.H{"message": "API is running"})
}
