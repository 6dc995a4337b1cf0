package handlers

import (
	"net/http"
	"time"

	"github.com/lazypandaa/connect/api/middleware"
	"github.com/lazypandaa/connect/models"
	"github.com/lazypandaa/connect/services"

	"github.com/gin-gonic/gin"
)

var friendService = services.NewFriendService()

// SendFriendRequest - заявка в друзья; встречная заявка сразу принимается
func SendFriendRequest(c *gin.Context) {
	var req struct {
		ReceiverID ID `json:"receiverId" binding:"required"`
	}
	if !bindBody(c, &req) {
		return
	}

	started := time.Now()
	edge, err := friendService.SendRequest(c.Request.Context(), currentUserID(c), int64(req.ReceiverID))
	middleware.RecordOperation("friend_request", started, err)
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Friend request sent"
	if edge.Status == models.FriendAccepted {
		message = "Friend request accepted"
	}
	respondOK(c, http.StatusOK, gin.H{
		"message":          message,
		"requestId":        edge.ID,
		"friendshipStatus": edge.Status,
	})
}

type requestAction struct {
	RequestID ID `json:"requestId" binding:"required"`
}

func AcceptFriendRequest(c *gin.Context) {
	var req requestAction
	if !bindBody(c, &req) {
		return
	}
	if _, err := friendService.Accept(c.Request.Context(), currentUserID(c), int64(req.RequestID)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Friend request accepted"})
}

func RejectFriendRequest(c *gin.Context) {
	var req requestAction
	if !bindBody(c, &req) {
		return
	}
	if _, err := friendService.Reject(c.Request.Context(), currentUserID(c), int64(req.RequestID)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Friend request rejected"})
}

func RemoveFriend(c *gin.Context) {
	var req struct {
		FriendID ID `json:"friendId" binding:"required"`
	}
	if !bindBody(c, &req) {
		return
	}
	if err := friendService.Remove(c.Request.Context(), currentUserID(c), int64(req.FriendID)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Friend removed"})
}

type targetUser struct {
	UserID ID `json:"userId" binding:"required"`
}

func BlockUser(c *gin.Context) {
	var req targetUser
	if !bindBody(c, &req) {
		return
	}
	if err := friendService.Block(c.Request.Context(), currentUserID(c), int64(req.UserID)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "User blocked"})
}

func UnblockUser(c *gin.Context) {
	var req targetUser
	if !bindBody(c, &req) {
		return
	}
	if err := friendService.Unblock(c.Request.Context(), currentUserID(c), int64(req.UserID)); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "User unblocked"})
}

func GetFriends(c *gin.Context) {
	friends, err := friendService.Friends(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"friends": friends})
}

// GetPendingRequests - входящие заявки
func GetPendingRequests(c *gin.Context) {
	requests, err := friendService.PendingRequests(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"requests": requests})
}

// GetSentRequests - исходящие заявки
func GetSentRequests(c *gin.Context) {
	requests, err := friendService.SentRequests(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"requests": requests})
}

func SearchFriendCandidates(c *gin.Context) {
	var req SearchRequest
	if !bindBody(c, &req) {
		return
	}
	users, err := friendService.Search(c.Request.Context(), currentUserID(c), req.Query)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"users": users})
}

func GetSuggestions(c *gin.Context) {
	suggestions, err := friendService.Suggestions(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"suggestions": suggestions})
}

func CheckFriendshipStatus(c *gin.Context) {
	var req struct {
		OtherUserID ID `json:"otherUserId" binding:"required"`
	}
	if !bindBody(c, &req) {
		return
	}
	status, sent, err := friendService.Status(c.Request.Context(), currentUserID(c), int64(req.OtherUserID))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"friendshipStatus": status,
		"requestSent":      sent,
	})
}
