package handlers

import (
	"net/http"
	"time"

	"github.com/lazypandaa/connect/api/middleware"
	"github.com/lazypandaa/connect/services"

	"github.com/gin-gonic/gin"
)

var chatService = services.NewChatService()

// GetConversation - переписка с собеседником; входящие помечаются прочитанными
func GetConversation(c *gin.Context) {
	var req struct {
		FriendID ID `json:"friendId" binding:"required"`
	}
	if !bindBody(c, &req) {
		return
	}
	messages, err := chatService.Conversation(c.Request.Context(), currentUserID(c), int64(req.FriendID))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"messages": messages})
}

func SendMessage(c *gin.Context) {
	var req struct {
		ReceiverID  ID     `json:"receiverId" binding:"required"`
		MessageText string `json:"messageText"`
	}
	if !bindBody(c, &req) {
		return
	}
	sendMessage(c, int64(req.ReceiverID), req.MessageText)
}

// LegacySendMessage - /api/send-message старого клиента; sender_id из тела игнорируется
func LegacySendMessage(c *gin.Context) {
	var req struct {
		ReceiverID  ID     `json:"receiver_id" binding:"required"`
		MessageText string `json:"message_text"`
	}
	if !bindBody(c, &req) {
		return
	}
	sendMessage(c, int64(req.ReceiverID), req.MessageText)
}

func sendMessage(c *gin.Context, receiverID int64, text string) {
	started := time.Now()
	msg, err := chatService.Send(c.Request.Context(), currentUserID(c), receiverID, text)
	middleware.RecordOperation("message_send", started, err)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"messageId": msg.ID,
		"timestamp": msg.CreatedAt,
	})
}

func MarkMessagesRead(c *gin.Context) {
	var req struct {
		SenderID ID `json:"senderId" binding:"required"`
	}
	if !bindBody(c, &req) {
		return
	}
	markMessagesRead(c, int64(req.SenderID))
}

// LegacyMarkMessagesRead - /api/mark-messages-read; получатель всегда владелец токена
func LegacyMarkMessagesRead(c *gin.Context) {
	var req struct {
		SenderID ID `json:"sender_id" binding:"required"`
	}
	if !bindBody(c, &req) {
		return
	}
	markMessagesRead(c, int64(req.SenderID))
}

func markMessagesRead(c *gin.Context, senderID int64) {
	updated, err := chatService.MarkRead(c.Request.Context(), currentUserID(c), senderID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"updatedCount": updated})
}

func GetChatStatistics(c *gin.Context) {
	stats, err := chatService.Statistics(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"statistics": stats})
}

func GetUnreadCounts(c *gin.Context) {
	counts, err := chatService.UnreadCounts(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"unreadCounts": counts})
}

func GetLastMessages(c *gin.Context) {
	last, err := chatService.LastMessages(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"lastMessages": last})
}
