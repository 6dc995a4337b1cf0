package routes

import (
	"github.com/lazypandaa/connect/api/handlers"
	"github.com/lazypandaa/connect/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PublicApi регистрирует все маршруты. authLimiter ограничивает signup/signin, может быть nil
func PublicApi(router *gin.Engine, authLimiter *middleware.IPRateLimiter) {
	auth := middleware.AuthMiddleware()

	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", auth, handlers.EventsWS)

	users := router.Group("/users")
	{
		if authLimiter != nil {
			users.POST("signup", authLimiter.Middleware(), handlers.SignUp)
			users.POST("signin", authLimiter.Middleware(), handlers.SignIn)
		} else {
			users.POST("signup", handlers.SignUp)
			users.POST("signin", handlers.SignIn)
		}
		users.POST("signout", auth, handlers.SignOut)
		users.POST("getfullname", auth, handlers.GetFullname)
		users.POST("getuserid", auth, handlers.GetUserID)
		users.GET("all", auth, handlers.ListUsers)
	}

	router.POST("/api/search/users", auth, handlers.SearchUsers)

	// Друзья
	friends := router.Group("/friends", auth)
	{
		friends.POST("send-request", handlers.SendFriendRequest)
		friends.POST("accept-request", handlers.AcceptFriendRequest)
		friends.POST("reject-request", handlers.RejectFriendRequest)
		friends.POST("remove-friend", handlers.RemoveFriend)
		friends.POST("block-user", handlers.BlockUser)
		friends.POST("unblock-user", handlers.UnblockUser)
		friends.POST("get-friends", handlers.GetFriends)
		friends.POST("pending-requests", handlers.GetPendingRequests)
		friends.POST("sent-requests", handlers.GetSentRequests)
		friends.POST("search-users", handlers.SearchFriendCandidates)
		friends.POST("suggestions", handlers.GetSuggestions)
		friends.POST("check-status", handlers.CheckFriendshipStatus)
	}

	// Сообщения
	chat := router.Group("/api/chat", auth)
	{
		chat.POST("messages", handlers.GetConversation)
		chat.POST("send", handlers.SendMessage)
		chat.POST("read", handlers.MarkMessagesRead)
		chat.POST("statistics", handlers.GetChatStatistics)
		chat.POST("unread", handlers.GetUnreadCounts)
		chat.POST("last", handlers.GetLastMessages)
	}
	// старые пути веб-клиента
	router.POST("/api/messages", auth, handlers.GetConversation)
	router.POST("/api/send-message", auth, handlers.LegacySendMessage)
	router.POST("/api/mark-messages-read", auth, handlers.LegacyMarkMessagesRead)

	// Посты
	router.GET("/api/posts/test", handlers.PostsAPITest)
	posts := router.Group("/api/posts", auth)
	{
		posts.POST("create", handlers.CreatePost)
		posts.POST("feed", handlers.GetFeed)
		posts.POST("user", handlers.GetUserPosts)
		posts.POST("like", handlers.LikePost)
		posts.POST("unlike", handlers.UnlikePost)
	}
}
