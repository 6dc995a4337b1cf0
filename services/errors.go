package services

import "errors"

// Ошибки бизнес-правил. Хендлеры сопоставляют их с HTTP-статусами через errors.Is
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUserExists         = errors.New("Email already exists. Please use a different email.")
	ErrInvalidCredentials = errors.New("Invalid Credentials")
	ErrInvalidToken       = errors.New("Invalid or expired token")
	ErrUserNotFound       = errors.New("User not found")

	ErrSelfRelation       = errors.New("Cannot perform this action on yourself")
	ErrAlreadyFriends     = errors.New("Users are already friends")
	ErrRequestAlreadySent = errors.New("Friend request already sent")
	ErrBlocked            = errors.New("Cannot interact with this user")
	ErrRequestNotFound    = errors.New("Friend request not found")
	ErrNotRecipient       = errors.New("This friend request is addressed to another user")
	ErrInvalidTransition  = errors.New("Friend request is not pending")
	ErrNotFriends         = errors.New("Users are not friends")
	ErrNoRelationship     = errors.New("No relationship with this user")
	ErrNotBlocked         = errors.New("This user is not blocked")

	ErrEmptyMessage = errors.New("Message text is empty")

	ErrEmptyPost         = errors.New("Post must have a caption or an image")
	ErrInvalidVisibility = errors.New("Visibility must be one of public, friends, private")
	ErrPostNotFound      = errors.New("Post not found")
)
