package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lazypandaa/connect/db"
	"github.com/lazypandaa/connect/logger"
	"github.com/lazypandaa/connect/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 100

	FEED_VERSION_KEY = "feed:version" // номер поколения кеша ленты
	FEED_KEY_PREFIX  = "feed:"
)

var feedCacheTTL = 30 * time.Second

type PostService struct{}

func NewPostService() *PostService {
	return &PostService{}
}

// Create создает пост. Видимость по умолчанию public
func (ps *PostService) Create(ctx context.Context, ownerID int64, caption, imageData string, visibility models.Visibility) (*models.Post, error) {
	caption = strings.TrimSpace(caption)
	if caption == "" && imageData == "" {
		return nil, ErrEmptyPost
	}
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !visibility.Valid() {
		return nil, ErrInvalidVisibility
	}

	post := &models.Post{
		UserID:     ownerID,
		Caption:    caption,
		ImageData:  imageData,
		Visibility: visibility,
	}
	if err := db.GetWriteDB(ctx).Create(post).Error; err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	InvalidateFeeds(ctx)
	logger.L().Debug("post created", zap.Int64("post_id", post.ID), zap.Int64("user_id", ownerID))
	return post, nil
}

// Feed - посты, видимые пользователю: свои, публичные и "для друзей" от друзей.
// Пагинация по id: lastID - id последнего полученного поста.
func (ps *PostService) Feed(ctx context.Context, viewerID, lastID int64, limit int) (*models.FeedResponse, error) {
	switch {
	case limit <= 0:
		limit = DefaultFeedLimit
	case limit > MaxFeedLimit:
		limit = MaxFeedLimit
	}

	cacheKey := feedCacheKey(ctx, viewerID, lastID, limit)
	if feed, ok := getFeedFromCache(ctx, cacheKey); ok {
		return feed, nil
	}

	read := db.GetReadOnlyDB(ctx)
	friends, err := friendIDs(read, viewerID)
	if err != nil {
		return nil, err
	}
	blocked, err := blockedIDs(read, viewerID)
	if err != nil {
		return nil, err
	}

	query := feedQuery(read).
		Where("(p.user_id = ? OR p.visibility = ? OR (p.visibility = ? AND p.user_id IN ?))",
			viewerID, models.VisibilityPublic, models.VisibilityFriends, friends).
		Order("p.id DESC").
		Limit(limit + 1)
	// пустой NOT IN превращается в NOT IN (NULL) и отсекает все строки
	if len(blocked) > 0 {
		query = query.Where("p.user_id NOT IN ?", blocked)
	}
	if lastID > 0 {
		query = query.Where("p.id < ?", lastID)
	}

	var posts []models.FeedPost
	if err = query.Scan(&posts).Error; err != nil {
		return nil, fmt.Errorf("failed to get feed posts: %w", err)
	}

	feed := &models.FeedResponse{Posts: posts}
	if len(posts) > limit {
		feed.Posts = posts[:limit]
		feed.HasMore = true
	}
	if feed.Posts == nil {
		feed.Posts = []models.FeedPost{}
	}
	if n := len(feed.Posts); n > 0 {
		feed.LastID = feed.Posts[n-1].ID
	}

	cacheFeed(ctx, cacheKey, feed)
	return feed, nil
}

// UserPosts - посты автора, видимые пользователю
func (ps *PostService) UserPosts(ctx context.Context, viewerID, ownerID int64) ([]models.FeedPost, error) {
	if err := userExists(ctx, ownerID); err != nil {
		return nil, err
	}

	read := db.GetReadOnlyDB(ctx)
	query := feedQuery(read).Where("p.user_id = ?", ownerID)
	if viewerID != ownerID {
		edge, err := findEdge(read, viewerID, ownerID)
		if err != nil {
			return nil, err
		}
		if edge != nil && edge.Status == models.FriendBlocked {
			return []models.FeedPost{}, nil
		}
		visible := []models.Visibility{models.VisibilityPublic}
		if edge != nil && edge.Status == models.FriendAccepted {
			visible = append(visible, models.VisibilityFriends)
		}
		query = query.Where("p.visibility IN ?", visible)
	}

	posts := []models.FeedPost{}
	if err := query.Order("p.id DESC").Scan(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func feedQuery(tx *gorm.DB) *gorm.DB {
	return tx.Table("posts p").
		Select("p.id, p.user_id, u.fullname, u.email, p.caption, p.image_data, p.visibility, p.likes_count, p.created_at").
		Joins("JOIN users u ON u.id = p.user_id")
}

func loadPost(tx *gorm.DB, postID int64) (*models.Post, error) {
	var post models.Post
	err := tx.First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// loadVisiblePost возвращает пост, если пользователь может его видеть.
// Посты заблокированной пары считаются отсутствующими.
func loadVisiblePost(tx *gorm.DB, viewerID, postID int64) (*models.Post, error) {
	post, err := loadPost(tx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID == viewerID {
		return post, nil
	}

	edge, err := findEdge(tx, viewerID, post.UserID)
	if err != nil {
		return nil, err
	}
	switch {
	case edge != nil && edge.Status == models.FriendBlocked:
		return nil, ErrPostNotFound
	case post.Visibility == models.VisibilityPublic:
		return post, nil
	case post.Visibility == models.VisibilityFriends && edge != nil && edge.Status == models.FriendAccepted:
		return post, nil
	}
	return nil, ErrPostNotFound
}

// Like ставит отметку; повторный лайк того же пользователя счетчик не меняет
func (ps *PostService) Like(ctx context.Context, userID, postID int64) (int64, error) {
	var post *models.Post
	var liked bool
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		post, err = loadVisiblePost(tx, userID, postID)
		if err != nil {
			return err
		}

		var exists int64
		if err = tx.Model(&models.PostLike{}).Where("post_id = ? AND user_id = ?", postID, userID).Count(&exists).Error; err != nil {
			return err
		}
		if exists > 0 {
			return nil
		}

		if err = tx.Create(&models.PostLike{PostID: postID, UserID: userID}).Error; err != nil {
			return err
		}
		liked = true
		return tx.Model(&models.Post{}).Where("id = ?", postID).
			UpdateColumn("likes_count", gorm.Expr("likes_count + ?", 1)).Error
	})
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return 0, err
	}

	count, err := likesCount(ctx, postID)
	if err != nil {
		return 0, err
	}
	if liked {
		InvalidateFeeds(ctx)
		if post.UserID != userID {
			Notify(ctx, Event{Type: EventPostLiked, UserID: post.UserID, ActorID: userID, EntityID: postID})
		}
	}
	return count, nil
}

// Unlike снимает отметку пользователя. Видимость не проверяется:
// свой лайк можно снять и после потери доступа к посту
func (ps *PostService) Unlike(ctx context.Context, userID, postID int64) (int64, error) {
	var removed bool
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := loadPost(tx, postID); err != nil {
			return err
		}
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return tx.Model(&models.Post{}).Where("id = ? AND likes_count > 0", postID).
			UpdateColumn("likes_count", gorm.Expr("likes_count - ?", 1)).Error
	})
	if err != nil {
		return 0, err
	}
	if removed {
		InvalidateFeeds(ctx)
	}
	return likesCount(ctx, postID)
}

func likesCount(ctx context.Context, postID int64) (int64, error) {
	var post models.Post
	if err := db.GetWriteDB(ctx).Select("likes_count").First(&post, postID).Error; err != nil {
		return 0, err
	}
	return post.LikesCount, nil
}

// feedCacheKey включает поколение кеша: InvalidateFeeds сдвигает его,
// и все ранее закешированные ленты перестают читаться
func feedCacheKey(ctx context.Context, viewerID, lastID int64, limit int) string {
	if RedisClient == nil {
		return ""
	}
	version, err := RedisClient.Get(ctx, FEED_VERSION_KEY).Int64()
	if err != nil && err != redis.Nil {
		return ""
	}
	return fmt.Sprintf("%sv%d:%d:%d:%d", FEED_KEY_PREFIX, version, viewerID, lastID, limit)
}

func getFeedFromCache(ctx context.Context, key string) (*models.FeedResponse, bool) {
	if RedisClient == nil || key == "" {
		return nil, false
	}
	data, err := RedisClient.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var feed models.FeedResponse
	if err = json.Unmarshal(data, &feed); err != nil {
		return nil, false
	}
	return &feed, true
}

func cacheFeed(ctx context.Context, key string, feed *models.FeedResponse) {
	if RedisClient == nil || key == "" {
		return
	}
	data, err := json.Marshal(feed)
	if err != nil {
		return
	}
	if err = RedisClient.Set(ctx, key, data, feedCacheTTL).Err(); err != nil {
		logger.L().Warn("failed to cache feed", zap.Error(err))
	}
}

// InvalidateFeeds сбрасывает кеш всех лент
func InvalidateFeeds(ctx context.Context) {
	if RedisClient == nil {
		return
	}
	if err := RedisClient.Incr(ctx, FEED_VERSION_KEY).Err(); err != nil {
		logger.L().Warn("failed to invalidate feeds", zap.Error(err))
	}
}
