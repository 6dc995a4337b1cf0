package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lazypandaa/connect/db"
	"github.com/lazypandaa/connect/logger"
	"github.com/lazypandaa/connect/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StatusNone - между пользователями нет ребра
const StatusNone = "none"

// FriendService - заявки в друзья, блокировки, списки и рекомендации
type FriendService struct{}

func NewFriendService() *FriendService {
	return &FriendService{}
}

// findEdge возвращает ребро пары или nil
func findEdge(tx *gorm.DB, a, b int64) (*models.Friend, error) {
	low, high := models.PairKey(a, b)
	var edge models.Friend
	err := tx.Where("user_low_id = ? AND user_high_id = ?", low, high).First(&edge).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &edge, nil
}

// SendRequest - создать заявку в друзья.
// Встречная заявка принимается, отклоненная отправляется заново.
func (s *FriendService) SendRequest(ctx context.Context, senderID, receiverID int64) (*models.Friend, error) {
	if senderID == receiverID {
		return nil, ErrSelfRelation
	}
	if err := userExists(ctx, receiverID); err != nil {
		return nil, err
	}

	var edge *models.Friend
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := findEdge(tx, senderID, receiverID)
		if err != nil {
			return err
		}
		if existing == nil {
			edge = models.NewFriend(senderID, receiverID, models.FriendPending)
			return tx.Create(edge).Error
		}

		switch existing.Status {
		case models.FriendAccepted:
			return ErrAlreadyFriends
		case models.FriendBlocked:
			return ErrBlocked
		case models.FriendPending:
			if existing.SenderID == senderID {
				return ErrRequestAlreadySent
			}
			existing.Status = models.FriendAccepted
		case models.FriendRejected:
			existing.SenderID, existing.ReceiverID = senderID, receiverID
			existing.Status = models.FriendPending
		}
		edge = existing
		return tx.Save(existing).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// другая заявка этой пары создана параллельно
		return nil, ErrRequestAlreadySent
	}
	if err != nil {
		return nil, err
	}

	if edge.Status == models.FriendAccepted {
		InvalidateFeeds(ctx)
		Notify(ctx, Event{Type: EventFriendAccepted, UserID: receiverID, ActorID: senderID, EntityID: edge.ID})
	} else {
		Notify(ctx, Event{Type: EventFriendRequest, UserID: receiverID, ActorID: senderID, EntityID: edge.ID})
	}
	logger.L().Info("friend request",
		zap.Int64("sender_id", senderID),
		zap.Int64("receiver_id", receiverID),
		zap.String("status", string(edge.Status)))
	return edge, nil
}

// Accept - подтвердить заявку (только получатель, только pending)
func (s *FriendService) Accept(ctx context.Context, userID, requestID int64) (*models.Friend, error) {
	edge, err := s.respond(ctx, userID, requestID, models.FriendAccepted)
	if err != nil {
		return nil, err
	}
	InvalidateFeeds(ctx)
	Notify(ctx, Event{Type: EventFriendAccepted, UserID: edge.SenderID, ActorID: userID, EntityID: edge.ID})
	return edge, nil
}

// Reject - отклонить заявку (только получатель, только pending)
func (s *FriendService) Reject(ctx context.Context, userID, requestID int64) (*models.Friend, error) {
	return s.respond(ctx, userID, requestID, models.FriendRejected)
}

func (s *FriendService) respond(ctx context.Context, userID, requestID int64, status models.FriendStatus) (*models.Friend, error) {
	var edge models.Friend
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&edge, requestID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRequestNotFound
		}
		if err != nil {
			return err
		}
		if edge.ReceiverID != userID {
			return ErrNotRecipient
		}
		if edge.Status != models.FriendPending {
			return fmt.Errorf("%w (status: %s)", ErrInvalidTransition, edge.Status)
		}
		edge.Status = status
		return tx.Save(&edge).Error
	})
	if err != nil {
		return nil, err
	}
	return &edge, nil
}

// Remove - удалить друга
func (s *FriendService) Remove(ctx context.Context, userID, friendID int64) error {
	if err := userExists(ctx, friendID); err != nil {
		return err
	}
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		edge, err := findEdge(tx, userID, friendID)
		if err != nil {
			return err
		}
		if edge == nil || edge.Status != models.FriendAccepted {
			return ErrNotFriends
		}
		return tx.Delete(edge).Error
	})
	if err == nil {
		InvalidateFeeds(ctx)
	}
	return err
}

// Block переводит существующее ребро в blocked; блокирующий становится отправителем
func (s *FriendService) Block(ctx context.Context, userID, targetID int64) error {
	if userID == targetID {
		return ErrSelfRelation
	}
	if err := userExists(ctx, targetID); err != nil {
		return err
	}
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		edge, err := findEdge(tx, userID, targetID)
		if err != nil {
			return err
		}
		if edge == nil {
			return ErrNoRelationship
		}
		if edge.Status == models.FriendBlocked {
			if edge.SenderID == userID {
				return nil
			}
			// нас уже заблокировали, перехватывать чужую блокировку нельзя
			return ErrBlocked
		}
		edge.SenderID, edge.ReceiverID = userID, targetID
		edge.Status = models.FriendBlocked
		return tx.Save(edge).Error
	})
	if err == nil {
		InvalidateFeeds(ctx)
		logger.L().Info("user blocked", zap.Int64("user_id", userID), zap.Int64("target_id", targetID))
	}
	return err
}

// Unblock снимает блокировку, поставленную этим пользователем; ребро удаляется
func (s *FriendService) Unblock(ctx context.Context, userID, targetID int64) error {
	if err := userExists(ctx, targetID); err != nil {
		return err
	}
	err := db.GetWriteDB(ctx).Transaction(func(tx *gorm.DB) error {
		edge, err := findEdge(tx, userID, targetID)
		if err != nil {
			return err
		}
		if edge == nil || edge.Status != models.FriendBlocked || edge.SenderID != userID {
			return ErrNotBlocked
		}
		return tx.Delete(edge).Error
	})
	if err == nil {
		InvalidateFeeds(ctx)
	}
	return err
}

// friendIDs - id друзей пользователя
func friendIDs(tx *gorm.DB, userID int64) ([]int64, error) {
	var ids []int64
	err := tx.Model(&models.Friend{}).
		Where("(sender_id = ? OR receiver_id = ?) AND status = ?", userID, userID, models.FriendAccepted).
		Select("CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END", userID).
		Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get friends: %w", err)
	}
	return ids, nil
}

// blockedIDs - пользователи, с которыми есть блокировка в любую сторону
func blockedIDs(tx *gorm.DB, userID int64) ([]int64, error) {
	var ids []int64
	err := tx.Model(&models.Friend{}).
		Where("(sender_id = ? OR receiver_id = ?) AND status = ?", userID, userID, models.FriendBlocked).
		Select("CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END", userID).
		Scan(&ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get blocked users: %w", err)
	}
	return ids, nil
}

// Friends - список друзей пользователя
func (s *FriendService) Friends(ctx context.Context, userID int64) ([]models.UserInfo, error) {
	ids, err := friendIDs(db.GetReadOnlyDB(ctx), userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []models.UserInfo{}, nil
	}
	var users []models.User
	if err = db.GetReadOnlyDB(ctx).Where("id IN ?", ids).Order("fullname, id").Find(&users).Error; err != nil {
		return nil, err
	}
	return toInfos(users), nil
}

// PendingRequests - входящие заявки
func (s *FriendService) PendingRequests(ctx context.Context, userID int64) ([]models.FriendRequest, error) {
	return s.requests(ctx, "receiver_id", userID)
}

// SentRequests - исходящие заявки
func (s *FriendService) SentRequests(ctx context.Context, userID int64) ([]models.FriendRequest, error) {
	return s.requests(ctx, "sender_id", userID)
}

func (s *FriendService) requests(ctx context.Context, column string, userID int64) ([]models.FriendRequest, error) {
	var edges []models.Friend
	err := db.GetReadOnlyDB(ctx).
		Where(column+" = ? AND status = ?", userID, models.FriendPending).
		Order("created_at DESC, id DESC").
		Find(&edges).Error
	if err != nil {
		return nil, err
	}

	others := make([]int64, 0, len(edges))
	for i := range edges {
		others = append(others, edges[i].Other(userID))
	}
	users, err := usersByID(ctx, others)
	if err != nil {
		return nil, err
	}

	result := make([]models.FriendRequest, 0, len(edges))
	for _, e := range edges {
		other, ok := users[e.Other(userID)]
		if !ok {
			continue
		}
		req := models.FriendRequest{ID: e.ID, CreatedAt: e.CreatedAt}
		if column == "receiver_id" {
			req.Sender = &other
		} else {
			req.Receiver = &other
		}
		result = append(result, req)
	}
	return result, nil
}

// edgesOf - все ребра пользователя, ключ - id второй стороны
func edgesOf(tx *gorm.DB, userID int64) (map[int64]models.Friend, error) {
	var edges []models.Friend
	if err := tx.Where("sender_id = ? OR receiver_id = ?", userID, userID).Find(&edges).Error; err != nil {
		return nil, err
	}
	result := make(map[int64]models.Friend, len(edges))
	for _, e := range edges {
		result[e.Other(userID)] = e
	}
	return result, nil
}

func requestSent(edge models.Friend, ok bool, userID int64) bool {
	return ok && edge.Status == models.FriendPending && edge.SenderID == userID
}

// Search ищет по имени пользователей, которые еще не друзья.
// Заблокированные в любую сторону не показываются.
func (s *FriendService) Search(ctx context.Context, userID int64, query string) ([]models.UserCandidate, error) {
	tx := db.GetReadOnlyDB(ctx).Where("id <> ?", userID)
	if query = strings.TrimSpace(query); query != "" {
		tx = tx.Where("LOWER(fullname) LIKE ? ESCAPE '\\'", likePattern(query))
	}
	var users []models.User
	if err := tx.Order("fullname, id").Find(&users).Error; err != nil {
		return nil, err
	}

	edges, err := edgesOf(db.GetReadOnlyDB(ctx), userID)
	if err != nil {
		return nil, err
	}

	result := make([]models.UserCandidate, 0, len(users))
	for i := range users {
		edge, ok := edges[users[i].ID]
		if ok && (edge.Status == models.FriendAccepted || edge.Status == models.FriendBlocked) {
			continue
		}
		result = append(result, models.UserCandidate{
			UserInfo:    users[i].Info(),
			RequestSent: requestSent(edge, ok, userID),
		})
	}
	return result, nil
}

// Suggestions - друзья друзей, отсортированные по числу общих друзей
func (s *FriendService) Suggestions(ctx context.Context, userID int64) ([]models.UserCandidate, error) {
	read := db.GetReadOnlyDB(ctx)
	direct, err := friendIDs(read, userID)
	if err != nil {
		return nil, err
	}
	if len(direct) == 0 {
		return []models.UserCandidate{}, nil
	}

	var edges []models.Friend
	err = read.Where("(sender_id IN ? OR receiver_id IN ?) AND status = ?", direct, direct, models.FriendAccepted).
		Find(&edges).Error
	if err != nil {
		return nil, err
	}

	own, err := edgesOf(read, userID)
	if err != nil {
		return nil, err
	}

	isDirect := make(map[int64]bool, len(direct))
	for _, id := range direct {
		isDirect[id] = true
	}

	// считаем общих друзей для каждого кандидата
	mutual := make(map[int64]int)
	for _, e := range edges {
		for _, pair := range [][2]int64{{e.SenderID, e.ReceiverID}, {e.ReceiverID, e.SenderID}} {
			friend, candidate := pair[0], pair[1]
			if !isDirect[friend] || candidate == userID || isDirect[candidate] {
				continue
			}
			if edge, ok := own[candidate]; ok && edge.Status == models.FriendBlocked {
				continue
			}
			mutual[candidate]++
		}
	}

	ids := make([]int64, 0, len(mutual))
	for id := range mutual {
		ids = append(ids, id)
	}
	users, err := usersByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := make([]models.UserCandidate, 0, len(users))
	for _, id := range ids {
		info, ok := users[id]
		if !ok {
			continue
		}
		edge, hasEdge := own[id]
		result = append(result, models.UserCandidate{
			UserInfo:      info,
			RequestSent:   requestSent(edge, hasEdge, userID),
			MutualFriends: mutual[id],
		})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].MutualFriends != result[j].MutualFriends {
			return result[i].MutualFriends > result[j].MutualFriends
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Status - статус отношений с другим пользователем; requestSent только для pending
func (s *FriendService) Status(ctx context.Context, userID, otherID int64) (string, bool, error) {
	edge, err := findEdge(db.GetReadOnlyDB(ctx), userID, otherID)
	if err != nil {
		return "", false, err
	}
	if edge == nil {
		return StatusNone, false, nil
	}
	return string(edge.Status), edge.Status == models.FriendPending && edge.SenderID == userID, nil
}

// IsBlocked - true, если между пользователями есть блокировка в любую сторону
func IsBlocked(tx *gorm.DB, a, b int64) (bool, error) {
	edge, err := findEdge(tx, a, b)
	if err != nil {
		return false, err
	}
	return edge != nil && edge.Status == models.FriendBlocked, nil
}
