package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lazypandaa/connect/db"
	"github.com/lazypandaa/connect/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims - полезная нагрузка токена; sub содержит id пользователя
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (c *Claims) UserID() int64 {
	id, _ := strconv.ParseInt(c.Subject, 10, 64)
	return id
}

// TokenService выпускает и проверяет JWT. Каждый выданный токен
// записывается в user_tokens; удаление строки отзывает токен.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

var Tokens *TokenService

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func InitTokens(secret string, ttl time.Duration) {
	Tokens = NewTokenService(secret, ttl)
}

func (s *TokenService) Issue(ctx context.Context, user *models.User) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	record := models.UserTokens{
		UserID:    user.ID,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if err = db.GetWriteDB(ctx).Create(&record).Error; err != nil {
		return "", nil, fmt.Errorf("failed to store token: %w", err)
	}
	return signed, claims, nil
}

// Validate проверяет подпись, срок действия и то, что токен не отозван.
// Любая неудача возвращается как ErrInvalidToken.
func (s *TokenService) Validate(ctx context.Context, raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" || claims.UserID() <= 0 {
		return nil, ErrInvalidToken
	}

	// Читаем с мастера: токен мог быть выдан только что
	var active int64
	err = db.GetWriteDB(ctx).
		Model(&models.UserTokens{}).
		Joins("JOIN users ON users.id = user_tokens.user_id").
		Where("user_tokens.token_id = ? AND user_tokens.user_id = ?", claims.ID, claims.UserID()).
		Count(&active).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check token: %w", err)
	}
	if active == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *TokenService) Revoke(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return ErrInvalidToken
	}
	return db.GetWriteDB(ctx).
		Where("token_id = ?", claims.ID).
		Delete(&models.UserTokens{}).Error
}

// PurgeExpired удаляет записи о просроченных токенах
func (s *TokenService) PurgeExpired(ctx context.Context) (int64, error) {
	res := db.GetWriteDB(ctx).
		Where("expires_at < ?", s.now()).
		Delete(&models.UserTokens{})
	return res.RowsAffected, res.Error
}

// IsInvalidToken - true для ошибок проверки токена
func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}
