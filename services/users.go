package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lazypandaa/connect/db"
	"github.com/lazypandaa/connect/logger"
	"github.com/lazypandaa/connect/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 6

var passwordCost = 12

type UserService struct{}

func NewUserService() *UserService {
	return &UserService{}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) Register(ctx context.Context, fullname, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	fullname = strings.TrimSpace(fullname)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if fullname == "" {
		return nil, fmt.Errorf("%w: fullname is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	// Проверяем, существует ли пользователь с таким email
	var alreadyExists int64
	err := db.GetWriteDB(ctx).Model(&models.User{}).Where("email = ?", email).Count(&alreadyExists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if alreadyExists > 0 {
		return nil, ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), passwordCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Fullname: fullname,
		Email:    email,
		Password: string(hash),
	}
	if err = db.GetWriteDB(ctx).Create(user).Error; err != nil {
		// параллельная регистрация с тем же email
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.L().Info("user registered", zap.Int64("user_id", user.ID))
	return user, nil
}

func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	var user models.User
	err := db.GetWriteDB(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token, _, err := Tokens.Issue(ctx, &user)
	if err != nil {
		return "", nil, err
	}
	return token, &user, nil
}

func (s *UserService) Logout(ctx context.Context, claims *Claims) error {
	return Tokens.Revoke(ctx, claims)
}

func (s *UserService) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := db.GetReadOnlyDB(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.UserInfo, error) {
	var users []models.User
	if err := db.GetReadOnlyDB(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, err
	}
	return toInfos(users), nil
}

// SearchUsers ищет по подстроке в имени или email без учета регистра.
// Пустой запрос возвращает всех, кроме вызывающего.
func (s *UserService) SearchUsers(ctx context.Context, callerID int64, query string) ([]models.UserInfo, error) {
	tx := db.GetReadOnlyDB(ctx).Where("id <> ?", callerID)
	if query = strings.TrimSpace(query); query != "" {
		pattern := likePattern(query)
		tx = tx.Where("(LOWER(fullname) LIKE ? ESCAPE '\\' OR LOWER(email) LIKE ? ESCAPE '\\')", pattern, pattern)
	}

	var users []models.User
	if err := tx.Order("fullname, id").Find(&users).Error; err != nil {
		return nil, err
	}
	return toInfos(users), nil
}

func userExists(ctx context.Context, id int64) error {
	var count int64
	if err := db.GetReadOnlyDB(ctx).Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("error checking user: %w", err)
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

func usersByID(ctx context.Context, ids []int64) (map[int64]models.UserInfo, error) {
	result := make(map[int64]models.UserInfo, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var users []models.User
	if err := db.GetReadOnlyDB(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		result[users[i].ID] = users[i].Info()
	}
	return result, nil
}

func toInfos(users []models.User) []models.UserInfo {
	infos := make([]models.UserInfo, 0, len(users))
	for i := range users {
		infos = append(infos, users[i].Info())
	}
	return infos
}

// likePattern экранирует спецсимволы LIKE и приводит к нижнему регистру
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(q)) + "%"
}
