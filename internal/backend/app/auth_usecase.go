package app

import (
	"context"
	"fmt"

	"portfolio_social_service/internal/backend/repository"
	"portfolio_social_service/pkg/encrypt"
	errprocess "portfolio_social_service/pkg/err"
	"portfolio_social_service/pkg/logger"
	"portfolio_social_service/pkg/token"

	"github.com/google/uuid"
)

// AuthUseCase 開發後端的註冊/登入
type AuthUseCase struct {
	store *repository.MemoryStore
}

// NewAuthUseCase create AuthUseCase
func NewAuthUseCase(store *repository.MemoryStore) *AuthUseCase {
	return &AuthUseCase{store: store}
}

// Register 建立使用者，密碼 bcrypt 雜湊後儲存
func (u *AuthUseCase) Register(ctx context.Context, username, password string) (repository.User, error) {
	if username == "" {
		return repository.User{}, errprocess.Set("username required")
	}
	if err := encrypt.ValidatePasswordStrength(password); err != nil {
		return repository.User{}, err
	}
	hash, err := encrypt.HashPassword(password)
	if err != nil {
		return repository.User{}, errprocess.Set(fmt.Sprintf("hash password: %v", err))
	}
	user := repository.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
	}
	if err := u.store.CreateUser(ctx, user); err != nil {
		return repository.User{}, err
	}
	logger.Log.Info(fmt.Sprintf("user registered username(%s)", username))
	return user, nil
}

// Login 驗證密碼並簽發 JWT
func (u *AuthUseCase) Login(ctx context.Context, username, password string) (string, repository.User, error) {
	user, err := u.store.UserByUsername(ctx, username)
	if err != nil {
		return "", repository.User{}, errprocess.Set("invalid credentials")
	}
	if err := encrypt.CheckPassword(user.PasswordHash, password); err != nil {
		return "", repository.User{}, errprocess.Set("invalid credentials")
	}
	jwt, err := token.GenerateJWT(user.ID, user.Username, "member", "portfolio_social")
	if err != nil {
		return "", repository.User{}, errprocess.Set(fmt.Sprintf("generate token: %v", err))
	}
	return jwt, user, nil
}
