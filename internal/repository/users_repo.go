package repository

import (
	"context"

	"homegrid-data/internal/domain"
)

// UsersRepository 用户Repository接口
// 使用强类型领域模型，不使用map[string]any
type UsersRepository interface {
	GetUser(ctx context.Context, email string) (*domain.User, error)
	UserExists(ctx context.Context, email string) (bool, error)
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, email string, user *domain.User) error
}
