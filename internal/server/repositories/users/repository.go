package users

import (
	"context"

	"github.com/dkovalev/assetvault/internal/server/models"
)

// Repository is persistent storage for user accounts.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetUserByLogin(ctx context.Context, userName string) (*models.User, error)
}
