package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/otcheredev/hospital-records/internal/database"
	"github.com/otcheredev/hospital-records/internal/models"
	"gorm.io/gorm"
)

// UserRepository handles login account database operations
type UserRepository struct{}

// NewUserRepository creates a new user repository
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// Create inserts a user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := database.Conn(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := database.Conn(ctx).First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetByUsername retrieves a user by login name
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := database.Conn(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// GetActiveByEmail retrieves the active accounts registered with an email address
func (r *UserRepository) GetActiveByEmail(ctx context.Context, email string) ([]models.User, error) {
	var users []models.User
	if err := database.Conn(ctx).
		Where("LOWER(email) = ? AND is_active = ?", strings.ToLower(strings.TrimSpace(email)), true).
		Order("id ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	return users, nil
}

// UsernameTaken reports whether a login name is already in use
func (r *UserRepository) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := database.Conn(ctx).Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check username: %w", err)
	}
	return count > 0, nil
}

// List retrieves users ordered by id
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var users []models.User
	if err := paginate(database.Conn(ctx).Order("id ASC"), limit, offset).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// SetPassword stores a new password hash. Column updates skip the BeforeSave
// role check, which only holds for a fully loaded user.
func (r *UserRepository) SetPassword(ctx context.Context, id uint, hash string) error {
	result := database.Conn(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumns(map[string]interface{}{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	})
	if result.Error != nil {
		return fmt.Errorf("failed to set password: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to set password: %w", gorm.ErrRecordNotFound)
	}
	return nil
}

// TouchLastLogin records a successful login
func (r *UserRepository) TouchLastLogin(ctx context.Context, id uint, at time.Time) error {
	if err := database.Conn(ctx).Model(&models.User{}).Where("id = ?", id).UpdateColumn("last_login", at).Error; err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// Delete removes a user. Profiles cascade; doctor links and audit actors are nulled.
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	result := database.Conn(ctx).Delete(&models.User{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete user: %w", gorm.ErrRecordNotFound)
	}
	return nil
}

// IsNotFound reports whether err wraps a missing-row error
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
