package auth

import (
	"context"
	"errors"
	"strings"

	"ticketly/internal/users"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repository interface {
	// CreateUser fails with ErrUserAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, user *users.User) error
	GetUserByEmail(ctx context.Context, email string) (*users.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*users.User, error)
	// GetContact loads only the name and email put on ticket events.
	GetContact(ctx context.Context, id uuid.UUID) (*users.Contact, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{
		db: db,
	}
}

func (r *repository) CreateUser(ctx context.Context, user *users.User) error {
	user.Email = normalizeEmail(user.Email)
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		// the unique email index settles concurrent registrations
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUserAlreadyExists
		}
		return err
	}
	return nil
}

func (r *repository) GetUserByEmail(ctx context.Context, email string) (*users.User, error) {
	var user users.User
	err := r.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *repository) GetUserByID(ctx context.Context, id uuid.UUID) (*users.User, error) {
	var user users.User
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *repository) GetContact(ctx context.Context, id uuid.UUID) (*users.Contact, error) {
	var contact users.Contact
	err := r.db.WithContext(ctx).Model(&users.User{}).
		Select("name", "email").
		Where("id = ?", id).
		Take(&contact).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &contact, nil
}

func (r *repository) UpdatePassword(ctx context.Context, id uuid.UUID, hashedPassword string) error {
	result := r.db.WithContext(ctx).Model(&users.User{}).
		Where("id = ?", id).
		Update("password", hashedPassword)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	return err
}

// Emails are stored lowercased; lookups match that.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
