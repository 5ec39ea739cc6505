package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// UserDirectory resolves contact details for ticket notifications
// without the tickets module importing auth.
type UserDirectory struct {
	repo Repository
}

func NewUserDirectory(repo Repository) *UserDirectory {
	return &UserDirectory{
		repo: repo,
	}
}

// GetUserContact returns the email and display name of userID.
func (d *UserDirectory) GetUserContact(ctx context.Context, userID uuid.UUID) (email, name string, err error) {
	contact, err := d.repo.GetContact(ctx, userID)
	if err != nil {
		return "", "", fmt.Errorf("failed to fetch contact for user %s: %w", userID, err)
	}

	return contact.Email, contact.Name, nil
}
