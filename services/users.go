package services

import (
	"context"
	"errors"
	"fmt"

	"salgados/docstore"
	"salgados/models"
)

const usersCollection = "users"

type UserRepo struct {
	store *docstore.Store
}

func NewUserRepo(store *docstore.Store) *UserRepo {
	return &UserRepo{store: store}
}

func (r *UserRepo) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	var u models.UserProfile
	if err := r.store.Get(ctx, usersCollection, id, &u); err != nil {
		return nil, fmt.Errorf("user %s: %w", id, err)
	}
	u.ID = id
	return &u, nil
}

func (r *UserRepo) Save(ctx context.Context, u *models.UserProfile) error {
	if u.ID == "" {
		return fmt.Errorf("user id is required")
	}
	if err := r.store.Set(ctx, usersCollection, u.ID, u); err != nil {
		return fmt.Errorf("save user %s: %w", u.ID, err)
	}
	return nil
}

// DiscountEligible reports the user's first-order discount flag. Unknown
// users are not eligible.
func (r *UserRepo) DiscountEligible(ctx context.Context, id string) (bool, error) {
	u, err := r.Get(ctx, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return u.DiscountEligible, nil
}

// RegisterPushChat stores the Telegram chat that receives the user's order
// notifications. A profile created here starts eligible for the first-order
// discount.
func (r *UserRepo) RegisterPushChat(ctx context.Context, id string, chatID int64) error {
	err := r.store.Update(ctx, usersCollection, id, map[string]any{"telegramChatId": chatID})
	if errors.Is(err, docstore.ErrNotFound) {
		return r.Save(ctx, &models.UserProfile{ID: id, TelegramChatID: chatID, DiscountEligible: true})
	}
	if err != nil {
		return fmt.Errorf("register push chat for %s: %w", id, err)
	}
	return nil
}

// PushChat returns the user's notification chat, 0 when none is registered.
func (r *UserRepo) PushChat(ctx context.Context, id string) int64 {
	u, err := r.Get(ctx, id)
	if err != nil {
		return 0
	}
	return u.TelegramChatID
}
