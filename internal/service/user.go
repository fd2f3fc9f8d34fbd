package service

import (
	"context"
	"log/slog"

	"github.com/studykit/chemtutor/internal/config"
	"github.com/studykit/chemtutor/internal/domain"
	"github.com/studykit/chemtutor/internal/repository"
)

type UserService struct {
	users *repository.Users
}

func NewUserService(users *repository.Users) *UserService {
	return &UserService{users: users}
}

// FindOrCreate looks the user up by Telegram ID, registering them with
// default settings on first contact and refreshing a stale profile on
// later ones. The second return reports whether the user was just created.
func (s *UserService) FindOrCreate(ctx context.Context, telegramID int64, firstName, username string, isAdmin bool) (*domain.User, bool, error) {
	user, err := s.users.GetByTelegramID(ctx, telegramID)
	if err == nil {
		if profileChanged(user, firstName, username) {
			if uerr := s.users.UpdateInfo(ctx, user.ID, firstName, username); uerr != nil {
				slog.Warn("update user info", "error", uerr, "user_id", user.ID)
			} else {
				user.FirstName = firstName
				user.Username = username
			}
		}
		return user, false, nil
	}
	if err != domain.ErrUserNotFound {
		return nil, false, err
	}

	user, err = s.users.Create(ctx, telegramID, firstName, username, isAdmin,
		config.DefaultModel, config.DefaultTemperature)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// profileChanged reports whether Telegram shows different profile fields
// than the stored row.
func profileChanged(u *domain.User, firstName, username string) bool {
	return u.FirstName != firstName || u.Username != username
}

func (s *UserService) UpdateLastInteraction(ctx context.Context, userID int64) error {
	return s.users.UpdateLastInteraction(ctx, userID)
}

func (s *UserService) SetMode(ctx context.Context, userID int64, mode domain.Mode) error {
	return s.users.SetMode(ctx, userID, mode)
}

func (s *UserService) SetTemperature(ctx context.Context, userID int64, temperature float64) error {
	return s.users.SetTemperature(ctx, userID, temperature)
}

func (s *UserService) SetShowCost(ctx context.Context, userID int64, showCost bool) error {
	return s.users.SetShowCost(ctx, userID, showCost)
}

func (s *UserService) Count(ctx context.Context) (int64, error) {
	return s.users.Count(ctx)
}
