package store

import (
	"context"
	"errors"
	"strings"

	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"gorm.io/gorm"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = normalizeEmail(u.Email)
	return translate("create user", s.conn(ctx).Create(u).Error)
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate("get user", err)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Where("email = ?", normalizeEmail(email)).First(&u).Error; err != nil {
		return nil, translate("get user by email", err)
	}
	return &u, nil
}

// GetUserByRefreshToken looks an account up by the sha256 of its current refresh token.
func (s *Store) GetUserByRefreshToken(ctx context.Context, hash string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Where("refresh_token_hash = ?", hash).First(&u).Error; err != nil {
		return nil, translate("get user by refresh token", err)
	}
	return &u, nil
}

// UpdateUser writes the given columns of one account.
func (s *Store) UpdateUser(ctx context.Context, id string, fields map[string]interface{}) error {
	res := s.conn(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	return affected("update user", res)
}

// GetSetting returns the stored preferences or the defaults when none were saved yet.
func (s *Store) GetSetting(ctx context.Context, userID string) (*models.Setting, error) {
	var st models.Setting
	err := s.conn(ctx).Where("user_id = ?", userID).First(&st).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		def := models.DefaultSetting(userID)
		return &def, nil
	}
	if err != nil {
		return nil, translate("get settings", err)
	}
	return &st, nil
}

func (s *Store) SaveSetting(ctx context.Context, st *models.Setting) error {
	return translate("save settings", s.conn(ctx).Save(st).Error)
}
