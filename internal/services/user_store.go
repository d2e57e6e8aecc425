package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/spotlog/backend/internal/models"
	"github.com/spotlog/backend/internal/utils"
	"gorm.io/gorm"
)

// UserStore is the user-credential collaborator of the auth flows.
type UserStore struct {
	db         *gorm.DB
	bcryptCost int

	// dummyHash is compared against when a name is unknown so that a missing
	// account costs the same bcrypt work as a wrong password.
	dummyOnce sync.Once
	dummyHash string
}

func NewUserStore(db *gorm.DB, bcryptCost int) *UserStore {
	return &UserStore{db: db, bcryptCost: bcryptCost}
}

// FindByName returns the user with name, or nil when there is none.
func (s *UserStore) FindByName(ctx context.Context, name string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns the user with id, or nil when there is none.
func (s *UserStore) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// VerifyPassword compares password with the user's hash. A nil user is
// compared against a dummy hash and always fails.
func (s *UserStore) VerifyPassword(user *models.User, password string) bool {
	if user == nil {
		s.dummyOnce.Do(func() {
			s.dummyHash, _ = utils.HashPasswordWithCost("spotlog-dummy-password", s.bcryptCost)
		})
		utils.CheckPassword(password, s.dummyHash)
		return false
	}
	return utils.CheckPassword(password, user.Password)
}

// Create hashes the password and inserts the user inside tx.
func (s *UserStore) Create(tx *gorm.DB, user *models.User, password string) error {
	hash, err := utils.HashPasswordWithCost(password, s.bcryptCost)
	if err != nil {
		return err
	}
	user.Password = hash
	if err := tx.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrUsernameTaken
		}
		return err
	}
	return nil
}

// UpdateLastLogin stamps the user's last successful login inside tx.
func (s *UserStore) UpdateLastLogin(tx *gorm.DB, userID uint, at time.Time) error {
	return tx.Model(&models.User{}).Where("id = ?", userID).Update("last_login_at", at).Error
}
