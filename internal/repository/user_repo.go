package repository

import (
	"errors"

	"timeclock/internal/models"

	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) (UserRepository, error) {
	err := db.AutoMigrate(&models.User{})
	if err != nil {
		return UserRepository{}, err
	}

	return UserRepository{db: db}, nil
}

func (r *UserRepository) Create(user *models.User) error {
	var existing models.User
	result := r.db.Where("chat_id = ?", user.ChatID).First(&existing)
	if result.Error == nil {
		return ErrUserExists
	}

	return r.db.Create(user).Error
}

// GetByChatID returns nil, nil when no user is registered for the chat.
func (r *UserRepository) GetByChatID(chatID int64) (*models.User, error) {
	var user models.User
	result := r.db.Where("chat_id = ?", chatID).First(&user)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}

	return &user, nil
}

func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	result := r.db.First(&user, id)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, result.Error
	}

	return &user, nil
}

// GetByIDs returns the users with the given ids in id order. Unknown ids are
// skipped, so callers compare lengths to detect them.
func (r *UserRepository) GetByIDs(ids []uint) ([]*models.User, error) {
	var users []*models.User
	if len(ids) == 0 {
		return users, nil
	}

	result := r.db.Where("id IN ?", ids).Order("id ASC").Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}

	return users, nil
}

// Names maps pipeline user keys to display names for reports.
func (r *UserRepository) Names() (map[string]string, error) {
	users, err := r.GetAll()
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.Key()] = u.FullName()
	}
	return names, nil
}

func (r *UserRepository) Update(user *models.User) error {
	var existing models.User
	result := r.db.Where("chat_id = ?", user.ChatID).First(&existing)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}

	return r.db.Save(user).Error
}

func (r *UserRepository) Delete(chatID int64) error {
	result := r.db.Where("chat_id = ?", chatID).Delete(&models.User{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *UserRepository) Exists(chatID int64) (bool, error) {
	var count int64
	result := r.db.Model(&models.User{}).Where("chat_id = ?", chatID).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}

	return count > 0, nil
}

func (r *UserRepository) GetAll() ([]*models.User, error) {
	var users []*models.User
	result := r.db.Order("id ASC").Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}

	return users, nil
}

func (r *UserRepository) UpdateRole(chatID int64, role models.Role) error {
	result := r.db.Model(&models.User{}).
		Where("chat_id = ?", chatID).
		Update("role", string(role))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (r *UserRepository) GetAdmins() ([]*models.User, error) {
	var admins []*models.User
	result := r.db.Where("role = ?", models.RoleAdmin).Find(&admins)
	if result.Error != nil {
		return nil, result.Error
	}

	return admins, nil
}

// GetStats returns the total number of users and of admins.
func (r *UserRepository) GetStats() (int, int, error) {
	var total int64
	var admins int64

	result := r.db.Model(&models.User{}).Count(&total)
	if result.Error != nil {
		return 0, 0, result.Error
	}

	result = r.db.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&admins)
	if result.Error != nil {
		return 0, 0, result.Error
	}

	return int(total), int(admins), nil
}
