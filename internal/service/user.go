package service

import (
	"errors"
	"fmt"
	"strings"

	"timeclock/internal/models"
	"timeclock/internal/repository"
	"timeclock/pkg/validator"
)

type UserService struct {
	repo *repository.UserRepository
}

func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// Profile is the editable part of a user.
type Profile struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
}

func (p Profile) validate(requireName bool) error {
	var errs validator.ValidationErrors
	if requireName && validator.IsEmpty(p.FirstName) {
		errs.Add("first_name", ErrEmptyName.Error())
	}
	if p.Email != "" && !validator.IsValidEmail(p.Email) {
		errs.Add("email", "invalid email address")
	}
	return errs.Err()
}

// CreateUser registers a new employee.
func (s *UserService) CreateUser(chatID int64, p Profile) (*models.User, error) {
	if err := p.validate(true); err != nil {
		return nil, err
	}

	user := &models.User{
		ChatID:    chatID,
		Username:  p.Username,
		FirstName: strings.TrimSpace(p.FirstName),
		LastName:  strings.TrimSpace(p.LastName),
		Email:     strings.TrimSpace(p.Email),
		Role:      models.RoleEmployee,
	}

	if err := s.repo.Create(user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

func (s *UserService) GetUser(chatID int64) (*models.User, error) {
	user, err := s.repo.GetByChatID(chatID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateUser changes the non-empty profile fields. The role is never touched.
func (s *UserService) UpdateUser(chatID int64, p Profile) (*models.User, error) {
	if err := p.validate(false); err != nil {
		return nil, err
	}

	user, err := s.GetUser(chatID)
	if err != nil {
		return nil, err
	}

	if p.Username != "" {
		user.Username = p.Username
	}
	if p.FirstName != "" {
		user.FirstName = strings.TrimSpace(p.FirstName)
	}
	if p.LastName != "" {
		user.LastName = strings.TrimSpace(p.LastName)
	}
	if p.Email != "" {
		user.Email = strings.TrimSpace(p.Email)
	}

	if err := s.repo.Update(user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return user, nil
}

// UpdateRole lets an admin promote or demote another user.
func (s *UserService) UpdateRole(adminChatID, targetChatID int64, role models.Role) error {
	admin, err := s.repo.GetByChatID(adminChatID)
	if err != nil {
		return fmt.Errorf("check admin: %w", err)
	}
	if admin == nil || !admin.IsAdmin() {
		return ErrForbidden
	}

	if _, err := s.GetUser(targetChatID); err != nil {
		return err
	}

	return s.repo.UpdateRole(targetChatID, role)
}

func (s *UserService) DeleteUser(chatID int64) error {
	exists, err := s.repo.Exists(chatID)
	if err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return ErrUserNotFound
	}

	return s.repo.Delete(chatID)
}

func (s *UserService) GetAllUsers() ([]*models.User, error) {
	return s.repo.GetAll()
}

func (s *UserService) GetAdmins() ([]*models.User, error) {
	return s.repo.GetAdmins()
}

func (s *UserService) GetStats() (int, int, error) {
	return s.repo.GetStats()
}

func (s *UserService) IsAdmin(chatID int64) (bool, error) {
	user, err := s.repo.GetByChatID(chatID)
	if err != nil {
		return false, err
	}

	return user != nil && user.IsAdmin(), nil
}

// NamesByKey maps pipeline user ids to display names.
func (s *UserService) NamesByKey() (map[string]string, error) {
	return s.repo.Names()
}

// InitializeAdmin makes the configured chat an admin, creating it if needed.
func (s *UserService) InitializeAdmin(adminChatID int64) error {
	if adminChatID == 0 {
		return nil
	}

	existing, err := s.repo.GetByChatID(adminChatID)
	if err != nil {
		return err
	}

	if existing != nil {
		return s.repo.UpdateRole(adminChatID, models.Role(models.RoleAdmin))
	}

	return s.repo.Create(&models.User{
		ChatID:    adminChatID,
		Username:  "admin",
		FirstName: "Administrator",
		Role:      models.RoleAdmin,
	})
}

func (s *UserService) FormatUserInfo(user *models.User) string {
	var lines []string

	lines = append(lines, "👤 Profile:")
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("🆔 Employee ID: %d", user.ID))
	lines = append(lines, fmt.Sprintf("💬 Chat ID: %d", user.ChatID))

	if user.Username != "" {
		lines = append(lines, fmt.Sprintf("📛 Username: @%s", user.Username))
	}

	lines = append(lines, fmt.Sprintf("👨‍💼 First name: %s", user.FirstName))

	if user.LastName != "" {
		lines = append(lines, fmt.Sprintf("👨‍💼 Last name: %s", user.LastName))
	}
	if user.Email != "" {
		lines = append(lines, fmt.Sprintf("📧 Email: %s", user.Email))
	}

	roleEmoji := "👤"
	if user.IsAdmin() {
		roleEmoji = "👑"
	}
	lines = append(lines, fmt.Sprintf("%s Role: %s", roleEmoji, user.Role))

	return strings.Join(lines, "\n")
}

func (s *UserService) FormatAllUsers() (string, error) {
	users, err := s.GetAllUsers()
	if err != nil {
		return "", err
	}

	if len(users) == 0 {
		return "📭 No users yet.", nil
	}

	var lines []string
	lines = append(lines, "📋 All users:")
	lines = append(lines, "")

	for i, user := range users {
		roleEmoji := "👤"
		if user.IsAdmin() {
			roleEmoji = "👑"
		}

		info := fmt.Sprintf("%d. %s %s ", i+1, roleEmoji, user.FullName())
		if user.Username != "" {
			info += fmt.Sprintf("(@%s) ", user.Username)
		}
		info += fmt.Sprintf("- ID: %d, chat: %d", user.ID, user.ChatID)
		lines = append(lines, info)
	}

	total, admins, _ := s.GetStats()
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("📊 Users: %d", total))
	lines = append(lines, fmt.Sprintf("👑 Admins: %d", admins))

	return strings.Join(lines, "\n"), nil
}
