package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"aley/backend/internal/models"
	"aley/backend/pkg/jwt"

	"gorm.io/gorm"
)

// bioMaxLen caps the profile bio, matching the stored column size
const bioMaxLen = 400

var emailRE = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// UserService handles accounts and profiles
type UserService struct {
	db         *gorm.DB
	jwtService *jwt.Service
}

// NewUserService creates a new user service
func NewUserService(db *gorm.DB, jwtService *jwt.Service) *UserService {
	return &UserService{db: db, jwtService: jwtService}
}

// CreateUser registers a new account and issues a token for immediate login
func (s *UserService) CreateUser(ctx context.Context, req *models.SignupRequest) (*models.User, string, error) {
	email := models.NormalizeEmail(req.Email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, "", err
	}
	if count > 0 {
		return nil, "", ErrUserAlreadyExists
	}

	user := models.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Password: req.Password,
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, "", err
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, "", err
	}

	return &user, token, nil
}

// Login authenticates a user and issues a token
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.User, string, error) {
	var user models.User
	result := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(req.Email)).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", result.Error
	}

	if !models.CheckPasswordHash(req.Password, user.Password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateToken(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, "", err
	}

	return &user, token, nil
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	result := s.db.WithContext(ctx).Where("id = ?", id).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

// GetProfile returns a user plus activity statistics for the profile page
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, *models.UserStatistics, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	db := s.db.WithContext(ctx)

	var conversationCount int64
	if err := db.Model(&models.Conversation{}).Where("user_id = ?", userID).Count(&conversationCount).Error; err != nil {
		return nil, nil, err
	}

	var messageCount int64
	if err := db.Model(&models.Message{}).
		Where("conversation_id IN (?)",
			db.Model(&models.Conversation{}).Select("id").Where("user_id = ?", userID)).
		Count(&messageCount).Error; err != nil {
		return nil, nil, err
	}

	stats := &models.UserStatistics{
		TotalConversations: conversationCount,
		TotalMessages:      messageCount,
	}

	var recent models.Conversation
	err = db.Where("user_id = ?", userID).Order("last_message_at DESC").First(&recent).Error
	if err == nil {
		stats.LastActiveAt = &recent.LastMessageAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	return user, stats, nil
}

// UpdateProfile applies a partial profile update. Absent fields keep their
// current values; the email change is validated and uniqueness-checked
// before anything is written, so a rejected email leaves the record intact.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, req *models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.AvatarURL != nil {
		user.AvatarURL = strings.TrimSpace(*req.AvatarURL)
	}
	if req.Bio != nil {
		user.Bio = clipRunes(strings.TrimSpace(*req.Bio), bioMaxLen)
	}

	if req.Email != nil && strings.TrimSpace(*req.Email) != "" {
		email := models.NormalizeEmail(*req.Email)
		if !emailRE.MatchString(email) {
			return nil, ErrInvalidEmail
		}

		var count int64
		if err := s.db.WithContext(ctx).Model(&models.User{}).
			Where("email = ? AND id <> ?", email, userID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrEmailInUse
		}

		user.Email = email
	}

	if req.Preferences != nil {
		if req.Preferences.DarkMode != nil {
			user.Preferences.DarkMode = *req.Preferences.DarkMode
		}
		if req.Preferences.Notifications != nil {
			user.Preferences.Notifications = *req.Preferences.Notifications
		}
	}

	// Keep legacy display name in sync with first/last
	if composed := strings.TrimSpace(user.FirstName + " " + user.LastName); composed != "" {
		user.Name = composed
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"first_name":         user.FirstName,
		"last_name":          user.LastName,
		"avatar_url":         user.AvatarURL,
		"bio":                user.Bio,
		"email":              user.Email,
		"name":               user.Name,
		"pref_dark_mode":     user.Preferences.DarkMode,
		"pref_notifications": user.Preferences.Notifications,
	}).Error; err != nil {
		return nil, err
	}

	return user, nil
}

func clipRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
