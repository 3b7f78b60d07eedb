package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Preferences holds a user's personalization settings.
type Preferences struct {
	DarkMode      bool `json:"darkMode"`
	Notifications bool `json:"notifications"`
}

// User represents an account in the system
type User struct {
	ID          string      `gorm:"primaryKey;size:36" json:"id"`
	Name        string      `gorm:"size:100" json:"name"`
	Email       string      `gorm:"uniqueIndex;size:255" json:"email"`
	Password    string      `json:"-"` // Never return password in JSON
	FirstName   string      `gorm:"size:50" json:"firstName"`
	LastName    string      `gorm:"size:50" json:"lastName"`
	AvatarURL   string      `json:"avatarUrl"`
	Bio         string      `gorm:"size:400" json:"bio"`
	Preferences Preferences `gorm:"embedded;embeddedPrefix:pref_" json:"preferences"`
	Plan        string      `gorm:"default:Free" json:"plan"`
	Status      string      `gorm:"default:active" json:"status"`
	MemberSince time.Time   `json:"memberSince"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// SignupRequest is the request structure for creating a new account
type SignupRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginRequest is the request structure for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// PreferencesPatch carries optional preference toggles in a profile update.
type PreferencesPatch struct {
	DarkMode      *bool `json:"darkMode"`
	Notifications *bool `json:"notifications"`
}

// UpdateProfileRequest is the request structure for profile updates.
// Pointer fields distinguish "absent" from "set to empty".
type UpdateProfileRequest struct {
	FirstName   *string           `json:"firstName"`
	LastName    *string           `json:"lastName"`
	AvatarURL   *string           `json:"avatarUrl"`
	Bio         *string           `json:"bio"`
	Email       *string           `json:"email"`
	Preferences *PreferencesPatch `json:"preferences"`
}

// UserResponse is the response structure for user data (no credentials)
type UserResponse struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	FirstName   string      `json:"firstName"`
	LastName    string      `json:"lastName"`
	Email       string      `json:"email"`
	AvatarURL   string      `json:"avatarUrl"`
	Bio         string      `json:"bio"`
	Preferences Preferences `json:"preferences"`
	Plan        string      `json:"plan"`
	Status      string      `json:"status"`
	MemberSince time.Time   `json:"memberSince"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// UserStatistics summarizes a user's activity for the profile endpoint
type UserStatistics struct {
	TotalConversations int64      `json:"totalConversations"`
	TotalMessages      int64      `json:"totalMessages"`
	LastActiveAt       *time.Time `json:"lastActiveAt"`
}

// HashPassword hashes a password for storage
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// NormalizeEmail lowercases and trims an email address. Emails are stored
// normalized so the unique index catches case-variant duplicates.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// BeforeCreate is a GORM hook that fills defaults and hashes the password
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	u.Email = NormalizeEmail(u.Email)

	hashedPassword, err := HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword

	if u.Plan == "" {
		u.Plan = "Free"
	}
	if u.Status == "" {
		u.Status = "active"
	}
	if u.MemberSince.IsZero() {
		u.MemberSince = time.Now()
	}
	// Notifications default on; signup never carries preferences
	u.Preferences.Notifications = true

	return nil
}

// ToResponse converts a User model to a UserResponse
func (u *User) ToResponse() UserResponse {
	memberSince := u.MemberSince
	if memberSince.IsZero() {
		memberSince = u.CreatedAt
	}

	return UserResponse{
		ID:          u.ID,
		Name:        u.Name,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		AvatarURL:   u.AvatarURL,
		Bio:         u.Bio,
		Preferences: u.Preferences,
		Plan:        u.Plan,
		Status:      u.Status,
		MemberSince: memberSince,
		CreatedAt:   u.CreatedAt,
	}
}
