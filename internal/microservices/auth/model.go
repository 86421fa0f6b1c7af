package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskhub/internal/shared"
)

type User struct {
	ID       string `gorm:"type:uuid;primaryKey" json:"id"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Password string `gorm:"not null" json:"-"`
	// bcrypt digest of the current refresh token; rotation overwrites it
	RefreshTokenHash string    `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Public strips the credential fields down to the shared profile shape
func (u *User) Public() shared.User {
	return shared.User{ID: u.ID, Email: u.Email, Username: u.Username}
}
