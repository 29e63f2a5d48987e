package db

import (
	"time"
)

// User 定义了用户模型。Role 取值见 auth.Role。
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:191;uniqueIndex;not null" json:"username"`
	Email     string    `gorm:"size:191;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Name      string    `json:"name"`
	Image     *string   `json:"image"`
	Role      string    `gorm:"size:16;index;not null" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
