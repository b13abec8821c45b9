package profile

import "time"

const (
	RoleUser       = "User"
	RoleAdmin      = "Admin"
	RoleSuperAdmin = "Super Admin"
)

type Profile struct {
	ID             string    `gorm:"column:id;primaryKey;type:uuid"`
	Email          string    `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash   string    `gorm:"column:password_hash;not null"`
	Username       string    `gorm:"column:username;not null;uniqueIndex"`
	FullName       *string   `gorm:"column:full_name"`
	Bio            *string   `gorm:"column:bio"`
	PhoneNumber    *string   `gorm:"column:phone_number"`
	AvatarURL      *string   `gorm:"column:avatar_url"`
	Role           string    `gorm:"column:role;not null"`
	IsShadowBanned bool      `gorm:"column:is_shadow_banned;not null;default:false"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Profile) TableName() string {
	return "profiles"
}
