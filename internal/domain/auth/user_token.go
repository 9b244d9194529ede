package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Hammadwakeel/R-S-RAG-backend/internal/domain/user"
)

// UserToken stores issued refresh tokens (hashed) so they can be rotated
// and revoked server-side.
type UserToken struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *user.User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	TokenHash string         `gorm:"not null;uniqueIndex;column:token_hash" json:"-"`
	ExpiresAt time.Time      `gorm:"not null;column:expires_at;index" json:"expires_at"`
	RevokedAt *time.Time     `gorm:"column:revoked_at" json:"revoked_at,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (UserToken) TableName() string { return "user_token" }
