package dto

import (
	"time"

	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/apiserver/database"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *UserInfo `json:"user"`
}

// ChangePasswordRequest represents a request to change password
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required"`
}

// UserInfo is the public view of the authenticated user
type UserInfo struct {
	ID                    string             `json:"id"`
	Username              string             `json:"username"`
	FirstName             string             `json:"firstName,omitempty"`
	LastName              string             `json:"lastName,omitempty"`
	Email                 string             `json:"email,omitempty"`
	Role                  access.Role        `json:"role"`
	CompanyID             string             `json:"companyId"`
	CompanyName           string             `json:"companyName,omitempty"`
	CompanyType           access.CompanyType `json:"companyType,omitempty"`
	IsSuperuser           bool               `json:"isSuperuser"`
	CanAccessAllCompanies bool               `json:"canAccessAllCompanies"`
}

// NewUserInfo builds the public view of user; company may be nil
func NewUserInfo(user *database.User, company *database.Company) *UserInfo {
	info := &UserInfo{
		ID:                    user.ID,
		Username:              user.Username,
		FirstName:             user.FirstName,
		LastName:              user.LastName,
		Email:                 user.Email,
		Role:                  user.Role,
		CompanyID:             user.CompanyID,
		IsSuperuser:           user.IsSuperuser,
		CanAccessAllCompanies: user.CanAccessAllCompanies,
	}
	if company != nil {
		info.CompanyName = company.Name
		info.CompanyType = company.Type
	}
	return info
}
