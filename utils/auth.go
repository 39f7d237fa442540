package utils

import (
	"skullboard/config"

	"github.com/bwmarrin/discordgo"
)

// Auth provides methods for authorization checks.
type Auth struct {
	config config.AuthConfig
}

// NewAuth creates a new Auth instance from the loaded configuration.
func NewAuth(cfg config.AuthConfig) *Auth {
	return &Auth{config: cfg}
}

// IsDeveloper checks if a user is a developer.
func (a *Auth) IsDeveloper(userID string) bool {
	for _, devID := range a.config.Developers {
		if userID == devID {
			return true
		}
	}
	return false
}

// IsAdmin checks if a member holds a configured admin role or Manage Server.
func (a *Auth) IsAdmin(member *discordgo.Member) bool {
	if member == nil {
		return false
	}
	if member.Permissions&discordgo.PermissionManageGuild != 0 ||
		member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	for _, adminRoleID := range a.config.AdminsRoles {
		for _, userRoleID := range member.Roles {
			if userRoleID == adminRoleID {
				return true
			}
		}
	}
	return false
}

// CheckPermission checks if the invoking user has the required permission level.
func (a *Auth) CheckPermission(i *discordgo.InteractionCreate, requiredLevel string) bool {
	var (
		userID string
		member = i.Member
	)
	switch {
	case member != nil && member.User != nil:
		userID = member.User.ID
	case i.User != nil:
		userID = i.User.ID
	}

	switch requiredLevel {
	case "developer":
		return a.IsDeveloper(userID)
	case "admin":
		return a.IsDeveloper(userID) || a.IsAdmin(member)
	case "guest":
		return true
	default:
		return false
	}
}
