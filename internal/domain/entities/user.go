package entities

// User is a household member known to the system.
type User struct {
	ID                   string
	ChatID               int64 // Telegram chat, 0 when not linked
	Name                 string
	HouseholdID          string
	NotificationsEnabled bool
}

// CanReceiveMessages reports whether notifications can be delivered to the user.
func (u *User) CanReceiveMessages() bool {
	return u.NotificationsEnabled && u.ChatID != 0
}
