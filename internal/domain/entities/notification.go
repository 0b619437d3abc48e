package entities

// NotificationKind is the message type requested from the notifier.
type NotificationKind string

const (
	NotificationLevelUp     NotificationKind = "levelUp"
	NotificationDailyDigest NotificationKind = "dailyDigest"
	NotificationPraise      NotificationKind = "praise"
)

// NotificationRequest asks the notifier to deliver a message to a user.
// Payload holds one of LevelUpPayload, DigestPayload or PraisePayload.
type NotificationRequest struct {
	UserID  string
	Kind    NotificationKind
	Payload any
}

// LevelUpPayload describes a level change.
type LevelUpPayload struct {
	PreviousLevel int
	NewLevel      int
	XP            int
	XPToNext      int
}

// DigestPayload lists the chores due today.
type DigestPayload struct {
	UserName string
	Chores   []Chore // at most the displayed chores
	Total    int     // number of chores found, may exceed len(Chores)
}

// PraisePayload carries a peer encouragement message.
type PraisePayload struct {
	SenderName string
	Message    string
}
