package model

// UserID identifies one of the two fixed board participants.
type UserID string

const (
	UserMe      UserID = "me"
	UserPartner UserID = "partner"
)

// Users lists the two identities in stable order.
var Users = []UserID{UserMe, UserPartner}

// Valid reports whether u is one of the two known identities.
func (u UserID) Valid() bool {
	return u == UserMe || u == UserPartner
}

// Partner returns the other identity.
func (u UserID) Partner() UserID {
	if u == UserMe {
		return UserPartner
	}
	return UserMe
}

// DisplayName returns the label used in UI and notification copy.
func (u UserID) DisplayName() string {
	if u == UserPartner {
		return "Partner"
	}
	return "Me"
}

// CalendarView is the calendar zoom preference.
type CalendarView string

const (
	ViewWeek  CalendarView = "week"
	ViewMonth CalendarView = "month"
	ViewYear  CalendarView = "year"
)

// CalendarViews is the cycle order for the view toggle.
var CalendarViews = []CalendarView{ViewWeek, ViewMonth, ViewYear}

const (
	// StateVersion is the document schema version.
	StateVersion = 5

	// MaxTasksPerDay caps visible tasks per identity per day.
	MaxTasksPerDay = 5

	// MaxTaskTextChars caps task text after whitespace collapsing.
	MaxTaskTextChars = 52

	// MaxReactionMessageChars caps a reaction message.
	MaxReactionMessageChars = 120

	// DefaultMorningReminderTime is the fallback morning check-in time.
	DefaultMorningReminderTime = "09:00"

	// TaskReminderLeadMinutes is how far ahead of a task's reminder
	// time the alert fires, on both the client and the dispatcher.
	TaskReminderLeadMinutes = 10
)

// StateDocument is the whole shared board. One instance exists per
// client; the days map and morning reminder times are synchronized
// through the shared blob store, profile and calendar view are local.
type StateDocument struct {
	Version     int                   `json:"version"`
	Profile     UserID                `json:"profile"`
	Preferences Preferences           `json:"preferences"`
	Days        map[string]*DayRecord `json:"days"`
}

// Preferences holds per-client and shared settings.
type Preferences struct {
	CalendarView         CalendarView      `json:"calendarView"`
	MorningReminderTimes map[UserID]string `json:"morningReminderTimes"`
}

// DayRecord is one calendar day of the board. Once Closed it is
// immutable to ordinary task operations; Closed never reverts.
type DayRecord struct {
	DateKey  string              `json:"dateKey"`
	Closed   bool                `json:"closed"`
	ClosedAt string              `json:"closedAt,omitempty"`
	Users    map[UserID]*UserDay `json:"users"`
}

// UserDay is one identity's slice of a day.
type UserDay struct {
	CheckedInAt             string  `json:"checkedInAt,omitempty"`
	LastMorningReminderDate string  `json:"lastMorningReminderDate,omitempty"`
	Tasks                   []*Task `json:"tasks"`
}

// Task is a single board entry. Deletion only ever tombstones
// (DeletedAt set); tombstoned tasks stay in storage forever.
type Task struct {
	ID               string                    `json:"id"`
	Text             string                    `json:"text"`
	Done             bool                      `json:"done"`
	DoneAt           string                    `json:"doneAt,omitempty"`
	CreatedAt        string                    `json:"createdAt"`
	UpdatedAt        string                    `json:"updatedAt"`
	DeletedAt        string                    `json:"deletedAt,omitempty"`
	ReminderTime     string                    `json:"reminderTime,omitempty"`
	LastReminderDate string                    `json:"lastReminderDate,omitempty"`
	Reactions        map[UserID]*ReactionEntry `json:"reactions"`
}

// Visible reports whether the task has not been tombstoned.
func (t *Task) Visible() bool {
	return t != nil && t.DeletedAt == ""
}

// ReactionEntry is what one identity sent in response to the task
// owner completing the task. The slot is overwritten, not appended.
type ReactionEntry struct {
	Message         string         `json:"message,omitempty"`
	Image           *ReactionImage `json:"image,omitempty"`
	SentAt          string         `json:"sentAt,omitempty"`
	ImageConsumedAt string         `json:"imageConsumedAt,omitempty"`
}

// ReactionImage is an inline image payload carried in the document
// itself. It is cleared after the recipient views it once.
type ReactionImage struct {
	DataURL  string `json:"dataUrl"`
	MimeType string `json:"mimeType"`
	SentAt   string `json:"sentAt,omitempty"`
}

// NewStateDocument returns an empty well-formed document.
func NewStateDocument() *StateDocument {
	return &StateDocument{
		Version: StateVersion,
		Profile: UserMe,
		Preferences: Preferences{
			CalendarView:         ViewWeek,
			MorningReminderTimes: DefaultMorningReminderTimes(),
		},
		Days: map[string]*DayRecord{},
	}
}

// NewDay returns an open empty day for dateKey.
func NewDay(dateKey string) *DayRecord {
	return &DayRecord{
		DateKey: dateKey,
		Users: map[UserID]*UserDay{
			UserMe:      {Tasks: []*Task{}},
			UserPartner: {Tasks: []*Task{}},
		},
	}
}

// EmptyReactions returns one empty slot per identity.
func EmptyReactions() map[UserID]*ReactionEntry {
	return map[UserID]*ReactionEntry{
		UserMe:      {},
		UserPartner: {},
	}
}

// DefaultMorningReminderTimes returns the per-identity defaults.
func DefaultMorningReminderTimes() map[UserID]string {
	return map[UserID]string{
		UserMe:      DefaultMorningReminderTime,
		UserPartner: DefaultMorningReminderTime,
	}
}
