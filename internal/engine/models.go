// Package engine implements the conversation core: the registration wizard,
// callback payload codec, action dispatcher, and access gate. All state is
// held in memory behind the Store; the external system keeps the
// authoritative student records.
package engine

import "time"

// Role of a registered user.
type Role string

const (
	RoleStudent   Role = "student"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Status of the user's affiliation application.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Step of the registration wizard.
type Step string

const (
	StepFullName     Step = "full_name"
	StepUniversity   Step = "university"
	StepFaculty      Step = "faculty"
	StepGroup        Step = "group"
	StepConfirmation Step = "confirmation"
)

// CalendarState tracks whether free text should be parsed as a date.
type CalendarState string

const (
	CalendarViewing       CalendarState = "viewing"
	CalendarSelectingDate CalendarState = "selecting_date"
)

// User is a committed registration. Created only by the wizard on
// confirmation; deleted only on the record-not-found recovery path.
type User struct {
	ID         int64
	ChatID     int64
	FullName   string
	University string
	Faculty    string
	Group      string

	// SystemID is the external student id, empty until the first successful
	// registration call.
	SystemID string

	Role                Role
	Status              Status
	ApplicationApproved bool

	// Synced is false when the registration commit could not fully
	// synchronize with the external system.
	Synced bool

	InChatMode    bool
	CalendarState CalendarState
	SelectedYear  int
	SelectedMonth time.Month
}

// Pending is an in-flight wizard session. At most one of Pending or User
// exists per user id.
type Pending struct {
	UserID int64
	ChatID int64
	Step   Step

	FullName      string
	University    string
	InstitutionID string
	Faculty       string
	FacultyID     string
	Group         string
	GroupID       string
}
