package models

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   interface{} `json:"error,omitempty"`
}

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleMentor  Role = "mentor"
	RoleStudent Role = "student"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMentor, RoleStudent:
		return true
	}
	return false
}

type MentorshipStatus string

const (
	MentorshipOpen     MentorshipStatus = "open"
	MentorshipAnswered MentorshipStatus = "answered"
	MentorshipResolved MentorshipStatus = "resolved"
)

type AppealStatus string

const (
	AppealPending  AppealStatus = "pending"
	AppealApproved AppealStatus = "approved"
	AppealRejected AppealStatus = "rejected"
)

type EscalationKind string

const (
	EscalationMentorshipUnanswered EscalationKind = "mentorship_unanswered"
	EscalationLoginFailures        EscalationKind = "login_failures"
)

// Activity log actions.
const (
	ActionSignup          = "signup"
	ActionLogin           = "login"
	ActionLoginFailed     = "login_failed"
	ActionSubtopicToggled = "subtopic_toggled"
	ActionQuizSubmitted   = "quiz_submitted"
	ActionRoadmapMastered = "roadmap_mastered"
	ActionBadgeUnlocked   = "badge_unlocked"
	ActionMentorRequest   = "mentorship_requested"
	ActionMentorResponse  = "mentorship_responded"
	ActionUserBlocked     = "user_blocked"
	ActionUserUnblocked   = "user_unblocked"
	ActionRoleChanged     = "role_changed"
	ActionAppealSubmitted = "appeal_submitted"
	ActionAppealDecided   = "appeal_decided"
)

// Notification kinds.
const (
	NotifyMentorshipReply = "mentorship_reply"
	NotifyEscalation      = "escalation"
	NotifyBadge           = "badge"
	NotifyAppeal          = "appeal"
	NotifyMastery         = "mastery"
)

// Subtopic is one leaf of a roadmap node; stored inside RoadmapNode.Subtopics.
type Subtopic struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
