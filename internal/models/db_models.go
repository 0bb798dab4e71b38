package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	ID    string `gorm:"primaryKey;size:10" json:"id"`
	Email string `gorm:"uniqueIndex;not null" json:"email"`

	PasswordHash  string      `json:"-"`
	Name          string      `json:"name"`
	Role          Role        `gorm:"type:text;not null;index" json:"role"`
	Blocked       bool        `gorm:"default:false;index" json:"blocked"`
	BlockedReason string      `json:"blocked_reason,omitempty"`
	BlockedAt     *time.Time  `json:"blocked_at,omitempty"`
	UnblockedAt   *time.Time  `json:"unblocked_at,omitempty"`
	LastLoginAt   *time.Time  `json:"last_login_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	UserDetails   UserDetails `gorm:"foreignKey:UserID" json:"details,omitempty"`
}

type UserDetails struct {
	UserID            string            `gorm:"primaryKey;size:10" json:"user_id"`
	Bio               string            `json:"bio"`
	Country           string            `json:"country"`
	GithubUsername    string            `json:"github_username"`
	LeetcodeUsername  string            `json:"leetcode_username"`
	ProfilePictureURL string            `json:"profile_picture_url"`
	ProfilePictureKey string            `json:"-"`
	AdditionalInfo    datatypes.JSONMap `gorm:"type:jsonb" json:"additional_info"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

type RefreshToken struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"index;size:10" json:"user_id"`
	TokenHash string    `gorm:"not null;index" json:"-"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `gorm:"default:false" json:"revoked"`
}

type Roadmap struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	Slug        string         `gorm:"uniqueIndex;not null" json:"slug"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Difficulty  string         `json:"difficulty"`
	Published   bool           `gorm:"default:true;index" json:"published"`
	CreatedBy   string         `gorm:"size:10" json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	Nodes       []RoadmapNode  `gorm:"foreignKey:RoadmapID" json:"nodes,omitempty"`
}

type RoadmapNode struct {
	ID          string         `gorm:"primaryKey;size:36" json:"id"`
	RoadmapID   string         `gorm:"index;size:36;not null" json:"roadmap_id"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	Position    int            `gorm:"not null;default:0" json:"position"`
	Subtopics   datatypes.JSON `gorm:"type:jsonb" json:"subtopics"` // []Subtopic
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// RoadmapProgress: one row per (user, roadmap). Composite PK.
type RoadmapProgress struct {
	UserID         string     `gorm:"primaryKey;size:10" json:"user_id"`
	RoadmapID      string     `gorm:"primaryKey;size:36" json:"roadmap_id"`
	CompletedCount int        `gorm:"not null;default:0" json:"completed_count"`
	TotalCount     int        `gorm:"not null;default:0" json:"total_count"`
	Percentage     int        `gorm:"not null;default:0" json:"percentage"`
	QuizAttempts   int        `gorm:"not null;default:0" json:"quiz_attempts"`
	QuizPasses     int        `gorm:"not null;default:0" json:"quiz_passes"`
	BestScore      int        `gorm:"not null;default:0" json:"best_score"`
	Mastered       bool       `gorm:"default:false" json:"mastered"`
	MasteredAt     *time.Time `json:"mastered_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (RoadmapProgress) TableName() string { return "roadmap_progress" }

type SubtopicCompletion struct {
	UserID      string    `gorm:"primaryKey;size:10" json:"user_id"`
	RoadmapID   string    `gorm:"primaryKey;size:36" json:"roadmap_id"`
	SubtopicID  string    `gorm:"primaryKey;size:64" json:"subtopic_id"`
	CompletedAt time.Time `json:"completed_at"`
}

type Bookmark struct {
	UserID    string    `gorm:"primaryKey;size:10" json:"user_id"`
	Kind      string    `gorm:"primaryKey;size:32" json:"kind"`
	ItemID    string    `gorm:"primaryKey;size:64" json:"item_id"`
	CreatedAt time.Time `json:"created_at"`
}

// QuizQuestion lives in table "quiz_bank".
type QuizQuestion struct {
	ID           string         `gorm:"primaryKey;size:36" json:"id"`
	RoadmapID    string         `gorm:"index;size:36;not null" json:"roadmap_id"`
	Prompt       string         `gorm:"type:text;not null" json:"prompt"`
	Options      datatypes.JSON `gorm:"type:jsonb" json:"options"` // []string
	CorrectIndex int            `gorm:"not null" json:"-"`
	Explanation  string         `gorm:"type:text" json:"-"`
	Position     int            `gorm:"not null;default:0" json:"position"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (QuizQuestion) TableName() string { return "quiz_bank" }

type QuizResult struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	UserID         string         `gorm:"index;size:10;not null" json:"user_id"`
	RoadmapID      string         `gorm:"index;size:36;not null" json:"roadmap_id"`
	Correct        int            `json:"correct"`
	Total          int            `json:"total"`
	Percentage     int            `json:"percentage"`
	Passed         bool           `gorm:"index" json:"passed"`
	ElapsedSeconds int            `json:"elapsed_seconds"`
	Answers        datatypes.JSON `gorm:"type:jsonb" json:"answers"` // map question id -> chosen index
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
}

type MentorshipRequest struct {
	ID          string           `gorm:"primaryKey;size:36" json:"id"`
	StudentID   string           `gorm:"index;size:10;not null" json:"student_id"`
	MentorID    string           `gorm:"index;size:10" json:"mentor_id,omitempty"`
	Topic       string           `gorm:"not null" json:"topic"`
	Message     string           `gorm:"type:text" json:"message"`
	Status      MentorshipStatus `gorm:"type:text;not null;index" json:"status"`
	Response    string           `gorm:"type:text" json:"response,omitempty"`
	RespondedBy string           `gorm:"size:10" json:"responded_by,omitempty"`
	RespondedAt *time.Time       `json:"responded_at,omitempty"`
	Escalated   bool             `gorm:"default:false;index" json:"escalated"`
	EscalatedAt *time.Time       `json:"escalated_at,omitempty"`
	CreatedAt   time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

type Appeal struct {
	ID         string       `gorm:"primaryKey;size:36" json:"id"`
	UserID     string       `gorm:"index;size:10;not null" json:"user_id"`
	Message    string       `gorm:"type:text" json:"message"`
	Status     AppealStatus `gorm:"type:text;not null;index" json:"status"`
	ReviewedBy string       `gorm:"size:10" json:"reviewed_by,omitempty"`
	ReviewNote string       `gorm:"type:text" json:"review_note,omitempty"`
	ReviewedAt *time.Time   `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

type Notification struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	UserID    string         `gorm:"index;size:10;not null" json:"user_id"`
	Kind      string         `gorm:"size:32" json:"kind"`
	Title     string         `json:"title"`
	Body      string         `gorm:"type:text" json:"body"`
	Link      string         `json:"link,omitempty"`
	Read      bool           `gorm:"default:false;index" json:"read"`
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

type ActivityLog struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	UserID    string         `gorm:"index;size:10" json:"user_id"`
	Action    string         `gorm:"index;size:48;not null" json:"action"`
	Metadata  datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	IP        string         `json:"ip,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

type UserBadge struct {
	UserID     string    `gorm:"primaryKey;size:10" json:"user_id"`
	BadgeID    string    `gorm:"primaryKey;size:48" json:"badge_id"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

type Escalation struct {
	ID         string         `gorm:"primaryKey;size:36" json:"id"`
	Kind       EscalationKind `gorm:"type:text;not null;index" json:"kind"`
	SubjectID  string         `gorm:"index;size:36" json:"subject_id"`
	Details    string         `gorm:"type:text" json:"details"`
	Resolved   bool           `gorm:"default:false;index" json:"resolved"`
	ResolvedBy string         `gorm:"size:10" json:"resolved_by,omitempty"`
	ResolvedAt *time.Time     `json:"resolved_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
