package domain

import "time"

// AcademicLevel enumerates the student's standing.
type AcademicLevel string

const (
	LevelFreshman  AcademicLevel = "freshman"
	LevelSophomore AcademicLevel = "sophomore"
	LevelJunior    AcademicLevel = "junior"
	LevelSenior    AcademicLevel = "senior"
	LevelGraduate  AcademicLevel = "graduate"
	LevelAlumni    AcademicLevel = "alumni"
)

// DetailLevel controls how verbose generated answers should be.
type DetailLevel string

const (
	DetailBrief    DetailLevel = "brief"
	DetailMedium   DetailLevel = "medium"
	DetailDetailed DetailLevel = "detailed"
)

// TopicInterest tracks a decaying interest score for one topic.
type TopicInterest struct {
	Topic            string    `json:"topic"`
	Score            float64   `json:"score"`
	InteractionCount int       `json:"interaction_count"`
	LastAccessed     time.Time `json:"last_accessed"`
	Source           string    `json:"source"` // "explicit" | "inferred" | "recorded"
}

// InteractionType enumerates recordable user interactions.
type InteractionType string

const (
	InteractionQuestion     InteractionType = "question"
	InteractionFileDownload InteractionType = "file_download"
	InteractionFormFill     InteractionType = "form_fill"
	InteractionTopicClick   InteractionType = "topic_click"
)

// InteractionEvent is one entry in the bounded interaction history ring buffer.
type InteractionEvent struct {
	Type      InteractionType   `json:"type"`
	Topic     string            `json:"topic,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// FieldConfidence tracks the provenance/confidence of a single profile field.
type FieldConfidence struct {
	Value      string    `json:"value"`
	Confidence float64   `json:"confidence"`
	Inferred   bool      `json:"inferred"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StudentProfile is a per-user personalization record.
type StudentProfile struct {
	UserID       string `json:"user_id"`
	Name         string `json:"name,omitempty"`
	StudentID    string `json:"student_id,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Gender       string `json:"gender,omitempty"`
	DOB          string `json:"dob,omitempty"`
	Address      string `json:"address,omitempty"`

	Level   AcademicLevel `json:"level,omitempty"`
	Major   string        `json:"major,omitempty"`
	Faculty string        `json:"faculty,omitempty"`
	Class   string        `json:"class,omitempty"`
	Year    int           `json:"year,omitempty"`

	Language    string      `json:"language,omitempty"`
	DetailLevel DetailLevel `json:"detail_level,omitempty"`

	PersonalitySummary string   `json:"personality_summary,omitempty"`
	PersonalityTraits  []string `json:"personality_traits,omitempty"` // capped at 6

	TopicsOfInterest  []TopicInterest     `json:"topics_of_interest"` // sorted by score desc on write, capped at 5
	InteractionHistory []InteractionEvent `json:"interaction_history"` // bounded ring buffer

	Counters map[string]int `json:"counters,omitempty"`

	// FieldConfidences tracks per-field confidence for values set by memory
	// extraction, keyed by field name (e.g. "major", "student_id").
	FieldConfidences map[string]FieldConfidence `json:"field_confidences,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Bounds enforced by the personalization service when writing a profile.
const (
	MaxPersonalityTraits = 6
	MaxTopicsOfInterest  = 5
	InterestFloor        = 0.05
)
