package domain

import "time"

// DefaultSampleSize is the number of questions in a weekly quiz when the bank has enough.
const DefaultSampleSize = 30

// Question models an MCQ question with exactly one correct option.
type Question struct {
	ID                 string   `json:"id" yaml:"id"`
	Text               string   `json:"text" yaml:"text"`
	Options            []string `json:"options" yaml:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex" yaml:"correct_option_index"`
	Explanation        string   `json:"explanation" yaml:"explanation"`
	Regions            []Region `json:"regions" yaml:"regions"`
	Category           string   `json:"category" yaml:"category"`
}

// Answer is a recorded response to one question of a quiz instance.
type Answer struct {
	QuestionID          string `json:"questionId"`
	SelectedOptionIndex int    `json:"selectedOptionIndex"`
	IsCorrect           bool   `json:"isCorrect"`
}

// QuizInstance is one driver's quiz session. Position always equals len(Answers).
type QuizInstance struct {
	ID        string     `json:"id"`
	DriverID  string     `json:"driverId"`
	Region    Region     `json:"region"`
	Questions []Question `json:"questions"`
	Position  int        `json:"position"`
	Answers   []Answer   `json:"answers"`
	StartedAt time.Time  `json:"startedAt"`
}

// CurrentQuestion returns the question awaiting an answer.
func (q QuizInstance) CurrentQuestion() (Question, bool) {
	if q.Position < 0 || q.Position >= len(q.Questions) {
		return Question{}, false
	}
	return q.Questions[q.Position], true
}

// QuizAttempt is the immutable record of a completed quiz.
type QuizAttempt struct {
	ID          string    `json:"id"`
	DriverID    string    `json:"driverId"`
	CompletedAt time.Time `json:"completedAt"`
	Score       int       `json:"score"`
	Answers     []Answer  `json:"answers"`
	WeekNumber  int       `json:"weekNumber"`
	Year        int       `json:"year"`
}

// ComplianceStatus is the weekly attestation state of a driver.
type ComplianceStatus string

const (
	StatusCompliant ComplianceStatus = "COMPLIANT"
	StatusOverdue   ComplianceStatus = "OVERDUE"
)

// ComplianceRecord is the signed weekly attestation, unique per driver and ISO week.
type ComplianceRecord struct {
	DriverID    string           `json:"driverId"`
	WeekNumber  int              `json:"weekNumber"`
	Year        int              `json:"year"`
	Status      ComplianceStatus `json:"status"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	Score       *int             `json:"score,omitempty"`
	Signature   string           `json:"signature"`
}

// Key returns the natural key of the record.
func (r ComplianceRecord) Key() RecordKey {
	return RecordKey{DriverID: r.DriverID, Week: ISOWeek{Week: r.WeekNumber, Year: r.Year}}
}

// RecordKey identifies a compliance record.
type RecordKey struct {
	DriverID string
	Week     ISOWeek
}

// DriverProfile carries the driver's identity and derived safety index.
type DriverProfile struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	EmployeeID  string     `json:"employeeId"`
	Region      Region     `json:"region"`
	SafetyIndex int        `json:"safetyIndex"`
	LastQuizAt  *time.Time `json:"lastQuizAt,omitempty"`
}

// LeaderboardEntry is a snapshot-friendly view of a driver's standing.
type LeaderboardEntry struct {
	DriverID    string `json:"driverId"`
	Name        string `json:"name"`
	EmployeeID  string `json:"employeeId"`
	SafetyIndex int    `json:"safetyIndex"`
	Compliant   bool   `json:"compliant"`
}

// Leaderboard captures the ordered standings for a region.
type Leaderboard struct {
	Region    Region             `json:"region"`
	Week      ISOWeek            `json:"week"`
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}
