package http

import (
	"time"

	"safepass-compliance/internal/app"
	"safepass-compliance/internal/domain"
)

// questionView hides the correct option until the question is answered.
type questionView struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Options  []string `json:"options"`
	Category string   `json:"category,omitempty"`
}

type quizView struct {
	ID        string        `json:"id"`
	Region    domain.Region `json:"region"`
	Position  int           `json:"position"`
	Total     int           `json:"total"`
	Score     int           `json:"score"`
	Complete  bool          `json:"complete"`
	Resumed   bool          `json:"resumed"`
	StartedAt time.Time     `json:"startedAt"`
	Current   *questionView `json:"current,omitempty"`
}

func newQuizView(instance domain.QuizInstance, resumed bool) quizView {
	view := quizView{
		ID:        instance.ID,
		Region:    instance.Region,
		Position:  instance.Position,
		Total:     len(instance.Questions),
		Score:     app.InstanceScore(instance),
		Complete:  app.IsComplete(instance),
		Resumed:   resumed,
		StartedAt: instance.StartedAt,
	}
	if q, ok := instance.CurrentQuestion(); ok {
		view.Current = &questionView{ID: q.ID, Text: q.Text, Options: q.Options, Category: q.Category}
	}
	return view
}

type integrityView struct {
	Checked       int             `json:"checked"`
	Tampered      bool            `json:"tampered"`
	OffendingWeek *domain.ISOWeek `json:"offendingWeek,omitempty"`
}

type complianceView struct {
	Records   []domain.ComplianceRecord `json:"records"`
	Integrity integrityView             `json:"integrity"`
}

func newComplianceView(records []domain.ComplianceRecord, report app.IntegrityReport) complianceView {
	view := complianceView{
		Records:   records,
		Integrity: integrityView{Checked: report.Checked, Tampered: report.Tampered},
	}
	if report.Offending != nil {
		week := report.Offending.Week
		view.Integrity.OffendingWeek = &week
	}
	return view
}

type profileRequest struct {
	Name       string `json:"name"`
	EmployeeID string `json:"employeeId"`
	Region     string `json:"region"`
}

type answerRequest struct {
	SelectedOptionIndex *int `json:"selectedOptionIndex"`
}

type errorPayload struct {
	Message string `json:"message"`
}
