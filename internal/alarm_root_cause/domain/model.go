package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/ingest/loader"
)

// UseCase selects which alarmed gates are analyzed.
type UseCase string

const (
	UseCaseAlarmNot UseCase = "alarmnot"
	UseCaseAlarmAnd UseCase = "alarmand"
	UseCaseAlarmOr  UseCase = "alarmor"
)

var UseCases = []UseCase{UseCaseAlarmNot, UseCaseAlarmAnd, UseCaseAlarmOr}

func ParseUseCase(s string) (UseCase, error) {
	for _, u := range UseCases {
		if strings.EqualFold(s, string(u)) {
			return u, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownUseCase, s)
}

// DateLayout is the calendar day format of params and stored records.
const DateLayout = "2006-01-02"

// Params selects the plant, day and export location of one analysis.
type Params struct {
	PPID   string       `json:"ppid" validate:"required"`
	Dates  []string     `json:"dates" validate:"required,min=1,dive,datetime=2006-01-02"`
	Index  int          `json:"index" validate:"gte=0"`
	Bucket string       `json:"bucket,omitempty"`
	Paths  loader.Paths `json:"paths"`
}

// Date returns the day selected by Index.
func (p Params) Date() string {
	if p.Index < 0 || p.Index >= len(p.Dates) {
		return ""
	}
	return p.Dates[p.Index]
}

var validate = validator.New()

// Validate checks required fields and that Index points into Dates.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if p.Index >= len(p.Dates) {
		return fmt.Errorf("%w: index %d out of %d dates", ErrInvalidParams, p.Index, len(p.Dates))
	}
	return nil
}

// Result is the outcome handed back to callers of a run.
type Result struct {
	Success   bool  `json:"success"`
	Processed []int `json:"processed"`
}

func (r Result) String() string {
	parts := make([]string, len(r.Processed))
	for i, n := range r.Processed {
		parts[i] = fmt.Sprint(n)
	}
	return fmt.Sprintf("Result={success=%t, processed:[%s]}", r.Success, strings.Join(parts, ", "))
}

// Run is the ledger entry of one analysis request.
type Run struct {
	RunID       string     `json:"run_id"`
	PPID        string     `json:"ppid"`
	Date        string     `json:"date"`
	UseCase     UseCase    `json:"use_case"`
	Status      string     `json:"status"`
	Processed   int        `json:"processed"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Run statuses
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusRunning, StatusSucceeded, StatusFailed:
		return true
	}
	return false
}

// UpdateRunRequest carries the fields changed on a run.
type UpdateRunRequest struct {
	Status    *string
	Processed *int
	Error     *string
}
