package alert

import (
	"fmt"
	"time"
)

// Type is the severity of an alert. Types are totally ordered by Rank.
type Type string

const (
	TypeCritical Type = "critical"
	TypeHigh     Type = "high"
	TypeMedium   Type = "medium"
	TypeLow      Type = "low"
)

// Rank returns the priority rank used for sorting (critical=4 ... low=1).
// Unknown types rank 0.
func (t Type) Rank() int {
	switch t {
	case TypeCritical:
		return 4
	case TypeHigh:
		return 3
	case TypeMedium:
		return 2
	case TypeLow:
		return 1
	default:
		return 0
	}
}

func (t Type) IsValid() bool {
	return t.Rank() > 0
}

// ParseType converts user input into a Type.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.IsValid() {
		return "", fmt.Errorf("%w: invalid type %q", ErrValidation, s)
	}
	return t, nil
}

// Category classifies an alert independently of its Type.
type Category string

const (
	CategoryMedical       Category = "medical"
	CategoryAppointment   Category = "appointment"
	CategoryMedication    Category = "medication"
	CategoryCommunication Category = "communication"
	CategorySystem        Category = "system"
)

var validCategories = map[Category]bool{
	CategoryMedical: true, CategoryAppointment: true, CategoryMedication: true,
	CategoryCommunication: true, CategorySystem: true,
}

func (c Category) IsValid() bool {
	return validCategories[c]
}

// ParseCategory converts user input into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.IsValid() {
		return "", fmt.Errorf("%w: invalid category %q", ErrValidation, s)
	}
	return c, nil
}

// Alert is a tracked event requiring navigator attention, scoped to one patient.
// Only IsRead, IsResolved, ResolutionNote and EscalationLevel change after
// creation; ResolvedAt and UpdatedAt follow those changes.
type Alert struct {
	ID              string         `json:"id" yaml:"id"`
	PatientID       string         `json:"patient_id" yaml:"patient_id"`
	PatientName     string         `json:"patient_name" yaml:"patient_name"`
	Type            Type           `json:"type" yaml:"type"`
	Category        Category       `json:"category" yaml:"category"`
	Title           string         `json:"title" yaml:"title"`
	Description     string         `json:"description" yaml:"description"`
	Timestamp       time.Time      `json:"timestamp" yaml:"timestamp"`
	IsRead          bool           `json:"is_read" yaml:"is_read"`
	IsResolved      bool           `json:"is_resolved" yaml:"is_resolved"`
	ResolutionNote  *string        `json:"resolution_note,omitempty" yaml:"resolution_note,omitempty"`
	ResolvedAt      *time.Time     `json:"resolved_at,omitempty" yaml:"resolved_at,omitempty"`
	EscalationLevel int            `json:"escalation_level" yaml:"escalation_level"`
	RelatedData     map[string]any `json:"related_data,omitempty" yaml:"related_data,omitempty"`
	UpdatedAt       time.Time      `json:"updated_at" yaml:"-"`
}

// IsCritical reports whether the alert is critical and still active.
func (a *Alert) IsCritical() bool {
	return a.Type == TypeCritical && !a.IsResolved
}

// Clone returns a copy that shares no mutable state with a.
func (a *Alert) Clone() *Alert {
	c := *a
	if a.ResolutionNote != nil {
		note := *a.ResolutionNote
		c.ResolutionNote = &note
	}
	if a.ResolvedAt != nil {
		at := *a.ResolvedAt
		c.ResolvedAt = &at
	}
	if a.RelatedData != nil {
		c.RelatedData = make(map[string]any, len(a.RelatedData))
		for k, v := range a.RelatedData {
			c.RelatedData[k] = v
		}
	}
	return &c
}
