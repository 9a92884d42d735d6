// internal/models/question.go
package models

type InputType string

const (
	InputTypeText        InputType = "text"
	InputTypeTextarea    InputType = "textarea"
	InputTypeSelect      InputType = "select"
	InputTypeMultiselect InputType = "multiselect"
	InputTypeNumber      InputType = "number"
	InputTypeDate        InputType = "date"
)

// Question is an interview question as declared in the question catalog.
type Question struct {
	ID               string            `json:"id" yaml:"id"`
	Text             string            `json:"text" yaml:"text"`
	Category         string            `json:"category" yaml:"category"`
	InputType        InputType         `json:"inputType" yaml:"inputType"`
	HelpText         string            `json:"helpText,omitempty" yaml:"helpText,omitempty"`
	Options          []string          `json:"options,omitempty" yaml:"options,omitempty"`
	ValidationRules  *ValidationRules  `json:"validationRules,omitempty" yaml:"validationRules,omitempty"`
	ConditionalLogic *ConditionalLogic `json:"conditionalLogic,omitempty" yaml:"conditionalLogic,omitempty"`
}

// ValidationRules holds the declarative constraints attached to a question.
// Pointer fields distinguish "unset" from a zero bound.
type ValidationRules struct {
	Required      bool          `json:"required,omitempty" yaml:"required,omitempty"`
	MinLength     *int          `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength     *int          `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Min           *float64      `json:"min,omitempty" yaml:"min,omitempty"`
	Max           *float64      `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern       string        `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	AllowedValues []interface{} `json:"allowedValues,omitempty" yaml:"allowedValues,omitempty"`
}

// Condition compares the current answer of QuestionID against Value.
// A list Value means membership.
type Condition struct {
	QuestionID string      `json:"questionId" yaml:"questionId"`
	Value      interface{} `json:"value" yaml:"value"`
}

type ConditionalLogic struct {
	ShowIf *Condition `json:"showIf,omitempty" yaml:"showIf,omitempty"`
	HideIf *Condition `json:"hideIf,omitempty" yaml:"hideIf,omitempty"`

	// Deprecated: use ShowIf. Kept for older catalogs.
	DependsOn   string      `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	ShowIfValue interface{} `json:"showIfValue,omitempty" yaml:"showIfValue,omitempty"`
}
