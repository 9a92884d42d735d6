// internal/models/inference.go
package models

import (
	"encoding/json"
	"fmt"
)

type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

type ProvenanceSource string

const (
	SourceUserInput ProvenanceSource = "userInput"
	SourceTemplate  ProvenanceSource = "template"
	SourceInference ProvenanceSource = "inference"
)

// Provenance records which answers and assumptions produced an inference.
type Provenance struct {
	Source      ProvenanceSource `json:"source"`
	References  []string         `json:"references"`
	Assumptions []string         `json:"assumptions"`
}

// OutputKind tags an analyzer output record.
type OutputKind string

const (
	KindPainPoint           OutputKind = "painPoint"
	KindPersona             OutputKind = "persona"
	KindMarketSizing        OutputKind = "marketSizing"
	KindViabilityAssessment OutputKind = "viabilityAssessment"
)

// Record is implemented only by the concrete inference types in this file.
type Record interface {
	Kind() OutputKind
	RecordID() string
	isRecord()
}

type PainPoint struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Severity    Level    `json:"severity"`
	Segments    []string `json:"segments,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

type Persona struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Role        string `json:"role,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Segment     string `json:"segment,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

type MarketSizing struct {
	ID           string   `json:"id"`
	Segment      string   `json:"segment"`
	TAM          *float64 `json:"tam,omitempty"`
	SAM          *float64 `json:"sam,omitempty"`
	SOM          *float64 `json:"som,omitempty"`
	Currency     string   `json:"currency,omitempty"`
	PricingModel string   `json:"pricingModel,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

type ViabilityAssessment struct {
	ID             string   `json:"id"`
	Feasibility    Level    `json:"feasibility"`
	KeyConstraints []string `json:"keyConstraints"`
	TeamFit        string   `json:"teamFit,omitempty"`
	TimelineRisk   Level    `json:"timelineRisk,omitempty"`
	OverallRisk    Level    `json:"overallRisk,omitempty"`
	Notes          string   `json:"notes,omitempty"`
}

func (PainPoint) Kind() OutputKind           { return KindPainPoint }
func (Persona) Kind() OutputKind             { return KindPersona }
func (MarketSizing) Kind() OutputKind        { return KindMarketSizing }
func (ViabilityAssessment) Kind() OutputKind { return KindViabilityAssessment }

func (p PainPoint) RecordID() string           { return p.ID }
func (p Persona) RecordID() string             { return p.ID }
func (m MarketSizing) RecordID() string        { return m.ID }
func (v ViabilityAssessment) RecordID() string { return v.ID }

func (PainPoint) isRecord()           {}
func (Persona) isRecord()             {}
func (MarketSizing) isRecord()        {}
func (ViabilityAssessment) isRecord() {}

// AnalyzerOutput is one typed, provenance-tagged record emitted by an analyzer.
type AnalyzerOutput struct {
	Type       OutputKind `json:"type"`
	Data       Record     `json:"data"`
	Provenance Provenance `json:"provenance"`
}

// NewOutput tags rec with its kind.
func NewOutput(rec Record, prov Provenance) AnalyzerOutput {
	return AnalyzerOutput{Type: rec.Kind(), Data: rec, Provenance: prov}
}

func (o *AnalyzerOutput) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type       OutputKind      `json:"type"`
		Data       json.RawMessage `json:"data"`
		Provenance Provenance      `json:"provenance"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var rec Record
	switch raw.Type {
	case KindPainPoint:
		var v PainPoint
		if err := json.Unmarshal(raw.Data, &v); err != nil {
			return err
		}
		rec = v
	case KindPersona:
		var v Persona
		if err := json.Unmarshal(raw.Data, &v); err != nil {
			return err
		}
		rec = v
	case KindMarketSizing:
		var v MarketSizing
		if err := json.Unmarshal(raw.Data, &v); err != nil {
			return err
		}
		rec = v
	case KindViabilityAssessment:
		var v ViabilityAssessment
		if err := json.Unmarshal(raw.Data, &v); err != nil {
			return err
		}
		rec = v
	default:
		return fmt.Errorf("unknown analyzer output type %q", raw.Type)
	}

	o.Type = raw.Type
	o.Data = rec
	o.Provenance = raw.Provenance
	return nil
}

// FollowUpQuestion is a clarification suggested by the analysis service.
type FollowUpQuestion struct {
	QuestionID string `json:"questionId"`
	Text       string `json:"text"`
	Section    string `json:"section"`
	Priority   Level  `json:"priority"`
}

// DerivedInferences holds the analyzer buckets. It is replaced wholesale on
// every analysis run. Provenance is keyed by record ID.
type DerivedInferences struct {
	PainPoints        []PainPoint           `json:"painPoints"`
	Personas          []Persona             `json:"personas"`
	MarketSizing      []MarketSizing        `json:"marketSizing"`
	Viability         []ViabilityAssessment `json:"viability"`
	FollowUpQuestions []FollowUpQuestion    `json:"followUpQuestions"`
	Provenance        map[string]Provenance `json:"provenance"`
}

// NewDerivedInferences returns empty, non-nil buckets so templates and JSON
// consumers see [] rather than null.
func NewDerivedInferences() DerivedInferences {
	return DerivedInferences{
		PainPoints:        []PainPoint{},
		Personas:          []Persona{},
		MarketSizing:      []MarketSizing{},
		Viability:         []ViabilityAssessment{},
		FollowUpQuestions: []FollowUpQuestion{},
		Provenance:        map[string]Provenance{},
	}
}
