// Package risk classifies glucose and blood pressure readings against clinical thresholds.
package risk

import (
	"fmt"
	"strings"

	"health-companion-backend/internal/models"
)

// GlucoseThresholds holds the cutoffs for one glucose reading type, in mg/dL
type GlucoseThresholds struct {
	SevereLow  int // below this is severe hypoglycemia
	Low        int // below this is hypoglycemia
	NormalHigh int // above this is risky high
	RiskyHigh  int // risky-high band ends here; above it is hyperglycemia
	SevereHigh int // above this is severe hyperglycemia (DKA)
}

// BloodPressureThresholds holds the hypotension and hypertension cutoffs, in mmHg
type BloodPressureThresholds struct {
	SystolicSevereLow   int
	SystolicLow         int
	SystolicHigh        int
	SystolicSevereHigh  int
	DiastolicSevereLow  int
	DiastolicLow        int
	DiastolicHigh       int
	DiastolicSevereHigh int
}

// Thresholds is the full table the evaluator works from
type Thresholds struct {
	Fasting       GlucoseThresholds
	Postprandial  GlucoseThresholds
	BloodPressure BloodPressureThresholds
}

// DefaultThresholds returns the documented clinical cutoffs
func DefaultThresholds() Thresholds {
	return Thresholds{
		Fasting: GlucoseThresholds{
			SevereLow:  54,
			Low:        70,
			NormalHigh: 99,
			RiskyHigh:  180,
			SevereHigh: 250,
		},
		Postprandial: GlucoseThresholds{
			SevereLow:  54,
			Low:        70,
			NormalHigh: 140,
			RiskyHigh:  200,
			SevereHigh: 250,
		},
		BloodPressure: BloodPressureThresholds{
			SystolicSevereLow:   70,
			SystolicLow:         90,
			SystolicHigh:        140,
			SystolicSevereHigh:  180,
			DiastolicSevereLow:  40,
			DiastolicLow:        60,
			DiastolicHigh:       90,
			DiastolicSevereHigh: 120,
		},
	}
}

// Assessment is the outcome of evaluating one reading.
// Risky is always equal to len(Messages) > 0.
type Assessment struct {
	Risky    bool     `json:"is_risky"`
	Messages []string `json:"messages"`
}

// Message joins all advisories into the single text stored on notifications
func (a Assessment) Message() string {
	return strings.Join(a.Messages, " ")
}

func newAssessment(messages []string) Assessment {
	if messages == nil {
		messages = []string{}
	}
	return Assessment{Risky: len(messages) > 0, Messages: messages}
}

// Evaluator is stateless; one value can be shared by every request
type Evaluator struct {
	thresholds Thresholds
}

// NewEvaluator creates an evaluator using the default thresholds
func NewEvaluator() *Evaluator {
	return NewEvaluatorWithThresholds(DefaultThresholds())
}

// NewEvaluatorWithThresholds creates an evaluator using custom thresholds
func NewEvaluatorWithThresholds(t Thresholds) *Evaluator {
	return &Evaluator{thresholds: t}
}

// Thresholds returns the table in use
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// EvaluateGlucose classifies a glucose level. Every check runs independently, so a level
// below the severe cutoff also reports plain hypoglycemia.
func (e *Evaluator) EvaluateGlucose(level int, glucoseType models.GlucoseType) Assessment {
	t := e.thresholds.Fasting
	if glucoseType == models.GlucosePostprandial {
		t = e.thresholds.Postprandial
	}
	label := glucoseType.Label()

	var messages []string
	if level < t.SevereLow {
		messages = append(messages, fmt.Sprintf(
			"%s glucose of %d mg/dL indicates severe hypoglycemia (below %d mg/dL).", label, level, t.SevereLow))
	}
	if level < t.Low {
		messages = append(messages, fmt.Sprintf(
			"%s glucose of %d mg/dL indicates hypoglycemia (below %d mg/dL).", label, level, t.Low))
	}
	if level > t.NormalHigh && level <= t.RiskyHigh {
		messages = append(messages, fmt.Sprintf(
			"%s glucose of %d mg/dL is risky high (above %d mg/dL).", label, level, t.NormalHigh))
	}
	if level > t.RiskyHigh {
		messages = append(messages, fmt.Sprintf(
			"%s glucose of %d mg/dL indicates hyperglycemia (above %d mg/dL).", label, level, t.RiskyHigh))
	}
	if level > t.SevereHigh {
		messages = append(messages, fmt.Sprintf(
			"%s glucose of %d mg/dL indicates severe hyperglycemia with risk of DKA (above %d mg/dL).", label, level, t.SevereHigh))
	}
	return newAssessment(messages)
}

// EvaluateBloodPressure classifies a reading. Systolic and diastolic each yield at most one
// advisory; shock and crisis are checked on top of those.
func (e *Evaluator) EvaluateBloodPressure(systolic, diastolic int) Assessment {
	t := e.thresholds.BloodPressure

	var messages []string
	switch {
	case systolic < t.SystolicLow:
		messages = append(messages, fmt.Sprintf(
			"Systolic pressure of %d mmHg is low, indicating hypotension (below %d mmHg).", systolic, t.SystolicLow))
	case systolic > t.SystolicHigh:
		messages = append(messages, fmt.Sprintf(
			"Systolic pressure of %d mmHg is high, indicating hypertension (above %d mmHg).", systolic, t.SystolicHigh))
	}

	switch {
	case diastolic < t.DiastolicLow:
		messages = append(messages, fmt.Sprintf(
			"Diastolic pressure of %d mmHg is low, indicating hypotension (below %d mmHg).", diastolic, t.DiastolicLow))
	case diastolic > t.DiastolicHigh:
		messages = append(messages, fmt.Sprintf(
			"Diastolic pressure of %d mmHg is high, indicating hypertension (above %d mmHg).", diastolic, t.DiastolicHigh))
	}

	if systolic < t.SystolicSevereLow && diastolic < t.DiastolicSevereLow {
		messages = append(messages, fmt.Sprintf(
			"Blood pressure of %d/%d mmHg suggests possible shock.", systolic, diastolic))
	}
	if systolic > t.SystolicSevereHigh || diastolic > t.DiastolicSevereHigh {
		messages = append(messages, fmt.Sprintf(
			"Blood pressure of %d/%d mmHg indicates a hypertensive crisis.", systolic, diastolic))
	}
	return newAssessment(messages)
}
