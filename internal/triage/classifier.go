package triage

import (
	"fmt"
	"strings"
)

// Level is the urgency verdict.
type Level string

const (
	LevelUrgent  Level = "URGENT"
	LevelSoon    Level = "SOON"
	LevelRoutine Level = "ROUTINE"
)

// Result is a triage verdict. It is built once and never modified.
type Result struct {
	Level    Level    `json:"level"`
	Reason   string   `json:"reason"`
	Symptoms []string `json:"symptoms"`
	Context  Context  `json:"context"`
}

// Classify applies the decision policy in priority order:
// red flags, then moderate/severe symptoms lasting two days or more, then routine.
func Classify(symptoms []string, ctx Context) Result {
	res := Result{
		Symptoms: append([]string{}, symptoms...),
		Context:  ctx,
	}
	res.Context.RedHits = append([]string{}, ctx.RedHits...)

	switch {
	case len(ctx.RedHits) > 0:
		res.Level = LevelUrgent
		res.Reason = "Detected red-flag symptom(s): " + strings.Join(ctx.RedHits, ", ")
	case ctx.SeverityScore >= 2 && ctx.DurationDays >= 2:
		res.Level = LevelSoon
		res.Reason = fmt.Sprintf("Moderate/severe symptoms persisting for %d day(s).", ctx.DurationDays)
	default:
		res.Level = LevelRoutine
		res.Reason = "No red flags detected; mild or short-duration symptoms."
	}
	return res
}
