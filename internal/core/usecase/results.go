package usecase

import "github.com/kirillkom/vision-client/internal/core/domain"

type CapabilityOutcome struct {
	Capability domain.Capability
	Name       string
	Status     domain.StepStatus
	HasResult  bool
	Error      string
}

// Overview summarizes a run for the results view. A completed step without
// a result counts as skipped.
type Overview struct {
	Succeeded int
	Failed    int
	Skipped   int
	Pending   int
	Outcomes  []CapabilityOutcome
}

func (o Overview) Total() int {
	return len(o.Outcomes)
}

func BuildOverview(steps []domain.ProcessingStep, results domain.ResultsAggregate) Overview {
	var ov Overview
	for _, s := range steps {
		has := results.Has(s.ID)
		ov.Outcomes = append(ov.Outcomes, CapabilityOutcome{
			Capability: s.ID,
			Name:       s.Name,
			Status:     s.Status,
			HasResult:  has,
			Error:      s.Error,
		})
		switch {
		case s.Status == domain.StepError:
			ov.Failed++
		case s.Status == domain.StepCompleted && has:
			ov.Succeeded++
		case s.Status == domain.StepCompleted:
			ov.Skipped++
		default:
			ov.Pending++
		}
	}
	return ov
}
