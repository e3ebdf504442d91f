package proctor

import "github.com/stemsi/exstem-interview/internal/model"

// RiskPolicy holds the total-violation thresholds used to derive a RiskStatus.
type RiskPolicy struct {
	WarningAt  int
	CriticalAt int
}

// DefaultRiskPolicy is Warning from the first violation and Critical from the fifth.
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{WarningAt: 1, CriticalAt: 5}
}

// Classify maps a total violation count to a RiskStatus.
func (p RiskPolicy) Classify(total int) model.RiskStatus {
	switch {
	case total >= p.CriticalAt:
		return model.RiskCritical
	case total >= p.WarningAt:
		return model.RiskWarning
	default:
		return model.RiskGood
	}
}
