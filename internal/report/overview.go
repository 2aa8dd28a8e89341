package report

import (
	"sort"
	"time"

	"churn-predictor/internal/common"
	"churn-predictor/internal/ml"
)

const (
	highRiskProbability   = 0.8
	mediumRiskProbability = 0.5
	overviewDays          = 10
)

// DayCount is the number of retained and churned predictions of runs created on Day.
type DayCount struct {
	Day      string `json:"day"` // YYYY-MM-DD, UTC
	Retained int    `json:"retained"`
	Churned  int    `json:"churned"`
}

// Overview aggregates many runs.
type Overview struct {
	Runs        int                    `json:"runs"`
	Retained    int                    `json:"retained"`
	Churned     int                    `json:"churned"`
	HighRisk    int                    `json:"high_risk"`   // p >= 0.8
	MediumRisk  int                    `json:"medium_risk"` // 0.5 <= p < 0.8
	LowRisk     int                    `json:"low_risk"`    // p < 0.5
	Daily       []DayCount             `json:"daily"`
	RunsByModel map[common.ModelID]int `json:"runs_by_model"`
}

// NewOverview summarizes runs with their predictions loaded. Daily holds the most
// recent days that have runs, oldest first.
func NewOverview(runs []ml.RunResult) Overview {
	o := Overview{
		Runs:        len(runs),
		RunsByModel: make(map[common.ModelID]int, len(common.ModelIDs)),
	}
	for _, id := range common.ModelIDs {
		o.RunsByModel[id] = 0
	}

	days := make(map[string]*DayCount)
	for _, run := range runs {
		o.RunsByModel[run.Model]++

		key := run.CreatedAt.UTC().Format(time.DateOnly)
		day, ok := days[key]
		if !ok {
			day = &DayCount{Day: key}
			days[key] = day
		}

		for _, p := range run.Predictions {
			if p.Label == 1 {
				o.Churned++
				day.Churned++
			} else {
				o.Retained++
				day.Retained++
			}

			if p.Probability == nil {
				continue
			}
			switch prob := *p.Probability; {
			case prob >= highRiskProbability:
				o.HighRisk++
			case prob >= mediumRiskProbability:
				o.MediumRisk++
			default:
				o.LowRisk++
			}
		}
	}

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > overviewDays {
		keys = keys[len(keys)-overviewDays:]
	}
	for _, k := range keys {
		o.Daily = append(o.Daily, *days[k])
	}

	return o
}
