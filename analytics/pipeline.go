// Package analytics folds referral rows into dashboard figures. Everything here is
// recomputed from the rows on every request.
package analytics

import (
	"time"

	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"github.com/tom2tomtomtom/refer-ify-sub003/pipeline"
)

type ConversionRates struct {
	SubmittedToReviewed   float64 `json:"submittedToReviewed"`
	ReviewedToShortlisted float64 `json:"reviewedToShortlisted"`
	ShortlistedToHired    float64 `json:"shortlistedToHired"`
}

type PipelineStats struct {
	Total           int                           `json:"totalReferrals"`
	PipelineCounts  map[models.ReferralStatus]int `json:"pipelineCounts"`
	ConversionRates ConversionRates               `json:"conversionRates"`
	AvgTimeToHire   float64                       `json:"avgTimeToHire"`
}

// Pipeline aggregates referrals already scoped to the caller.
//
// Conversion ratios compare how many referrals reached each stage, counting rejected
// referrals at the stage they were rejected from, so each ratio stays within [0, 1].
// Average time to hire is in days, measured from creation to now over hired rows only.
func Pipeline(referrals []models.Referral, now time.Time) PipelineStats {
	counts := make(map[models.ReferralStatus]int, len(pipeline.Statuses))
	for _, s := range pipeline.Statuses {
		counts[s] = 0
	}

	reached := make([]int, len(pipeline.Order))
	var hired int
	var hireDays float64

	for _, r := range referrals {
		counts[r.Status]++
		for i := 0; i <= pipeline.Reached(r); i++ {
			reached[i]++
		}
		if r.Status == models.StatusHired {
			hired++
			if d := now.Sub(r.CreatedAt).Hours() / 24; d > 0 {
				hireDays += d
			}
		}
	}

	stats := PipelineStats{
		Total:          len(referrals),
		PipelineCounts: counts,
		ConversionRates: ConversionRates{
			SubmittedToReviewed:   ratio(reached[1], reached[0]),
			ReviewedToShortlisted: ratio(reached[2], reached[1]),
			ShortlistedToHired:    ratio(reached[4], reached[2]),
		},
	}
	if hired > 0 {
		stats.AvgTimeToHire = hireDays / float64(hired)
	}
	return stats
}

func ratio(num, den int) float64 {
	if den < 1 {
		den = 1
	}
	r := float64(num) / float64(den)
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}
