package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
)

func TestPipeline(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("Should count one referral per stage across two jobs", func(t *testing.T) {
		refs := []models.Referral{
			{JobID: "job-1", Status: models.StatusSubmitted, CreatedAt: now.Add(-24 * time.Hour)},
			{JobID: "job-1", Status: models.StatusReviewed, CreatedAt: now.Add(-48 * time.Hour)},
			{JobID: "job-2", Status: models.StatusShortlisted, CreatedAt: now.Add(-72 * time.Hour)},
			{JobID: "job-2", Status: models.StatusHired, CreatedAt: now.Add(-10 * 24 * time.Hour)},
		}

		stats := Pipeline(refs, now)
		assert.Equal(t, 4, stats.Total)
		assert.Equal(t, 1, stats.PipelineCounts[models.StatusSubmitted])
		assert.Equal(t, 1, stats.PipelineCounts[models.StatusReviewed])
		assert.Equal(t, 1, stats.PipelineCounts[models.StatusShortlisted])
		assert.Equal(t, 1, stats.PipelineCounts[models.StatusHired])
		assert.Equal(t, 0, stats.PipelineCounts[models.StatusInterviewing])
		assert.Equal(t, 0, stats.PipelineCounts[models.StatusRejected])
		assert.InDelta(t, 10.0, stats.AvgTimeToHire, 0.0001)
		assert.GreaterOrEqual(t, stats.AvgTimeToHire, 0.0)

		// reached: submitted 4, reviewed 3, shortlisted 2, hired 1
		assert.InDelta(t, 0.75, stats.ConversionRates.SubmittedToReviewed, 0.0001)
		assert.InDelta(t, 2.0/3.0, stats.ConversionRates.ReviewedToShortlisted, 0.0001)
		assert.InDelta(t, 0.5, stats.ConversionRates.ShortlistedToHired, 0.0001)
	})

	t.Run("Should return zeros for no referrals", func(t *testing.T) {
		stats := Pipeline(nil, now)
		assert.Equal(t, 0, stats.Total)
		assert.Equal(t, 0.0, stats.AvgTimeToHire)
		assert.Equal(t, ConversionRates{}, stats.ConversionRates)
		assert.Len(t, stats.PipelineCounts, 6)
	})

	t.Run("Should count rejected referrals at the stage they left", func(t *testing.T) {
		refs := []models.Referral{
			{Status: models.StatusRejected, RejectedFrom: models.StatusInterviewing, CreatedAt: now},
			{Status: models.StatusRejected, RejectedFrom: models.StatusSubmitted, CreatedAt: now},
		}
		stats := Pipeline(refs, now)
		assert.Equal(t, 2, stats.PipelineCounts[models.StatusRejected])
		assert.InDelta(t, 0.5, stats.ConversionRates.SubmittedToReviewed, 0.0001)
		assert.InDelta(t, 1.0, stats.ConversionRates.ReviewedToShortlisted, 0.0001)
		assert.Equal(t, 0.0, stats.ConversionRates.ShortlistedToHired)
		assert.Equal(t, 0.0, stats.AvgTimeToHire)
	})

	t.Run("Should keep every ratio within bounds", func(t *testing.T) {
		statuses := []models.ReferralStatus{
			models.StatusHired, models.StatusHired, models.StatusInterviewing,
			models.StatusRejected, models.StatusSubmitted, models.StatusShortlisted,
		}
		for n := 0; n <= len(statuses); n++ {
			var refs []models.Referral
			for _, s := range statuses[:n] {
				refs = append(refs, models.Referral{Status: s, CreatedAt: now.Add(-time.Hour)})
			}
			rates := Pipeline(refs, now).ConversionRates
			for _, r := range []float64{rates.SubmittedToReviewed, rates.ReviewedToShortlisted, rates.ShortlistedToHired} {
				assert.GreaterOrEqual(t, r, 0.0)
				assert.LessOrEqual(t, r, 1.0)
			}
		}
	})
}
