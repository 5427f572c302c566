package analytics

import (
	"github.com/shopspring/decimal"
	"github.com/tom2tomtomtom/refer-ify-sub003/models"
)

var (
	// PlacementFeeRate is the share of the average salary a client pays on a hire.
	PlacementFeeRate = decimal.RequireFromString("0.20")

	shares = map[models.Role]decimal.Decimal{
		models.RoleFoundingCircle: decimal.RequireFromString("0.15"),
		models.RoleSelectCircle:   decimal.RequireFromString("0.40"),
	}
)

// SharePercent returns the referrer's share of the placement fee for a role. Roles
// without a share get zero.
func SharePercent(role models.Role) decimal.Decimal {
	if s, ok := shares[role]; ok {
		return s
	}
	return decimal.Zero
}

// PlacementFee estimates the fee for a hire on job.
func PlacementFee(job models.Job) decimal.Decimal {
	avg := decimal.NewFromInt(job.SalaryMin).Add(decimal.NewFromInt(job.SalaryMax)).Div(decimal.NewFromInt(2))
	return avg.Mul(PlacementFeeRate)
}

type Placement struct {
	ReferralID    string          `json:"referralId"`
	JobID         string          `json:"jobId"`
	JobTitle      string          `json:"jobTitle"`
	CandidateName string          `json:"candidateName"`
	PlacementFee  decimal.Decimal `json:"placementFee"`
	Earnings      decimal.Decimal `json:"earnings"`
}

type EarningsSummary struct {
	Role          models.Role     `json:"role"`
	SharePercent  decimal.Decimal `json:"sharePercent"`
	HiredCount    int             `json:"hiredCount"`
	TotalEarnings decimal.Decimal `json:"totalEarnings"`
	Placements    []Placement     `json:"placements"`
}

// Earnings applies the role's share to every hired referral. Referrals without a loaded
// job contribute a zero fee.
func Earnings(role models.Role, referrals []models.Referral) EarningsSummary {
	share := SharePercent(role)
	summary := EarningsSummary{
		Role:          role,
		SharePercent:  share.Mul(decimal.NewFromInt(100)),
		TotalEarnings: decimal.Zero,
		Placements:    []Placement{},
	}

	for _, r := range referrals {
		if r.Status != models.StatusHired {
			continue
		}
		p := Placement{
			ReferralID:    r.ID,
			JobID:         r.JobID,
			CandidateName: r.CandidateName,
			PlacementFee:  decimal.Zero,
			Earnings:      decimal.Zero,
		}
		if r.Job != nil {
			p.JobTitle = r.Job.Title
			p.PlacementFee = PlacementFee(*r.Job).Round(2)
			p.Earnings = PlacementFee(*r.Job).Mul(share).Round(2)
		}
		summary.HiredCount++
		summary.TotalEarnings = summary.TotalEarnings.Add(p.Earnings)
		summary.Placements = append(summary.Placements, p)
	}
	return summary
}
