package store

import (
	"context"
	"time"

	"github.com/tom2tomtomtom/refer-ify-sub003/models"
)

// ReferralFilter scopes a referral listing. Exactly one of ClientID, ReferrerID or
// CandidateEmail is expected to be set by callers.
type ReferralFilter struct {
	ClientID       string
	ReferrerID     string
	CandidateEmail string
	JobID          string
	Status         models.ReferralStatus
}

func (s *Store) CreateReferral(ctx context.Context, r *models.Referral) error {
	r.CandidateEmail = normalizeEmail(r.CandidateEmail)
	return translate("create referral", s.conn(ctx).Omit("Job").Create(r).Error)
}

func (s *Store) GetReferral(ctx context.Context, id string) (*models.Referral, error) {
	var r models.Referral
	if err := s.conn(ctx).Preload("Job").Where("referrals.id = ?", id).First(&r).Error; err != nil {
		return nil, translate("get referral", err)
	}
	return &r, nil
}

func (s *Store) ListReferrals(ctx context.Context, f ReferralFilter) ([]models.Referral, error) {
	q := s.conn(ctx).Model(&models.Referral{}).Preload("Job")
	if f.ClientID != "" {
		q = q.Joins("JOIN jobs ON jobs.id = referrals.job_id").
			Where("jobs.client_id = ?", f.ClientID).
			Select("referrals.*")
	}
	if f.ReferrerID != "" {
		q = q.Where("referrals.referrer_id = ?", f.ReferrerID)
	}
	if f.CandidateEmail != "" {
		q = q.Where("referrals.candidate_email = ?", normalizeEmail(f.CandidateEmail))
	}
	if f.JobID != "" {
		q = q.Where("referrals.job_id = ?", f.JobID)
	}
	if f.Status != "" {
		q = q.Where("referrals.status = ?", f.Status)
	}

	var refs []models.Referral
	err := q.Order("referrals.created_at desc").Find(&refs).Error
	return refs, translate("list referrals", err)
}

// UpdateReferralStatus persists a status move as a single row update.
func (s *Store) UpdateReferralStatus(ctx context.Context, id string, status, rejectedFrom models.ReferralStatus, at time.Time) error {
	res := s.conn(ctx).Model(&models.Referral{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":            status,
		"rejected_from":     rejectedFrom,
		"status_changed_at": at,
	})
	return affected("update referral status", res)
}

func (s *Store) UpdateReferral(ctx context.Context, id string, fields map[string]interface{}) error {
	delete(fields, "job_id")
	delete(fields, "referrer_id")
	delete(fields, "status")
	res := s.conn(ctx).Model(&models.Referral{}).Where("id = ?", id).Updates(fields)
	return affected("update referral", res)
}
