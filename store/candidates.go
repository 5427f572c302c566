package store

import (
	"context"
	"errors"

	"github.com/tom2tomtomtom/refer-ify-sub003/models"
	"gorm.io/gorm"
)

// UpsertCandidate finds the candidate by email or creates it. Blank fields of an existing
// profile are filled from c; populated ones are kept.
func (s *Store) UpsertCandidate(ctx context.Context, c *models.Candidate) (*models.Candidate, error) {
	c.Email = normalizeEmail(c.Email)

	var existing models.Candidate
	err := s.conn(ctx).Where("email = ?", c.Email).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := s.conn(ctx).Create(c).Error; err != nil {
			return nil, translate("create candidate", err)
		}
		return c, nil
	}
	if err != nil {
		return nil, translate("find candidate", err)
	}

	fields := map[string]interface{}{}
	if existing.FullName == "" && c.FullName != "" {
		fields["full_name"] = c.FullName
	}
	if existing.Phone == "" && c.Phone != "" {
		fields["phone"] = c.Phone
	}
	if existing.LinkedInURL == "" && c.LinkedInURL != "" {
		fields["linkedin_url"] = c.LinkedInURL
	}
	if existing.UserID == nil && c.UserID != nil {
		fields["user_id"] = *c.UserID
	}
	if len(fields) > 0 {
		if err := s.conn(ctx).Model(&existing).Updates(fields).Error; err != nil {
			return nil, translate("update candidate", err)
		}
	}
	return &existing, nil
}

func (s *Store) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	var c models.Candidate
	if err := s.conn(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate("get candidate", err)
	}
	return &c, nil
}

func (s *Store) GetCandidateByEmail(ctx context.Context, email string) (*models.Candidate, error) {
	var c models.Candidate
	if err := s.conn(ctx).Where("email = ?", normalizeEmail(email)).First(&c).Error; err != nil {
		return nil, translate("get candidate by email", err)
	}
	return &c, nil
}

// ListClientCandidates returns candidates referred to any job owned by the client.
func (s *Store) ListClientCandidates(ctx context.Context, clientID string) ([]models.Candidate, error) {
	var out []models.Candidate
	err := s.conn(ctx).
		Where("id IN (?)", s.conn(ctx).Model(&models.Referral{}).
			Select("referrals.candidate_id").
			Joins("JOIN jobs ON jobs.id = referrals.job_id").
			Where("jobs.client_id = ?", clientID)).
		Order("created_at desc").
		Find(&out).Error
	return out, translate("list client candidates", err)
}

// ListReferrerCandidates returns candidates the referrer has referred.
func (s *Store) ListReferrerCandidates(ctx context.Context, referrerID string) ([]models.Candidate, error) {
	var out []models.Candidate
	err := s.conn(ctx).
		Where("id IN (?)", s.conn(ctx).Model(&models.Referral{}).
			Select("candidate_id").
			Where("referrer_id = ?", referrerID)).
		Order("created_at desc").
		Find(&out).Error
	return out, translate("list referrer candidates", err)
}

func (s *Store) UpdateCandidate(ctx context.Context, id string, fields map[string]interface{}) error {
	delete(fields, "email")
	res := s.conn(ctx).Model(&models.Candidate{}).Where("id = ?", id).Updates(fields)
	return affected("update candidate", res)
}
