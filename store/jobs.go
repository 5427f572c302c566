package store

import (
	"context"
	"time"

	"github.com/tom2tomtomtom/refer-ify-sub003/models"
)

func (s *Store) ListTiers(ctx context.Context) ([]models.Tier, error) {
	var tiers []models.Tier
	err := s.conn(ctx).Order("sort_order asc").Find(&tiers).Error
	return tiers, translate("list tiers", err)
}

func (s *Store) GetTier(ctx context.Context, code models.TierCode) (*models.Tier, error) {
	var t models.Tier
	if err := s.conn(ctx).Where("code = ?", code).First(&t).Error; err != nil {
		return nil, translate("get tier", err)
	}
	return &t, nil
}

func (s *Store) CreateJob(ctx context.Context, j *models.Job) error {
	return translate("create job", s.conn(ctx).Create(j).Error)
}

func (s *Store) GetJob(ctx context.Context, id string) (*models.Job, error) {
	var j models.Job
	if err := s.conn(ctx).Where("id = ?", id).First(&j).Error; err != nil {
		return nil, translate("get job", err)
	}
	return &j, nil
}

// ListClientJobs returns the jobs owned by a client, newest first. An empty status
// returns every status.
func (s *Store) ListClientJobs(ctx context.Context, clientID string, status models.JobStatus) ([]models.Job, error) {
	q := s.conn(ctx).Where("client_id = ?", clientID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var jobs []models.Job
	err := q.Order("created_at desc").Find(&jobs).Error
	return jobs, translate("list client jobs", err)
}

func (s *Store) ListActiveJobs(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	err := s.conn(ctx).Where("status = ?", models.JobActive).Order("published_at desc").Find(&jobs).Error
	return jobs, translate("list active jobs", err)
}

// UpdateJob writes the given columns. client_id is create-only on the model and is
// never written here.
func (s *Store) UpdateJob(ctx context.Context, id string, fields map[string]interface{}) error {
	delete(fields, "client_id")
	res := s.conn(ctx).Model(&models.Job{}).Where("id = ?", id).Updates(fields)
	return affected("update job", res)
}

// ActivateJob publishes a draft job for the tier's duration.
func (s *Store) ActivateJob(ctx context.Context, id string, days int, now time.Time) error {
	expires := now.AddDate(0, 0, days)
	res := s.conn(ctx).Model(&models.Job{}).
		Where("id = ? AND status = ?", id, models.JobDraft).
		Updates(map[string]interface{}{
			"status":       models.JobActive,
			"published_at": now,
			"expires_at":   expires,
		})
	return affected("activate job", res)
}

// ArchiveExpiredJobs archives active jobs whose listing period ended before now.
func (s *Store) ArchiveExpiredJobs(ctx context.Context, now time.Time) (int64, error) {
	res := s.conn(ctx).Model(&models.Job{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.JobActive, now).
		Update("status", models.JobArchived)
	return res.RowsAffected, translate("archive expired jobs", res.Error)
}
