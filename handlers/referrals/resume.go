package referrals

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tom2tomtomtom/refer-ify-sub003/handlers"
	"github.com/tom2tomtomtom/refer-ify-sub003/resume"
	"github.com/tom2tomtomtom/refer-ify-sub003/storage"
)

func resumePath(referralID string) string {
	return "referrals/" + referralID + "/resume.pdf"
}

// ResumeUploadURL hands the referrer a signed URL to upload the resume directly to
// storage. The path is recorded by ConfirmResume once the object is there.
func (h *Handler) ResumeUploadURL(c *gin.Context) {
	ref, ok := h.load(c, ownsReferral)
	if !ok {
		return
	}

	path := resumePath(ref.ID)
	url, err := h.files.CreateSignedUploadURL(c.Request.Context(), h.cfg.Bucket, path)
	if err != nil {
		h.storageFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload_url": url, "path": path})
}

// ConfirmResume records a resume uploaded through a signed URL.
func (h *Handler) ConfirmResume(c *gin.Context) {
	ref, ok := h.load(c, ownsReferral)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	path := resumePath(ref.ID)
	found, err := h.files.Exists(ctx, h.cfg.Bucket, path)
	if err != nil {
		h.storageFailed(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "The resume has not been uploaded yet"})
		return
	}

	if err := h.store.UpdateReferral(ctx, ref.ID, map[string]interface{}{"resume_path": path}); err != nil {
		handlers.Fail(c, err)
		return
	}
	ref.ResumePath = path
	if ref.CandidateID != "" {
		if err := h.store.UpdateCandidate(ctx, ref.CandidateID, map[string]interface{}{"resume_path": path}); err != nil {
			handlers.Fail(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, ref)
}

// ResumeURL returns a short-lived download link for the job owner, referrer or candidate.
func (h *Handler) ResumeURL(c *gin.Context) {
	ref, ok := h.load(c, canRead)
	if !ok {
		return
	}
	if ref.ResumePath == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "No resume has been uploaded for this referral"})
		return
	}

	url, err := h.files.CreateSignedURL(c.Request.Context(), h.cfg.Bucket, ref.ResumePath, h.cfg.SignedURLTTL)
	if err != nil {
		h.storageFailed(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url, "expires_in": int(h.cfg.SignedURLTTL.Seconds())})
}

// UploadResume accepts a multipart "file" field, stores the PDF and indexes its text on
// the candidate profile.
func (h *Handler) UploadResume(c *gin.Context) {
	ref, ok := h.load(c, ownsReferral)
	if !ok {
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		handlers.Fail(c, handlers.Invalid("a resume file is required"))
		return
	}
	if fh.Size > resume.MaxSize {
		handlers.Fail(c, handlers.Invalid(resume.ErrTooLarge.Error()))
		return
	}
	f, err := fh.Open()
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, resume.MaxSize+1))
	if err != nil {
		handlers.Fail(c, err)
		return
	}
	if err := resume.Check(data); err != nil {
		handlers.Fail(c, handlers.Invalid(err.Error()))
		return
	}

	ctx := c.Request.Context()
	path := resumePath(ref.ID)
	if err := h.files.Upload(ctx, h.cfg.Bucket, path, data, resume.ContentType); err != nil {
		h.storageFailed(c, err)
		return
	}
	if err := h.store.UpdateReferral(ctx, ref.ID, map[string]interface{}{"resume_path": path}); err != nil {
		handlers.Fail(c, err)
		return
	}

	if ref.CandidateID != "" {
		fields := map[string]interface{}{"resume_path": path}
		if text, err := resume.Text(data); err != nil {
			handlers.Logger(c).WithError(err).WithField("referral_id", ref.ID).Warn("Could not extract resume text")
		} else {
			fields["resume_text"] = text
		}
		if err := h.store.UpdateCandidate(ctx, ref.CandidateID, fields); err != nil {
			handlers.Logger(c).WithError(err).WithField("candidate_id", ref.CandidateID).Warn("Failed to update candidate resume")
		}
	}

	c.JSON(http.StatusOK, gin.H{"path": path})
}

func (h *Handler) storageFailed(c *gin.Context, err error) {
	if errors.Is(err, storage.ErrNotConfigured) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "File storage is not configured"})
		return
	}
	handlers.Logger(c).WithError(err).Error("Storage request failed")
	c.JSON(http.StatusBadGateway, gin.H{"error": "File storage is unavailable. Please try again later."})
}
