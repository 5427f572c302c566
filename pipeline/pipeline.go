// Package pipeline defines the ordered referral statuses and which moves between them
// are allowed.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/tom2tomtomtom/refer-ify-sub003/models"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// Order is the forward path of a referral. Rejected sits outside it.
var Order = []models.ReferralStatus{
	models.StatusSubmitted,
	models.StatusReviewed,
	models.StatusShortlisted,
	models.StatusInterviewing,
	models.StatusHired,
}

// Statuses lists every status, including rejected.
var Statuses = append(append([]models.ReferralStatus{}, Order...), models.StatusRejected)

// Index returns the position of s in Order, or -1 for rejected and unknown values.
func Index(s models.ReferralStatus) int {
	for i, v := range Order {
		if v == s {
			return i
		}
	}
	return -1
}

func Valid(s models.ReferralStatus) bool {
	return s == models.StatusRejected || Index(s) >= 0
}

func Terminal(s models.ReferralStatus) bool {
	return s == models.StatusHired || s == models.StatusRejected
}

// CanTransition checks a move from one status to another. Non-terminal referrals may move
// forward any number of steps or be rejected. Nothing leaves hired or rejected.
func CanTransition(from, to models.ReferralStatus) error {
	if !Valid(from) || !Valid(to) {
		return fmt.Errorf("%w: unknown status", ErrInvalidTransition)
	}
	if Terminal(from) {
		return fmt.Errorf("%w: %s is final", ErrInvalidTransition, from)
	}
	if to == models.StatusRejected {
		return nil
	}
	if Index(to) <= Index(from) {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Reached returns the furthest stage a referral got to on the forward path. For rejected
// referrals this is the stage held when the rejection happened.
func Reached(r models.Referral) int {
	if r.Status == models.StatusRejected {
		if i := Index(r.RejectedFrom); i >= 0 {
			return i
		}
		return 0
	}
	return Index(r.Status)
}
