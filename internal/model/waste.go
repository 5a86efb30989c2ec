package model

import (
	"errors"
	"time"
)

// WasteType is the closed set of accepted recyclable categories.
type WasteType string

const (
	WastePlastic WasteType = "PLASTIC"
	WastePaper   WasteType = "PAPER"
	WasteMetal   WasteType = "METAL"
	WasteEWaste  WasteType = "E_WASTE"
	WasteGlass   WasteType = "GLASS"
	WasteOther   WasteType = "OTHER"
)

// Valid reports whether t is a known waste type.
func (t WasteType) Valid() bool {
	switch t {
	case WastePlastic, WastePaper, WasteMetal, WasteEWaste, WasteGlass, WasteOther:
		return true
	}
	return false
}

// WasteStatus is the review state of a submission.
type WasteStatus string

const (
	WastePending  WasteStatus = "PENDING"
	WasteApproved WasteStatus = "APPROVED"
	WasteRejected WasteStatus = "REJECTED"
)

// MaxWasteWeightKg bounds a single submission.
const MaxWasteWeightKg = 200.0

// WasteSubmission is a user's claim of dropped-off recyclable waste. Points
// are only awarded when an admin approves it.
type WasteSubmission struct {
	ID              int64       `db:"id" json:"id"`
	UserID          int64       `db:"user_id" json:"user_id"`
	Type            WasteType   `db:"type" json:"type"`
	WeightKg        float64     `db:"weight_kg" json:"weightKg"`
	LocationAddress *string     `db:"location_address" json:"location,omitempty"`
	PhotoURL        *string     `db:"photo_url" json:"photo_url,omitempty"`
	PhotoKey        *string     `db:"photo_key" json:"-"`
	Status          WasteStatus `db:"status" json:"status"`
	AwardedPoints   int64       `db:"awarded_points" json:"awarded_points"`
	ReviewedBy      *int64      `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time  `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
}

// SubmitWasteRequest is the submission endpoint body.
type SubmitWasteRequest struct {
	Type     WasteType `json:"type"`
	WeightKg float64   `json:"weightKg"`
	Location *string   `json:"location,omitempty"`
	PhotoURL *string   `json:"photoUrl,omitempty"`
	PhotoKey *string   `json:"photoKey,omitempty"`
}

// ReviewWasteRequest is the admin review endpoint body.
type ReviewWasteRequest struct {
	Approve bool    `json:"approve"`
	Note    *string `json:"note,omitempty"`
}

var (
	// ErrWasteNotFound is returned when the submission id is unknown
	ErrWasteNotFound = errors.New("waste submission not found")

	// ErrWasteAlreadyReviewed is returned on a second review of the same
	// submission; review is one-shot
	ErrWasteAlreadyReviewed = errors.New("waste submission already reviewed")
)
