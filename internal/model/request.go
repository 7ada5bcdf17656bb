package model

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type PreviewRequest struct {
	Entity string   `json:"entity" validate:"required"`
	IDs    []string `json:"ids" validate:"required,min=1,max=500,dive,required"`
}

// RestoreRequest carries the dual-confirmation fields. Confirm must equal the
// literal phrase RESTORE (case-insensitive after trimming); the comparison
// itself happens in the service so the rule lives in one place.
type RestoreRequest struct {
	Entity       string   `json:"entity" validate:"required"`
	IDs          []string `json:"ids" validate:"required,min=1,max=500,dive,required"`
	Reason       string   `json:"reason" validate:"required"`
	ApprovalNote string   `json:"approval_note" validate:"required"`
	Confirm      string   `json:"confirm" validate:"required"`
}
