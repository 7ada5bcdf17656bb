package recovery

import "strings"

// Mode is one of the three soft-deletion conventions in the live schema. Each
// mode owns a fixed, non-overlapping trio of governing columns; a table
// registered under one mode is never queried with another mode's columns.
type Mode interface {
	Name() string
	FlagColumn() string
	TimeColumn() string
	ReasonColumn() string
}

type (
	DeletedMode  struct{}
	ArchivedMode struct{}
	VoidedMode   struct{}
)

func (DeletedMode) Name() string         { return "deleted" }
func (DeletedMode) FlagColumn() string   { return "is_deleted" }
func (DeletedMode) TimeColumn() string   { return "deleted_at" }
func (DeletedMode) ReasonColumn() string { return "delete_reason" }

func (ArchivedMode) Name() string         { return "archived" }
func (ArchivedMode) FlagColumn() string   { return "is_archived" }
func (ArchivedMode) TimeColumn() string   { return "archived_at" }
func (ArchivedMode) ReasonColumn() string { return "reason" }

func (VoidedMode) Name() string         { return "voided" }
func (VoidedMode) FlagColumn() string   { return "is_voided" }
func (VoidedMode) TimeColumn() string   { return "voided_at" }
func (VoidedMode) ReasonColumn() string { return "void_reason" }

// ParseMode resolves a mode by name.
func ParseMode(name string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "deleted":
		return DeletedMode{}, true
	case "archived":
		return ArchivedMode{}, true
	case "voided":
		return VoidedMode{}, true
	}
	return nil, false
}
