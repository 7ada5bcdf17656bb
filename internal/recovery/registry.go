package recovery

import "strings"

// EntityConfig maps a logical entity key to its physical table and recovery
// convention. Configs are defined once at init and never mutated, so the
// registry is safe for unsynchronized concurrent reads.
//
// ArchiveRoles is set only for the account-type entities whose "deleted"
// state is a row in the shared archived_users table rather than a flag on
// their own table; for those, Mode is nil.
type EntityConfig struct {
	Key          string
	Table        string
	IDColumn     string
	Mode         Mode
	LabelColumns []string
	ArchiveRoles []string

	// ConflictColumns is the natural key checked before restore: a live row
	// matching a candidate on all of these columns makes the candidate
	// not-recoverable. Empty means the entity has no known conflict rule and
	// found rows are always recoverable. Archive-backed accounts use the
	// username/email rule built into the archive resolver instead.
	ConflictColumns []string
}

func (c EntityConfig) ArchiveBacked() bool {
	return len(c.ArchiveRoles) > 0
}

func (c EntityConfig) ModeName() string {
	if c.Mode == nil {
		return "archived_account"
	}
	return c.Mode.Name()
}

// ArchiveTable is the shared cross-role table backing account recovery.
const ArchiveTable = "archived_users"

// LiveAccountTable is where archive-backed accounts are re-inserted on restore.
const LiveAccountTable = "users"

// FallbackLabelColumns is tried, in order, when none of an entity's own label
// candidates exist in the live schema.
var FallbackLabelColumns = []string{"name", "title", "description", "username", "email", "subject"}

var registry = []EntityConfig{
	{
		Key:             "student",
		Table:           "students",
		IDColumn:        "id",
		Mode:            DeletedMode{},
		LabelColumns:    []string{"lrn", "last_name", "first_name", "email"},
		ConflictColumns: []string{"lrn"},
	},
	{
		Key:             "enrollment",
		Table:           "enrollments",
		IDColumn:        "id",
		Mode:            DeletedMode{},
		LabelColumns:    []string{"student_name", "section_name", "school_year"},
		ConflictColumns: []string{"student_id", "class_section_id"},
	},
	{
		Key:          "activity",
		Table:        "activities",
		IDColumn:     "id",
		Mode:         DeletedMode{},
		LabelColumns: []string{"title", "activity_type", "subject"},
	},
	{
		Key:          "guardian",
		Table:        "guardians",
		IDColumn:     "id",
		Mode:         DeletedMode{},
		LabelColumns: []string{"last_name", "first_name", "contact_number", "email"},
	},
	{
		Key:          "class_section",
		Table:        "class_sections",
		IDColumn:     "id",
		Mode:         ArchivedMode{},
		LabelColumns: []string{"section_name", "grade_level", "school_year"},
	},
	{
		Key:          "subject",
		Table:        "subjects",
		IDColumn:     "id",
		Mode:         ArchivedMode{},
		LabelColumns: []string{"subject_code", "subject_name", "description"},
	},
	{
		Key:          "quiz",
		Table:        "quizzes",
		IDColumn:     "id",
		Mode:         ArchivedMode{},
		LabelColumns: []string{"title", "subject", "description"},
	},
	{
		Key:          "announcement",
		Table:        "announcements",
		IDColumn:     "id",
		Mode:         ArchivedMode{},
		LabelColumns: []string{"title", "audience"},
	},
	{
		Key:          "school_year",
		Table:        "school_years",
		IDColumn:     "id",
		Mode:         ArchivedMode{},
		LabelColumns: []string{"year_label", "name"},
	},
	{
		Key:          "attendance_record",
		Table:        "attendance_records",
		IDColumn:     "id",
		Mode:         VoidedMode{},
		LabelColumns: []string{"student_name", "attendance_date", "status"},
	},
	{
		Key:          "grade_entry",
		Table:        "grade_entries",
		IDColumn:     "id",
		Mode:         VoidedMode{},
		LabelColumns: []string{"student_name", "subject", "grading_period"},
	},
	{
		Key:          "payment_record",
		Table:        "payment_records",
		IDColumn:     "id",
		Mode:         VoidedMode{},
		LabelColumns: []string{"receipt_number", "payer_name", "amount"},
	},
	{
		Key:          "principal",
		Table:        ArchiveTable,
		IDColumn:     "archived_id",
		LabelColumns: []string{"full_name", "username", "email"},
		ArchiveRoles: []string{"principal"},
	},
	{
		Key:          "master_teacher",
		Table:        ArchiveTable,
		IDColumn:     "archived_id",
		LabelColumns: []string{"full_name", "username", "email"},
		ArchiveRoles: []string{"master_teacher", "head_teacher"},
	},
	{
		Key:          "teacher",
		Table:        ArchiveTable,
		IDColumn:     "archived_id",
		LabelColumns: []string{"full_name", "username", "email"},
		ArchiveRoles: []string{"teacher"},
	},
}

// FindEntity looks up an entity config by key, case-insensitively and with
// surrounding whitespace ignored. Unknown keys return ok=false, never panic.
func FindEntity(key string) (EntityConfig, bool) {
	needle := strings.ToLower(strings.TrimSpace(key))
	for _, cfg := range registry {
		if cfg.Key == needle {
			return cfg, true
		}
	}
	return EntityConfig{}, false
}

// Entities returns the full registry in declaration order.
func Entities() []EntityConfig {
	out := make([]EntityConfig, len(registry))
	copy(out, registry)
	return out
}

// NormalizeRole canonicalizes a role token for comparison: trimmed, lowered,
// with dashes and spaces collapsed to underscores.
func NormalizeRole(role string) string {
	role = strings.ToLower(strings.TrimSpace(role))
	role = strings.ReplaceAll(role, "-", "_")
	role = strings.ReplaceAll(role, " ", "_")
	return role
}
