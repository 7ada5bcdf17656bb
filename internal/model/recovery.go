package model

// RecoveryRecord is one soft-deleted, archived or voided row as returned by
// the recovery listing and preview queries. It is materialized fresh on every
// query and never persisted.
type RecoveryRecord struct {
	ID         string         `json:"id"`
	OccurredAt *string        `json:"occurred_at"`
	Reason     *string        `json:"reason"`
	Label      *string        `json:"label"`
	Fields     map[string]any `json:"fields"`
}

// RecoveryEntityInfo describes one registered entity for the catalog endpoint.
type RecoveryEntityInfo struct {
	Key           string `json:"key"`
	Table         string `json:"table"`
	Mode          string `json:"mode"`
	ArchiveBacked bool   `json:"archive_backed"`
}

// PreviewResult partitions a candidate id set. The three slices are disjoint
// and together cover every distinct input id.
type PreviewResult struct {
	Recoverable    []RecoveryRecord `json:"recoverable"`
	NotRecoverable []string         `json:"not_recoverable"`
	NotFound       []string         `json:"not_found"`
}

type RecoveryListData struct {
	Entity  string           `json:"entity"`
	Records []RecoveryRecord `json:"records"`
}

type RestoreResult struct {
	Entity        string `json:"entity"`
	RestoredCount int    `json:"restored_count"`
}
