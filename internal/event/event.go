package event

type Type string

const (
	TypeRecordRestored  Type = "record.restored"
	TypeRestoreRejected Type = "restore.rejected"
	TypeRestoreFailed   Type = "restore.failed"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actor_id,omitempty"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
