package model

import "time"

type AuditAction string

const (
	AuditActionRegister AuditAction = "register"
	AuditActionLogin    AuditAction = "login"
	AuditActionUpsert   AuditAction = "upsert"
)

const (
	AuditStatusSuccess = "success"
	AuditStatusFailure = "failure"
)

type AuditEntry struct {
	ID         int64       `json:"id"`
	Action     AuditAction `json:"action"`
	Email      string      `json:"email"`
	Status     string      `json:"status"`
	ClientIP   string      `json:"client_ip,omitempty"`
	ErrorCode  string      `json:"error_code,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 200
)

type AuditQuery struct {
	Action string
	Email  string
	Limit  int
}

// EffectiveLimit is the number of entries a query may return: the default when
// unset and never more than MaxAuditLimit.
func (q AuditQuery) EffectiveLimit() int {
	switch {
	case q.Limit <= 0:
		return DefaultAuditLimit
	case q.Limit > MaxAuditLimit:
		return MaxAuditLimit
	default:
		return q.Limit
	}
}

type AuditList struct {
	Entries []AuditEntry `json:"entries"`
}
