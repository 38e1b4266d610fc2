package handler

import (
	"net/http"

	"go-identity-service/internal/middleware"
	"go-identity-service/internal/model"
)

// auditEntryFor describes one attempt of action for email. The password never
// enters the entry; failures only carry the public error code.
func auditEntryFor(r *http.Request, action model.AuditAction, email string, err error) model.AuditEntry {
	entry := model.AuditEntry{
		Action:   action,
		Email:    email,
		Status:   model.AuditStatusSuccess,
		ClientIP: middleware.ClientIP(r),
	}

	if err != nil {
		entry.Status = model.AuditStatusFailure
		entry.ErrorCode = errorCode(err)
	}

	return entry
}
