package service

import (
	"github.com/bbec/class-ops-api/internal/models"
	appErrors "github.com/bbec/class-ops-api/pkg/errors"
)

// Operation identifies a role-gated operation exposed by this service.
type Operation string

const (
	OpAssignSession    Operation = "session.assign"
	OpListPending      Operation = "session.list-pending"
	OpCompleteSession  Operation = "session.complete"
	OpConfirmQueue     Operation = "session.confirmation-queue"
	OpConfirmSession   Operation = "session.confirm"
	OpListCompleted    Operation = "session.list-completed"
	OpListUnpaid       Operation = "session.list-unpaid"
	OpMarkPaid         Operation = "session.mark-paid"
	OpBulkMarkPaid     Operation = "session.bulk-mark-paid"
	OpDeleteSession    Operation = "session.delete"
	OpReconcileUploads Operation = "upload.reconcile"
	OpListUploads      Operation = "upload.list"
	OpMarkUploaded     Operation = "upload.mark-uploaded"
	OpMarkNotUploaded  Operation = "upload.mark-not-uploaded"
	OpDeleteUploadTask Operation = "upload.delete"
	OpViewReports      Operation = "report.view"
	OpGenerateBill     Operation = "billing.generate"
	OpListCourses      Operation = "directory.courses"
	OpListStaff        Operation = "directory.staff"
)

// allowedRoles is the closed allowed-actor set per operation. Ownership
// constraints (a teacher may only complete their own session) are enforced by
// the services on top of this table, not inside it.
var allowedRoles = map[Operation][]models.UserRole{
	OpAssignSession:    {models.RoleAdmin},
	OpListPending:      {models.RoleAdmin, models.RoleTeacher},
	OpCompleteSession:  {models.RoleAdmin, models.RoleTeacher},
	OpConfirmQueue:     {models.RoleAdmin},
	OpConfirmSession:   {models.RoleAdmin},
	OpListCompleted:    {models.RoleAdmin},
	OpListUnpaid:       {models.RoleAdmin},
	OpMarkPaid:         {models.RoleAdmin},
	OpBulkMarkPaid:     {models.RoleAdmin},
	OpDeleteSession:    {models.RoleAdmin},
	OpReconcileUploads: {models.RoleAdmin},
	OpListUploads:      {models.RoleAdmin, models.RoleEditor},
	OpMarkUploaded:     {models.RoleAdmin, models.RoleEditor},
	OpMarkNotUploaded:  {models.RoleAdmin, models.RoleEditor},
	OpDeleteUploadTask: {models.RoleAdmin},
	OpViewReports:      {models.RoleAdmin},
	OpGenerateBill:     {models.RoleAdmin},
	OpListCourses:      {models.RoleAdmin, models.RoleTeacher, models.RoleEditor},
	OpListStaff:        {models.RoleAdmin},
}

// Authorize is the single authorization policy applied at every operation
// boundary: actor + operation in, allow or deny out.
func Authorize(actor *models.JWTClaims, op Operation) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	for _, role := range allowedRoles[op] {
		if actor.Role == role {
			return nil
		}
	}
	return appErrors.ErrForbidden
}
