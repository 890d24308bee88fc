package services

import (
	"permit_flow_app_go/models"

	mapset "github.com/deckarep/golang-set/v2"
)

// Action is an operation an actor may request on a case
type Action string

// State transitions
const (
	ActionStartAdminReview       Action = "start_admin_review"
	ActionApproveAdminReview     Action = "approve_admin_review"
	ActionObserve                Action = "observe"
	ActionReject                 Action = "reject"
	ActionSubmitCorrection       Action = "submit_correction"
	ActionResumeAdminReview      Action = "resume_admin_review"
	ActionResumeTechReview       Action = "resume_tech_review"
	ActionRequestInspection      Action = "request_inspection"
	ActionStartInspection        Action = "start_inspection"
	ActionRecordInspectionResult Action = "record_inspection_result"
	ActionApproveTechReview      Action = "approve_tech_review"
	ActionConfirmPayment         Action = "confirm_payment"
	ActionApprove                Action = "approve"
	ActionIssueLicence           Action = "issue_licence"
)

// Operations that do not move the case between states
const (
	ActionCreateCase         Action = "create_case"
	ActionViewCase           Action = "view_case"
	ActionAttachDocument     Action = "attach_document"
	ActionAssignAmount       Action = "assign_amount"
	ActionSubmitProof        Action = "submit_proof"
	ActionVerifyPayment      Action = "verify_payment"
	ActionDownloadLicence    Action = "download_licence"
	ActionSendMessage        Action = "send_message"
	ActionScheduleInspection Action = "schedule_inspection"
	ActionRecordObservation  Action = "record_observation"
	ActionListInspections    Action = "list_inspections"
	ActionViewStatistics     Action = "view_statistics"
)

func roles(r ...models.Role) mapset.Set[models.Role] {
	return mapset.NewSet(r...)
}

var (
	allRoles = roles(models.RoleApplicant, models.RoleAdminReviewer, models.RoleTechReviewer,
		models.RoleInspector, models.RoleAdministrator)
	reviewerRoles      = roles(models.RoleAdminReviewer, models.RoleTechReviewer, models.RoleAdministrator)
	adminReviewRoles   = roles(models.RoleAdminReviewer, models.RoleAdministrator)
	techReviewRoles    = roles(models.RoleTechReviewer, models.RoleAdministrator)
	administratorRoles = roles(models.RoleAdministrator)
)

// permissions is the single authority on which roles may request which action
var permissions = map[Action]mapset.Set[models.Role]{
	ActionStartAdminReview:       adminReviewRoles,
	ActionApproveAdminReview:     adminReviewRoles,
	ActionObserve:                reviewerRoles,
	ActionReject:                 reviewerRoles,
	ActionSubmitCorrection:       roles(models.RoleApplicant),
	ActionResumeAdminReview:      adminReviewRoles,
	ActionResumeTechReview:       techReviewRoles,
	ActionRequestInspection:      techReviewRoles,
	ActionStartInspection:        roles(models.RoleInspector),
	ActionRecordInspectionResult: roles(models.RoleInspector),
	ActionApproveTechReview:      techReviewRoles,
	ActionConfirmPayment:         reviewerRoles,
	ActionApprove:                reviewerRoles,
	ActionIssueLicence:           administratorRoles,

	ActionCreateCase:         roles(models.RoleApplicant),
	ActionViewCase:           allRoles,
	ActionAttachDocument:     roles(models.RoleApplicant, models.RoleAdminReviewer, models.RoleAdministrator),
	ActionAssignAmount:       administratorRoles,
	ActionSubmitProof:        roles(models.RoleApplicant),
	ActionVerifyPayment:      reviewerRoles,
	ActionDownloadLicence:    roles(models.RoleApplicant, models.RoleAdministrator),
	ActionSendMessage:        administratorRoles,
	ActionScheduleInspection: roles(models.RoleInspector, models.RoleAdministrator),
	ActionRecordObservation:  roles(models.RoleInspector),
	ActionListInspections:    roles(models.RoleInspector, models.RoleTechReviewer, models.RoleAdministrator),
	ActionViewStatistics:     administratorRoles,
}

// RoleAllowed reports whether the role may request the action at all
func RoleAllowed(role models.Role, action Action) bool {
	allowed, ok := permissions[action]
	if !ok {
		return false
	}
	return allowed.ContainsOne(role)
}

// CanView reports whether the case is within the actor's visibility.
// Applicants only see cases whose applicant snapshot carries their own identity.
func CanView(actor models.Actor, c *models.Case) bool {
	if c == nil || actor.ID == "" {
		return false
	}
	if actor.Role == models.RoleApplicant {
		return c.Applicant.ActorID == actor.ID
	}
	return actor.IsStaff()
}

// CanPerform combines the role table and case visibility
func CanPerform(actor models.Actor, action Action, c *models.Case) bool {
	return RoleAllowed(actor.Role, action) && CanView(actor, c)
}

// authorize is the first step of every operation
func authorize(actor models.Actor, action Action) error {
	if actor.ID == "" || !RoleAllowed(actor.Role, action) {
		return ForbiddenError("role %s may not %s", actor.Role, action)
	}
	return nil
}
