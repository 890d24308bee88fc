package services

import (
	"permit_flow_app_go/models"

	mapset "github.com/deckarep/golang-set/v2"
)

// alwaysRequired is mandatory for every case regardless of its project attributes
var alwaysRequired = []models.DocumentSlot{
	models.SlotPrimaryForm,
	models.SlotTitleCertificate,
	models.SlotSwornDeclaration,
	models.SlotSitePlan,
	models.SlotArchitecturePlans,
	models.SlotSpecialtyPlans,
	models.SlotEgressSignagePlan,
}

// documentRule adds slots when its condition holds for a project
type documentRule struct {
	applies func(p models.Project) bool
	slots   []models.DocumentSlot
}

// Rules are independent and additive. Every rule is evaluated and the results are unioned.
var documentRules = []documentRule{
	{
		applies: func(p models.Project) bool { return p.Ownership == models.OwnershipRightHolder },
		slots:   []models.DocumentSlot{models.SlotRightToBuildProof},
	},
	{
		applies: func(p models.Project) bool { return p.LegalEntity },
		slots:   []models.DocumentSlot{models.SlotPowerOfAttorney},
	},
	{
		applies: func(p models.Project) bool {
			switch p.WorkType {
			case models.WorkTypeExtension, models.WorkTypeRemodel, models.WorkTypeMinorWork:
				return true
			}
			return false
		},
		slots: []models.DocumentSlot{models.SlotPriorLicence},
	},
	{
		applies: func(p models.Project) bool { return p.WorkType == models.WorkTypeDemolition },
		slots:   []models.DocumentSlot{models.SlotDemolitionSafetyLetter},
	},
}

// RequiredDocuments returns the mandatory document slots for a project
func RequiredDocuments(p models.Project) mapset.Set[models.DocumentSlot] {
	required := mapset.NewThreadUnsafeSet(alwaysRequired...)
	for _, rule := range documentRules {
		if rule.applies(p) {
			required.Append(rule.slots...)
		}
	}
	return required
}

// CompletenessReport is the result of evaluating a case's documents
type CompletenessReport struct {
	Complete bool                  `json:"complete"`
	Required []models.DocumentSlot `json:"required"`
	Present  []models.DocumentSlot `json:"present"`
	Missing  []models.DocumentSlot `json:"missing"`
}

// CheckCompleteness evaluates the mandatory set against the populated slots.
// Slices are in canonical slot order.
func CheckCompleteness(c *models.Case) CompletenessReport {
	required := RequiredDocuments(c.Project)
	report := CompletenessReport{
		Required: []models.DocumentSlot{},
		Present:  []models.DocumentSlot{},
		Missing:  []models.DocumentSlot{},
	}

	for _, slot := range models.AllDocumentSlots {
		populated := c.HasDocument(slot)
		if populated {
			report.Present = append(report.Present, slot)
		}
		if !required.ContainsOne(slot) {
			continue
		}
		report.Required = append(report.Required, slot)
		if !populated {
			report.Missing = append(report.Missing, slot)
		}
	}

	report.Complete = len(report.Missing) == 0
	return report
}

// ensureDocumentComplete fails with the missing slots when the case is incomplete
func ensureDocumentComplete(c *models.Case) error {
	report := CheckCompleteness(c)
	if !report.Complete {
		return MissingDocumentsError(report.Missing)
	}
	return nil
}
