package application

import "github.com/ericfisherdev/sitepanel/internal/domain/model"

// CustomerFields is the allow-list of customer fields shown in change
// reviews, in display order. Store-maintained and derived fields are
// deliberately absent.
var CustomerFields = []model.FieldSpec{
	{Field: model.FieldLegacyCustomerID, Label: "Customer ID"},
	{Field: model.FieldCompanyName, Label: "Company Name"},
	{Field: model.FieldSiteNickname, Label: "Site Nickname"},
	{Field: model.FieldSiteAddress, Label: "Site Address"},
	{Field: model.FieldMailingAddress, Label: "Mailing Address"},
	{Field: model.FieldMailingCity, Label: "Mailing City"},
	{Field: model.FieldMailingState, Label: "Mailing State"},
	{Field: model.FieldMailingZip, Label: "Mailing ZIP"},
	{Field: model.FieldPrimaryContactName, Label: "Primary Contact"},
	{Field: model.FieldPrimaryContactEmail, Label: "Primary Contact Email"},
	{Field: model.FieldContactPhone, Label: "Contact Phone"},
	{Field: model.FieldBuildingType, Label: "Building Type"},
	{Field: model.FieldServiceTier, Label: "Service Tier"},
	{Field: model.FieldIsContractCustomer, Label: "Contract Customer"},
	{Field: model.FieldContractNumber, Label: "Contract Number"},
	{Field: model.FieldContractStatus, Label: "Contract Status"},
	{Field: model.FieldHasActiveContracts, Label: "Has Active Contracts"},
	{Field: model.FieldActiveContractCount, Label: "Active Contracts"},
	{Field: model.FieldTotalContractValue, Label: "Total Contract Value"},
	{Field: model.FieldLatestContractEmail, Label: "Latest Contract Email"},
	{Field: model.FieldLaborTaxCode, Label: "Labor Tax Code"},
	{Field: model.FieldPartTaxCode, Label: "Part Tax Code"},
	{Field: model.FieldAccessNotes, Label: "Access Notes"},
	{Field: model.FieldDriveFolderID, Label: "Google Drive Folder"},
	{Field: model.FieldDriveFolderURL, Label: "Google Drive Folder URL"},
	{Field: model.FieldDriveLinkedFolderID, Label: "Linked Drive Folder"},
}

// ChangeSetCalculator diffs two versions of a record over a fixed allow-list
// of tracked fields.
type ChangeSetCalculator struct {
	fields []model.FieldSpec
}

// NewChangeSetCalculator creates a calculator tracking fields in the given order.
func NewChangeSetCalculator(fields ...model.FieldSpec) *ChangeSetCalculator {
	tracked := make([]model.FieldSpec, len(fields))
	copy(tracked, fields)
	return &ChangeSetCalculator{fields: tracked}
}

// NewCustomerChangeSetCalculator returns a calculator over CustomerFields.
func NewCustomerChangeSetCalculator() *ChangeSetCalculator {
	return NewChangeSetCalculator(CustomerFields...)
}

// Compute returns one entry per tracked field whose normalized value differs
// between original and candidate, in allow-list order. An empty result means
// there is nothing to submit.
func (c *ChangeSetCalculator) Compute(original, candidate model.Record) []model.ChangeEntry {
	var changes []model.ChangeEntry

	for _, spec := range c.fields {
		oldValue := original.String(spec.Field)
		newValue := candidate.String(spec.Field)
		if oldValue == newValue {
			continue
		}

		label := spec.Label
		if label == "" {
			label = string(spec.Field)
		}

		changes = append(changes, model.ChangeEntry{
			Field:    spec.Field,
			Label:    label,
			OldValue: oldValue,
			NewValue: newValue,
			Kind:     classifyChange(oldValue, newValue),
		})
	}

	return changes
}

func classifyChange(oldValue, newValue string) model.ChangeKind {
	switch {
	case oldValue == "":
		return model.ChangeAdded
	case newValue == "":
		return model.ChangeRemoved
	default:
		return model.ChangeModified
	}
}

// BuildPatch returns a record holding exactly the fields named in changes,
// taking values from candidate. Removed fields are sent as "" so the store
// clears them instead of leaving the old value behind.
func BuildPatch(candidate model.Record, changes []model.ChangeEntry) model.Record {
	patch := make(model.Record, len(changes))
	for _, change := range changes {
		v, ok := candidate.Get(change.Field)
		if !ok || v == nil {
			v = ""
		}
		patch.Set(change.Field, v)
	}
	return patch
}
