package model

// Customer record fields. Tracked fields appear in change reviews; the rest
// are maintained by the store or derived.
const (
	FieldID                  Field = "id"
	FieldLegacyCustomerID    Field = "legacy_customer_id"
	FieldCompanyName         Field = "company_name"
	FieldCompanyNameCleaned  Field = "company_name_cleaned"
	FieldSiteNickname        Field = "site_nickname"
	FieldSiteAddress         Field = "site_address"
	FieldMailingAddress      Field = "mailing_address"
	FieldMailingCity         Field = "mailing_city"
	FieldMailingState        Field = "mailing_state"
	FieldMailingZip          Field = "mailing_zip"
	FieldPrimaryContactName  Field = "primary_contact_name"
	FieldPrimaryContactEmail Field = "primary_contact_email"
	FieldContactPhone        Field = "contact_phone"
	FieldBuildingType        Field = "building_type"
	FieldServiceTier         Field = "service_tier"
	FieldIsContractCustomer  Field = "is_contract_customer"
	FieldContractNumber      Field = "contract_number"
	FieldContractStatus      Field = "contract_status"
	FieldHasActiveContracts  Field = "has_active_contracts"
	FieldActiveContractCount Field = "active_contract_count"
	FieldTotalContractValue  Field = "total_contract_value"
	FieldLatestContractEmail Field = "latest_contract_email"
	FieldLaborTaxCode        Field = "labor_tax_code"
	FieldPartTaxCode         Field = "part_tax_code"
	FieldAccessNotes         Field = "access_notes"
	FieldDriveFolderID       Field = "drive_folder_id"
	FieldDriveFolderURL      Field = "drive_folder_url"
	FieldDriveLinkedFolderID Field = "drive_linked_folder_id"
	FieldCreatedAt           Field = "created_at"
	FieldUpdatedAt           Field = "updated_at"
)

// FieldSpec pairs a tracked field with the label shown in change reviews.
type FieldSpec struct {
	Field Field
	Label string
}

// ServiceTier classifies a customer by active contract value.
type ServiceTier string

const (
	ServiceTierCore     ServiceTier = "CORE"
	ServiceTierAssure   ServiceTier = "ASSURE"
	ServiceTierGuardian ServiceTier = "GUARDIAN"
)

// CustomerFilter narrows CustomerStore.List results. Zero values match all.
type CustomerFilter struct {
	Query       string // case-insensitive substring of company name or nickname
	ServiceTier ServiceTier
	Limit       int
}
