package model

// ContractStatus is the normalized status of a service contract.
type ContractStatus string

const (
	ContractStatusActive  ContractStatus = "active"
	ContractStatusExpired ContractStatus = "expired"
)

// Contract is a service contract row from a SimPro export.
type Contract struct {
	ID                string
	CustomerName      string // name as written on the contract
	Name              string
	Number            string
	Value             float64
	Status            ContractStatus
	StartDate         string // YYYY-MM-DD or ""
	EndDate           string
	Email             string
	Notes             string
	MatchedCustomerID string // legacy customer ID, "" when unmatched
	CustomerID        string // store ID of the owning customer once persisted
}
