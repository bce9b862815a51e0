package model

import "time"

// CredentialGroup identifies which system a site credential belongs to.
type CredentialGroup string

const (
	CredentialGroupBMS          CredentialGroup = "bms"
	CredentialGroupWindows      CredentialGroup = "windows"
	CredentialGroupRemoteAccess CredentialGroup = "remote_access"
)

// Valid reports whether g is one of the known credential groups.
func (g CredentialGroup) Valid() bool {
	switch g {
	case CredentialGroupBMS, CredentialGroupWindows, CredentialGroupRemoteAccess:
		return true
	}
	return false
}

// Credential holds one site credential value. Group identifies the system
// ("bms", "windows") and Key the credential within it ("username", "password").
type Credential struct {
	ID         int64
	CustomerID string
	Group      CredentialGroup
	Key        string
	Value      string
	UpdatedAt  time.Time
}
