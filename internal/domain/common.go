package domain

import "time"

// AuditFields holds standard audit information for domain entities, embedded
// on every aggregate that tracks who created or last touched it.
type AuditFields struct {
	CreatedAt     time.Time
	CreatedBy     string
	LastUpdatedAt time.Time
	LastUpdatedBy string
}

// Scope identifies the kind of credential a workflow was invoked with.
type Scope string

const (
	ScopeUser       Scope = "user"
	ScopeAdmin      Scope = "admin"
	ScopeSuperadmin Scope = "superadmin"
	ScopeDriver     Scope = "driver"
)

// Credentials identifies the caller that initiated a workflow.
type Credentials struct {
	Scope    Scope
	AdminID  string
	Email    string
	DriverID string
	UserID   string
}

// Creator is the minimal identity recorded against a Transaction as
// createdBy.
type Creator struct {
	Scope Scope
	ID    string
}

func CreatorFromCredentials(c Credentials) Creator {
	switch c.Scope {
	case ScopeAdmin, ScopeSuperadmin:
		return Creator{Scope: c.Scope, ID: c.AdminID}
	case ScopeDriver:
		return Creator{Scope: c.Scope, ID: c.DriverID}
	default:
		return Creator{Scope: ScopeUser, ID: c.UserID}
	}
}
