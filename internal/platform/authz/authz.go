// Package authz provides the default ports.AuthCollaborator this module
// runs with when no richer admin-role policy service is wired in front of
// it. The real policy engine lives outside this module; this is the
// minimal scope-based check that lets the ledger engine run standalone.
package authz

import (
	"context"
	"fmt"

	"github.com/marwanAmeen/beeline-server/internal/apperrors"
	"github.com/marwanAmeen/beeline-server/internal/domain"
)

// ScopeCheck asserts the caller's Credentials carry an admin or
// superadmin scope. It does not consult companyID at all -- a
// company-scoped policy engine is expected to replace this.
type ScopeCheck struct{}

func New() *ScopeCheck { return &ScopeCheck{} }

func (ScopeCheck) AssertAdminRole(ctx context.Context, creds domain.Credentials, action, companyID string) error {
	switch creds.Scope {
	case domain.ScopeAdmin, domain.ScopeSuperadmin:
		return nil
	default:
		return fmt.Errorf("%w: %s requires admin role, caller scope is %s", apperrors.ErrForbidden, action, creds.Scope)
	}
}
