package service

import (
	"github.com/turtacn/keygate/internal/domain/models"
	"github.com/turtacn/keygate/pkg/constants"
)

// Authorization is a capability check over identities the host layer already
// verified cryptographically. The ledger only compares; it never validates
// signatures itself.

// IsAuthority reports whether signer administratively controls the service.
func IsAuthority(svc *models.Service, signer string) bool {
	return signer != "" && signer == svc.Authority
}

// IsOwnerOrAuthority reports whether signer is the key's owner or the
// service's authority. This is the role revoke and reactivate require.
func IsOwnerOrAuthority(svc *models.Service, key *models.APIKey, signer string) bool {
	if signer == "" {
		return false
	}
	return signer == key.Owner || signer == svc.Authority
}

// Authorize evaluates the named role for a signer against a (service, key)
// pair. key may be nil for service-level operations, in which case only the
// Authority role is meaningful.
func Authorize(role constants.Role, svc *models.Service, key *models.APIKey, signer string) bool {
	switch role {
	case constants.RoleAuthority:
		return IsAuthority(svc, signer)
	case constants.RoleOwnerOrAuthority:
		if key == nil {
			return IsAuthority(svc, signer)
		}
		return IsOwnerOrAuthority(svc, key, signer)
	default:
		return false
	}
}
