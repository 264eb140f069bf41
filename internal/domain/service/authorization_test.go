package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/keygate/internal/domain/models"
	"github.com/turtacn/keygate/internal/domain/service"
	"github.com/turtacn/keygate/pkg/constants"
)

func fixtures(t *testing.T) (*models.Service, *models.APIKey) {
	t.Helper()
	svc, appErr := models.NewService("authority-1", "svc", 10)
	require.Nil(t, appErr)
	key, appErr := models.NewAPIKey(svc, "owner-1", "k", nil, nil, nil, 0)
	require.Nil(t, appErr)
	return svc, key
}

func TestIsAuthority(t *testing.T) {
	svc, _ := fixtures(t)

	assert.True(t, service.IsAuthority(svc, "authority-1"))
	assert.False(t, service.IsAuthority(svc, "owner-1"))
	assert.False(t, service.IsAuthority(svc, "someone-else"))
	assert.False(t, service.IsAuthority(svc, ""))
}

func TestIsOwnerOrAuthority(t *testing.T) {
	svc, key := fixtures(t)

	assert.True(t, service.IsOwnerOrAuthority(svc, key, "owner-1"))
	assert.True(t, service.IsOwnerOrAuthority(svc, key, "authority-1"))
	assert.False(t, service.IsOwnerOrAuthority(svc, key, "someone-else"))
	assert.False(t, service.IsOwnerOrAuthority(svc, key, ""))
}

func TestAuthorize(t *testing.T) {
	svc, key := fixtures(t)

	assert.True(t, service.Authorize(constants.RoleAuthority, svc, key, "authority-1"))
	assert.False(t, service.Authorize(constants.RoleAuthority, svc, key, "owner-1"))

	assert.True(t, service.Authorize(constants.RoleOwnerOrAuthority, svc, key, "owner-1"))
	assert.True(t, service.Authorize(constants.RoleOwnerOrAuthority, svc, key, "authority-1"))
	assert.False(t, service.Authorize(constants.RoleOwnerOrAuthority, svc, key, "intruder"))

	// Service-level operations fall back to the authority check.
	assert.True(t, service.Authorize(constants.RoleOwnerOrAuthority, svc, nil, "authority-1"))
	assert.False(t, service.Authorize(constants.Role("unknown"), svc, key, "authority-1"))
}
