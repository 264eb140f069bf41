package models_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/keygate/internal/domain/models"
	"github.com/turtacn/keygate/pkg/constants"
)

func TestNewService(t *testing.T) {
	svc, appErr := models.NewService("authority-1", "payments", 100)
	require.Nil(t, appErr)
	assert.Equal(t, "authority-1", svc.Authority)
	assert.Equal(t, uint64(100), svc.DefaultRateLimit)
	assert.Equal(t, uint64(0), svc.TotalKeys)
	assert.Equal(t, uint64(0), svc.ActiveKeys)
}

func TestNewService_NameTooLong(t *testing.T) {
	_, appErr := models.NewService("authority-1", "a-service-name-well-over-thirty-two-chars", 100)
	require.NotNil(t, appErr)
	assert.Equal(t, constants.ErrCodeNameTooLong, appErr.Code)
}

func TestNewService_ExactLimitNameAccepted(t *testing.T) {
	name := "abcdefghijklmnopqrstuvwxyz123456" // 32 chars
	svc, appErr := models.NewService("authority-1", name, 10)
	require.Nil(t, appErr)
	assert.Equal(t, name, svc.Name)
}

func TestServiceCounters_SequencesNeverReused(t *testing.T) {
	svc, appErr := models.NewService("authority-1", "svc", 10)
	require.Nil(t, appErr)

	seq0 := svc.AdmitKey()
	seq1 := svc.AdmitKey()
	seq2 := svc.AdmitKey()
	assert.Equal(t, []uint64{0, 1, 2}, []uint64{seq0, seq1, seq2})
	assert.Equal(t, uint64(3), svc.TotalKeys)
	assert.Equal(t, uint64(3), svc.ActiveKeys)

	// Revocations shrink the active count but never the total, so a
	// released sequence is never reassigned.
	svc.ReleaseActiveKey()
	svc.ReleaseActiveKey()
	assert.Equal(t, uint64(3), svc.TotalKeys)
	assert.Equal(t, uint64(1), svc.ActiveKeys)

	seq3 := svc.AdmitKey()
	assert.Equal(t, uint64(3), seq3)
	assert.Equal(t, uint64(4), svc.TotalKeys)
}

func TestServiceCounters_ActiveNeverNegativeOrAboveTotal(t *testing.T) {
	svc, appErr := models.NewService("authority-1", "svc", 10)
	require.Nil(t, appErr)

	// Over-releasing floors at zero instead of panicking or wrapping.
	svc.ReleaseActiveKey()
	assert.Equal(t, uint64(0), svc.ActiveKeys)

	svc.AdmitKey()
	svc.ReleaseActiveKey()
	svc.ReleaseActiveKey()
	assert.Equal(t, uint64(0), svc.ActiveKeys)

	svc.RestoreActiveKey()
	assert.LessOrEqual(t, svc.ActiveKeys, svc.TotalKeys)
}

func TestServiceCounters_RevokeReactivateRoundTrip(t *testing.T) {
	svc, appErr := models.NewService("authority-1", "svc", 10)
	require.Nil(t, appErr)

	svc.AdmitKey()
	svc.AdmitKey()
	before := svc.ActiveKeys

	svc.ReleaseActiveKey()
	assert.Equal(t, before-1, svc.ActiveKeys)
	svc.RestoreActiveKey()
	assert.Equal(t, before, svc.ActiveKeys)
}

func TestServiceCounters_Saturation(t *testing.T) {
	svc, appErr := models.NewService("authority-1", "svc", 10)
	require.Nil(t, appErr)

	svc.TotalKeys = math.MaxUint64
	svc.ActiveKeys = math.MaxUint64
	svc.AdmitKey()
	assert.Equal(t, uint64(math.MaxUint64), svc.TotalKeys)
	assert.Equal(t, uint64(math.MaxUint64), svc.ActiveKeys)
}
