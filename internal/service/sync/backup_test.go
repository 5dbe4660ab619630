package sync

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regsalud/reps-sync/internal/model"
	"github.com/regsalud/reps-sync/pkg/logger"
)

func TestBackupCaptureIncludesTombstones(t *testing.T) {
	l := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	facilities := newFakeFacilityRepo()
	services := newFakeServiceRepo(facilities)
	backups := newFakeBackupRepo(facilities, services)
	manager := NewBackupManager(facilities, services, backups, l)

	orgID := uuid.New()
	ctx := context.Background()

	active := &model.FacilityLocation{
		OrganizationID: orgID,
		RegistryCode:   "1100100001",
		SedeNumber:     "01",
		Name:           "Sede Activa",
		Address:        "Calle 1",
	}
	deleted := &model.FacilityLocation{
		OrganizationID: orgID,
		RegistryCode:   "2200200002",
		SedeNumber:     "01",
		Name:           "Sede Borrada",
		Address:        "Calle 2",
	}
	require.NoError(t, facilities.Create(ctx, active))
	require.NoError(t, facilities.Create(ctx, deleted))
	require.NoError(t, facilities.SoftDelete(ctx, deleted.ID, "ops"))

	snapshot, err := manager.Capture(ctx, orgID, "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, orgID, snapshot.OrganizationID)
	assert.Equal(t, "ops@example.com", snapshot.CreatedBy)

	// mutate everything, then restore
	require.NoError(t, facilities.DeleteAll(ctx, orgID))
	require.NoError(t, facilities.Create(ctx, &model.FacilityLocation{
		OrganizationID: orgID,
		RegistryCode:   "9999999999",
		SedeNumber:     "01",
		Name:           "Sede Intrusa",
		Address:        "Calle 9",
	}))

	require.NoError(t, manager.Restore(ctx, snapshot.ID))

	all, _ := facilities.ListAll(ctx, orgID)
	require.Len(t, all, 2)
	byCode := map[string]*model.FacilityLocation{}
	for _, f := range all {
		byCode[f.RegistryCode] = f
	}
	require.Contains(t, byCode, "1100100001")
	assert.Equal(t, active.ID, byCode["1100100001"].ID)
	require.Contains(t, byCode, "2200200002")
	assert.True(t, byCode["2200200002"].IsDeleted())
}

func TestBackupRestoreUnknownSnapshot(t *testing.T) {
	l := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	facilities := newFakeFacilityRepo()
	services := newFakeServiceRepo(facilities)
	backups := newFakeBackupRepo(facilities, services)
	manager := NewBackupManager(facilities, services, backups, l)

	err := manager.Restore(context.Background(), uuid.New())
	require.Error(t, err)
}
