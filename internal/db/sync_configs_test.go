package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-app/inkwell/internal/models"
)

func TestSyncConfigCRUD(t *testing.T) {
	database := newTestDB(t)

	cfg := &models.SyncConfig{
		ID:          "cfg1",
		DisplayName: "Home NAS",
		ServerURL:   "https://nas.local/dav",
		Username:    "me",
		Enabled:     true,
	}
	require.NoError(t, database.CreateSyncConfig(cfg))

	got, err := database.GetSyncConfig("cfg1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Home NAS", got.DisplayName)

	got.DisplayName = "Home NAS (attic)"
	require.NoError(t, database.UpdateSyncConfig(got))

	got, err = database.GetSyncConfig("cfg1")
	require.NoError(t, err)
	assert.Equal(t, "Home NAS (attic)", got.DisplayName)
}

func TestListEnabledSyncConfigs(t *testing.T) {
	database := newTestDB(t)

	require.NoError(t, database.CreateSyncConfig(&models.SyncConfig{ID: "on", Enabled: true}))
	require.NoError(t, database.CreateSyncConfig(&models.SyncConfig{ID: "off", Enabled: false}))

	enabled, err := database.ListEnabledSyncConfigs()
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "on", enabled[0].ID)
}

func TestTouchLastSync(t *testing.T) {
	database := newTestDB(t)
	require.NoError(t, database.CreateSyncConfig(&models.SyncConfig{ID: "cfg1", Enabled: true}))

	at := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, database.TouchLastSync("cfg1", at))

	got, err := database.GetSyncConfig("cfg1")
	require.NoError(t, err)
	require.NotNil(t, got.LastSyncAt)
	assert.WithinDuration(t, at, *got.LastSyncAt, time.Second)
}

func TestDeleteSyncConfig_CascadesManifestAndStatus(t *testing.T) {
	database := newTestDB(t)

	require.NoError(t, database.CreateSyncConfig(&models.SyncConfig{ID: "cfg1", Enabled: true}))
	require.NoError(t, database.SaveManifestEntry(&models.ManifestEntry{
		ConfigID: "cfg1", EntityKey: models.JournalKey("j1"), Fingerprint: "fp",
	}))
	require.NoError(t, database.SaveSyncStatus(&models.SyncStatus{
		ConfigID: "cfg1", State: models.StateCompleted,
	}))

	require.NoError(t, database.DeleteSyncConfig("cfg1"))

	cfg, err := database.GetSyncConfig("cfg1")
	require.NoError(t, err)
	assert.Nil(t, cfg)

	manifest, err := database.LoadManifest("cfg1")
	require.NoError(t, err)
	assert.Empty(t, manifest)

	status, err := database.GetSyncStatus("cfg1")
	require.NoError(t, err)
	assert.Nil(t, status)
}

func TestSaveSyncStatus_Upserts(t *testing.T) {
	database := newTestDB(t)

	require.NoError(t, database.SaveSyncStatus(&models.SyncStatus{
		ConfigID: "cfg1", State: models.StateFailed, ErrorMessage: "auth",
	}))
	require.NoError(t, database.SaveSyncStatus(&models.SyncStatus{
		ConfigID: "cfg1", State: models.StateCompleted, Progress: 1,
	}))

	got, err := database.GetSyncStatus("cfg1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StateCompleted, got.State)
	assert.Empty(t, got.ErrorMessage)
}
