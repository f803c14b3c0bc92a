package jobs_test

import (
	"testing"
	"time"

	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"assethub/approval"
	"assethub/config"
	"assethub/jobs"
	"assethub/models"
	"assethub/store"
)

func setSweepAge(t *testing.T, age time.Duration) {
	t.Helper()

	orig := config.SweepAge
	config.SweepAge = age
	t.Cleanup(func() { config.SweepAge = orig })
}

func TestSweepCascades_ReportsStuckOnes(t *testing.T) {
	setSweepAge(t, 15*time.Minute)
	hook := logrustest.NewGlobal()
	defer hook.Reset()

	cascades := store.NewMemCascadeLogs()
	staleID := cascades.AddEntry(models.CascadeLog{
		EntityID:   primitive.NewObjectID(),
		Action:     approval.ActionApprove,
		Status:     models.CascadeFailed,
		FailedStep: approval.StepInventory,
		StartedAt:  time.Now().UTC().Add(-time.Hour),
	})
	// Fresh and still running: likely mid-flight, not reported.
	cascades.AddEntry(models.CascadeLog{
		EntityID:  primitive.NewObjectID(),
		Action:    approval.ActionApprove,
		Status:    models.CascadeRunning,
		StartedAt: time.Now().UTC(),
	})
	// Finished long ago: nothing to reconcile.
	cascades.AddEntry(models.CascadeLog{
		EntityID:  primitive.NewObjectID(),
		Action:    approval.ActionReturn,
		Status:    models.CascadeComplete,
		StartedAt: time.Now().UTC().Add(-2 * time.Hour),
	})

	jobs.NewScheduler(cascades).SweepCascades()

	var reports []map[string]interface{}
	for _, e := range hook.AllEntries() {
		if e.Message == "cascade needs manual reconciliation" {
			reports = append(reports, e.Data)
		}
	}
	require.Len(t, reports, 1)
	assert.Equal(t, staleID.Hex(), reports[0]["log"])
	assert.Equal(t, models.CascadeFailed, reports[0]["status"])
	assert.Equal(t, approval.StepInventory, reports[0]["failed"])
	assert.Equal(t, approval.ActionApprove, reports[0]["action"])
}

func TestSweepCascades_QuietWhenClean(t *testing.T) {
	setSweepAge(t, 15*time.Minute)
	hook := logrustest.NewGlobal()
	defer hook.Reset()

	jobs.NewScheduler(store.NewMemCascadeLogs()).SweepCascades()

	assert.Empty(t, hook.AllEntries())
}
