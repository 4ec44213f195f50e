package appmanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CreditProcess/internal/notification"
	"CreditProcess/internal/resource"
	"CreditProcess/internal/store"
)

func TestRegisterResourcesReflectsWiredBackends(t *testing.T) {
	oldStore, oldMailer := recordStore, mailer
	t.Cleanup(func() { recordStore, mailer = oldStore, oldMailer })

	recordStore = store.NewMemStore()
	mailer = &notification.Mailer{}

	rm, ok := resource.NewResourceManagerService(nil).(*resource.ResourceManager)
	require.True(t, ok)

	registerResources(rm)
	assert.Equal(t, 2, rm.Count())
	assert.ElementsMatch(t, []string{"recordstore", "mailer"}, rm.ListResources())
}
