package twofactor_test

import (
	"testing"

	"github.com/dmitrymomot/twofactor/svc/twofactor"
	"github.com/dmitrymomot/twofactor/svc/twofactor/storetest"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	storetest.Run(t, func(t *testing.T) twofactor.Store {
		return twofactor.NewMemoryStore()
	})
}
