package mongostore_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/twofactor/pkg/config"
	"github.com/dmitrymomot/twofactor/pkg/mongo"
	"github.com/dmitrymomot/twofactor/svc/twofactor"
	"github.com/dmitrymomot/twofactor/svc/twofactor/mongostore"
	"github.com/dmitrymomot/twofactor/svc/twofactor/storetest"
)

func TestStore(t *testing.T) {
	cfg, err := config.Parse[mongo.Config]()
	if err != nil {
		t.Skip("MONGODB_URL is not set")
	}
	cfg.RetryAttempts = 1
	cfg.ConnectTimeout = 5 * time.Second

	ctx := context.Background()
	client, err := mongo.New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	require.NoError(t, mongo.Healthcheck(client)(ctx))

	coll := client.Database(cfg.Database).Collection("two_factor_test_" + uuid.NewString())
	t.Cleanup(func() { _ = coll.Drop(context.Background()) })

	storetest.Run(t, func(t *testing.T) twofactor.Store {
		return mongostore.NewWithCollection(coll)
	})
}
