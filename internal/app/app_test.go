package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/appshell-dev/appshell/internal/app"
	"github.com/appshell-dev/appshell/internal/app/apptest"
	"github.com/appshell-dev/appshell/internal/authflow"
	"github.com/appshell-dev/appshell/internal/persist"
	"github.com/appshell-dev/appshell/internal/store"
	"github.com/appshell-dev/appshell/internal/tasks"
)

func TestSignIn_RecordsNotificationAndPersists(t *testing.T) {
	cfg := apptest.Config(t)
	idp := apptest.NewIdentity()
	idp.Add("a@x.com", "pw")

	a := apptest.Start(t, cfg, idp)
	ctx := context.Background()

	_, err := a.Coordinator.SignIn(ctx, authflow.SignInRequest{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, store.AuthSession{Status: store.StatusAuthenticated, UserID: "uid-a@x.com", UserEmail: "a@x.com"}, a.Session())
	assert.Equal(t, []string{"a@x.com"}, idp.Sessions())

	current, ok := a.Snackbar.Current()
	require.True(t, ok)
	assert.Equal(t, authflow.SignInSuccessMessage, current.Message)

	records, err := persist.ListNotifications(ctx, a.DB, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, authflow.SignInSuccessMessage, records[0].Message)
	require.NoError(t, a.Close())

	// a restart restores the session
	restarted := apptest.Start(t, cfg, idp)
	assert.Equal(t, store.StatusAuthenticated, restarted.Session().Status)
	assert.Equal(t, "a@x.com", restarted.Session().UserEmail)
}

func TestStart_ResetsInterruptedSignIn(t *testing.T) {
	cfg := apptest.Config(t)

	a, err := app.New(cfg, zerolog.Nop(), app.WithIdentity(apptest.NewIdentity()))
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))

	// a process killed mid sign-in leaves "loading" behind
	a.Coordinator.Close()
	a.Store.Dispatch(store.SignIn{Email: "a@x.com", Password: "pw"})
	require.NoError(t, a.Close())

	restarted := apptest.Start(t, cfg, apptest.NewIdentity())
	assert.Equal(t, store.StatusError, restarted.Session().Status)
}

func TestSignOut_FailureKeepsSession(t *testing.T) {
	idp := apptest.NewIdentity()
	idp.Add("a@x.com", "pw")
	a := apptest.Start(t, apptest.Config(t), idp)
	ctx := context.Background()

	_, err := a.Coordinator.SignIn(ctx, authflow.SignInRequest{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)
	a.Menu.Open()

	idp.SignOutErr = errors.New("keyring locked")
	_, err = a.Coordinator.SignOut(ctx)
	require.Error(t, err)
	assert.Equal(t, store.StatusAuthenticated, a.Session().Status)
	assert.True(t, a.Menu.IsOpen())

	idp.SignOutErr = nil
	out, err := a.Coordinator.SignOut(ctx)
	require.NoError(t, err)
	assert.Equal(t, authflow.SignOutSuccessMessage, out.Message)
	assert.Equal(t, store.StatusIdle, a.Session().Status)
	assert.False(t, a.Menu.IsOpen())
}

func TestSignIn_QueuesNotificationWhenRedisConfigured(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := apptest.Config(t)
	cfg.Redis.Address = mr.Addr()
	idp := apptest.NewIdentity()
	idp.Add("a@x.com", "pw")

	a := apptest.Start(t, cfg, idp)
	ctx := context.Background()

	configured, err := a.PingQueue(ctx)
	require.True(t, configured)
	require.NoError(t, err)

	_, err = a.Coordinator.SignIn(ctx, authflow.SignInRequest{Email: "a@x.com", Password: "pw"})
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	pending, err := rdb.LLen(ctx, "asynq:{"+tasks.QueueNotifications+"}:pending").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)

	// the worker records queued notifications, not the app
	records, err := persist.ListNotifications(ctx, a.DB, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPingQueue_NotConfigured(t *testing.T) {
	a := apptest.Start(t, apptest.Config(t), apptest.NewIdentity())

	configured, err := a.PingQueue(context.Background())
	assert.False(t, configured)
	assert.NoError(t, err)
}
