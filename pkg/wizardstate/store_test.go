package wizardstate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formwizard/pkg/account"
	"github.com/goliatone/go-formwizard/pkg/testsupport"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

func sampleState() wizard.State {
	return wizard.State{
		CurrentStep:        1,
		Values:             []wizard.Pair{{Key: "email", Value: "ada@example.com"}, {Key: "aboutMe", Value: ""}},
		Errors:             []wizard.Pair{{Key: "aboutMe", Value: "About me is required."}},
		Persisted:          []wizard.Pair{{Key: "email", Value: "ada@example.com"}},
		AuthenticatedEmail: "ada@example.com",
	}
}

func exerciseStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()
	key := NewKey()

	_, err := st.Load(ctx, key)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)

	want := sampleState()
	require.NoError(t, st.Save(ctx, key, want))
	got, err := st.Load(ctx, key)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}

	want.CurrentStep = 2
	require.NoError(t, st.Save(ctx, key, want))
	got, err = st.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentStep)

	require.NoError(t, st.Delete(ctx, key))
	_, err = st.Load(ctx, key)
	assert.True(t, errors.Is(err, ErrNotFound))
	require.NoError(t, st.Delete(ctx, key), "deleting twice is fine")

	assert.Error(t, st.Save(ctx, " ", want))
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestFile(t *testing.T) {
	st, err := NewFile(t.TempDir())
	require.NoError(t, err)
	exerciseStore(t, st)

	assert.Error(t, st.Save(context.Background(), "../escape", sampleState()))
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

func TestRedis(t *testing.T) {
	_, client := newRedis(t)
	exerciseStore(t, NewRedis(client))
}

func TestRedis_TTLAndPrefix(t *testing.T) {
	server, client := newRedis(t)
	st := NewRedis(client, WithKeyPrefix("test:"), WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, st.Save(ctx, "abc", sampleState()))
	assert.True(t, server.Exists("test:abc"))
	assert.Equal(t, time.Minute, server.TTL("test:abc"))

	server.FastForward(2 * time.Minute)
	_, err := st.Load(ctx, "abc")
	assert.True(t, errors.Is(err, ErrNotFound))
}

type okBackend struct{}

func (okBackend) UpdateFieldValue(context.Context, account.FieldUpdate) (account.User, error) {
	return account.User{ID: 1}, nil
}

func (okBackend) Authenticate(context.Context, string, string) (account.AuthResult, error) {
	return account.AuthResult{Success: true}, nil
}

func TestAutosaveAndResume(t *testing.T) {
	ctx := context.Background()
	st := NewMemory()
	key := NewKey()
	form := testsupport.SampleForm(t).FrontendView()

	m := wizard.New(form, okBackend{}, okBackend{}, Autosave(ctx, st, key, func(err error) { t.Errorf("autosave: %v", err) }))
	_, _ = m.SetValue("email", "ada@example.com")
	_, _ = m.SetValue("password", "password123")
	outcome, err := m.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, wizard.OutcomeMoved, outcome)

	resumed := wizard.New(form, okBackend{}, okBackend{})
	ok, err := Resume(ctx, st, key, resumed)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, resumed.Step())
	assert.Equal(t, "ada@example.com", resumed.AuthenticatedEmail())

	ok, err = Resume(ctx, st, NewKey(), resumed)
	require.NoError(t, err)
	assert.False(t, ok)
}
