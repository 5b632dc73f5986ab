package listing_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/ledgerdesk/internal/listing"
)

type recordingNotifier struct {
	got []listing.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n listing.Notification) {
	r.got = append(r.got, n)
}

func newExecutor(h *harness, m listing.MutatorFunc) (*listing.Executor, *recordingNotifier) {
	notes := &recordingNotifier{}
	exec := listing.NewExecutor(h.client, notes, nil)
	exec.Register("currencies", m)
	exec.Depend("currencies", "currencyStats")
	return exec, notes
}

func TestExecute_SuccessInvalidatesCollectionAndDependents(t *testing.T) {
	h := newHarness(time.Hour, currencies(2)...)
	stats := listing.NewQuery(h.client, "currencyStats", func(context.Context, listing.Key) (listing.Page[int], error) {
		return listing.Page[int]{Items: []int{2}, Total: 1}, nil
	}, time.Hour)
	ctx := context.Background()

	key := listing.NewKey("currencies", 1, 10, nil, listing.Sort{})
	statsKey := listing.NewKey("currencyStats", 1, 10, nil, listing.Sort{})
	_, err := h.query.Resolve(ctx, key)
	require.NoError(t, err)
	_, err = stats.Resolve(ctx, statsKey)
	require.NoError(t, err)

	exec, notes := newExecutor(h, func(context.Context, listing.Intent) (any, error) {
		return map[string]any{"code": "NEW"}, nil
	})

	out := exec.Execute(ctx, listing.Intent{Kind: listing.Create, Collection: "currencies", Payload: map[string]any{"code": "NEW"}})

	require.True(t, out.OK)
	assert.Equal(t, "Created", out.Message)
	assert.Equal(t, []string{"currencies", "currencyStats"}, out.Invalidated)

	for _, id := range []string{key.String(), statsKey.String()} {
		e, ok := h.store.Get(id)
		require.True(t, ok)
		assert.True(t, e.Invalidated, id)
	}

	require.Len(t, notes.got, 1)
	assert.Equal(t, listing.LevelSuccess, notes.got[0].Level)
}

func TestExecute_NextReadAfterMutationRefetches(t *testing.T) {
	h := newHarness(time.Hour, currencies(2)...)
	ctx := context.Background()
	key := listing.NewKey("currencies", 1, 10, nil, listing.Sort{})

	_, err := h.query.Resolve(ctx, key)
	require.NoError(t, err)

	exec, _ := newExecutor(h, func(context.Context, listing.Intent) (any, error) {
		h.remote.setItems(currencies(3)...)
		return nil, nil
	})
	out := exec.Execute(ctx, listing.Intent{Kind: listing.Create, Collection: "currencies"})
	require.True(t, out.OK)

	res, err := h.query.Resolve(ctx, key)
	require.NoError(t, err)
	assert.False(t, res.Stale)
	assert.Len(t, res.Page.Items, 3, "no pre-mutation cache hit")
	assert.Equal(t, 2, h.remote.callsFor(key))
}

func TestExecute_ReadDuringMutationDoesNotJoinEarlierFetch(t *testing.T) {
	h := newHarness(time.Hour, currencies(2)...)
	h.remote.gate = make(chan struct{})
	h.remote.start = make(chan string, 2)
	ctx := context.Background()
	key := listing.NewKey("currencies", 1, 10, nil, listing.Sort{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := h.query.Resolve(ctx, key)
		assert.NoError(t, err)
	}()
	<-h.remote.start // pre-mutation fetch is on the wire

	exec, _ := newExecutor(h, func(context.Context, listing.Intent) (any, error) {
		h.remote.setItems(currencies(3)...)
		return nil, nil
	})
	out := exec.Execute(ctx, listing.Intent{Kind: listing.Create, Collection: "currencies"})
	require.True(t, out.OK)

	after := make(chan listing.Result[currency], 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		res, err := h.query.Resolve(ctx, key)
		assert.NoError(t, err)
		after <- res
	}()
	<-h.remote.start // a second fetch began instead of joining the first
	close(h.remote.gate)
	wg.Wait()

	res := <-after
	assert.Len(t, res.Page.Items, 3)
	assert.Equal(t, 2, h.remote.callsFor(key))

	cached, ok := h.query.Peek(key)
	require.True(t, ok)
	assert.Len(t, cached.Page.Items, 3, "late pre-mutation result does not replace newer data")
}

func TestExecute_FailedCreateSurfacesValidationMessage(t *testing.T) {
	h := newHarness(time.Hour, currencies(2)...)
	ctx := context.Background()
	key := listing.NewKey("currencies", 1, 10, nil, listing.Sort{})
	_, err := h.query.Resolve(ctx, key)
	require.NoError(t, err)

	exec, notes := newExecutor(h, func(context.Context, listing.Intent) (any, error) {
		return nil, &listing.ServerError{
			Status: http.StatusUnprocessableEntity,
			Errors: []listing.FieldError{{Message: "Name is required"}},
		}
	})

	out := exec.Execute(ctx, listing.Intent{Kind: listing.Create, Collection: "currencies", Payload: map[string]any{}})

	assert.False(t, out.OK)
	assert.Equal(t, "Validation errors: Name is required", out.Message)
	assert.Equal(t, listing.FailureValidation, out.Failure)
	assert.Empty(t, out.Invalidated)

	e, ok := h.store.Get(key.String())
	require.True(t, ok)
	assert.False(t, e.Invalidated, "failed writes leave the cache alone")

	require.Len(t, notes.got, 1)
	assert.Equal(t, listing.LevelError, notes.got[0].Level)
	assert.Equal(t, "Validation errors: Name is required", notes.got[0].Message)
}

func TestExecute_ErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		want    string
		failure listing.Failure
	}{
		{
			name:    "single error string wins",
			err:     &listing.ServerError{Status: 400, Message: "Code already exists", Errors: []listing.FieldError{{Message: "ignored"}}},
			want:    "Code already exists",
			failure: listing.FailureValidation,
		},
		{
			name:    "msg and field forms joined",
			err:     &listing.ServerError{Status: 400, Errors: []listing.FieldError{{Msg: "Rate must be positive"}, {Field: "code"}}},
			want:    "Validation errors: Rate must be positive, code",
			failure: listing.FailureValidation,
		},
		{
			name:    "unstructured server error falls back",
			err:     &listing.ServerError{Status: 502},
			want:    listing.FallbackMessage,
			failure: listing.FailureTransport,
		},
		{
			name:    "transport error falls back",
			err:     errors.New("dial tcp: connection refused"),
			want:    listing.FallbackMessage,
			failure: listing.FailureTransport,
		},
		{
			name:    "version conflict",
			err:     &listing.ServerError{Status: http.StatusPreconditionFailed},
			want:    listing.ConflictMessage,
			failure: listing.FailureConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(time.Hour)
			exec, _ := newExecutor(h, func(context.Context, listing.Intent) (any, error) {
				return nil, tt.err
			})

			out := exec.Execute(context.Background(), listing.Intent{Kind: listing.Update, Collection: "currencies", ID: "7"})

			assert.False(t, out.OK)
			assert.Equal(t, tt.want, out.Message)
			assert.Equal(t, tt.failure, out.Failure)
		})
	}
}

func TestExecute_PermissionDenied(t *testing.T) {
	h := newHarness(time.Hour)
	called := false
	exec, _ := newExecutor(h, func(context.Context, listing.Intent) (any, error) {
		called = true
		return nil, nil
	})

	ctx := listing.WithPermissions(context.Background(), listing.Permissions{CanCreate: true})
	out := exec.Execute(ctx, listing.Intent{Kind: listing.Delete, Collection: "currencies", ID: "1"})

	assert.False(t, out.OK)
	assert.Equal(t, listing.FailureForbidden, out.Failure)
	assert.ErrorIs(t, out.Err, listing.ErrForbidden)
	assert.False(t, called)
}

func TestExecute_RejectsMalformedIntents(t *testing.T) {
	h := newHarness(time.Hour)
	exec, _ := newExecutor(h, func(context.Context, listing.Intent) (any, error) { return nil, nil })

	tests := map[string]listing.Intent{
		"missing id":    {Kind: listing.Update, Collection: "currencies"},
		"unknown kind":  {Kind: "archive", Collection: "currencies", ID: "1"},
		"no collection": {Kind: listing.Create},
		"no mutator":    {Kind: listing.Create, Collection: "unregistered"},
	}
	for name, intent := range tests {
		out := exec.Execute(context.Background(), intent)
		assert.False(t, out.OK, name)
		assert.NotEmpty(t, out.Message, name)
	}
}

func TestExecute_PanickingMutatorIsContained(t *testing.T) {
	h := newHarness(time.Hour)
	exec, _ := newExecutor(h, func(context.Context, listing.Intent) (any, error) {
		panic("nil map")
	})

	var out listing.Outcome
	require.NotPanics(t, func() {
		out = exec.Execute(context.Background(), listing.Intent{Kind: listing.Create, Collection: "currencies"})
	})
	assert.False(t, out.OK)
	assert.Equal(t, listing.FallbackMessage, out.Message)
}

func TestExecute_ObserversSeeEveryOutcome(t *testing.T) {
	h := newHarness(time.Hour)
	exec, _ := newExecutor(h, func(context.Context, listing.Intent) (any, error) { return nil, nil })

	var seen []bool
	exec.Observe(func(_ context.Context, _ listing.Intent, out listing.Outcome) {
		seen = append(seen, out.OK)
	})

	exec.Execute(context.Background(), listing.Intent{Kind: listing.ToggleStatus, Collection: "currencies", ID: "1"})
	exec.Execute(context.Background(), listing.Intent{Kind: listing.ToggleStatus, Collection: "currencies"})

	assert.Equal(t, []bool{true, false}, seen)
}

func TestParseMutationKind(t *testing.T) {
	for in, want := range map[string]listing.MutationKind{
		"create":        listing.Create,
		"set-default":   listing.SetDefault,
		"setDefault":    listing.SetDefault,
		"toggle-status": listing.ToggleStatus,
	} {
		got, ok := listing.ParseMutationKind(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got)
	}
	_, ok := listing.ParseMutationKind("archive")
	assert.False(t, ok)
}
