package gate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/namecoder1/calensync-bot/internal/domain"
	"github.com/namecoder1/calensync-bot/internal/testutil"
)

func TestGate_Lifecycle(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore()
	g := New(store, time.Hour)

	ok, err := g.TryAdmit(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("first TryAdmit: got (%v, %v), want (true, nil)", ok, err)
	}

	ok, err = g.TryAdmit(ctx, "k")
	if err != nil || ok {
		t.Fatalf("second TryAdmit: got (%v, %v), want (false, nil)", ok, err)
	}

	if err := g.Release(ctx, "k"); err != nil {
		t.Fatalf("Release: %v", err)
	}

	ok, err = g.TryAdmit(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("TryAdmit after release: got (%v, %v), want (true, nil)", ok, err)
	}

	if err := g.Confirm(ctx, "k"); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if v, _ := store.Get(KeyPrefix + "k"); v != confirmedValue {
		t.Errorf("stored value: got %q, want %q", v, confirmedValue)
	}

	ok, _ = g.TryAdmit(ctx, "k")
	if ok {
		t.Error("TryAdmit after confirm: got true, want false")
	}
}

func TestGate_ConcurrentTryAdmitAdmitsOne(t *testing.T) {
	ctx := context.Background()
	g := New(testutil.NewMemoryStore(), time.Hour)

	const workers = 32
	var admitted atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := g.TryAdmit(ctx, "same-key")
			if err != nil {
				t.Errorf("TryAdmit: %v", err)
				return
			}
			if ok {
				admitted.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := admitted.Load(); got != 1 {
		t.Errorf("admitted: got %d, want 1", got)
	}
}

func TestGate_ConfirmRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := domain.NewMockIdempotencyStore(ctrl)
	g := New(store, time.Hour)

	gomock.InOrder(
		store.EXPECT().Set(gomock.Any(), KeyPrefix+"k", confirmedValue, time.Hour).Return(errors.New("timeout")),
		store.EXPECT().Set(gomock.Any(), KeyPrefix+"k", confirmedValue, time.Hour).Return(nil),
	)

	if err := g.Confirm(context.Background(), "k"); err != nil {
		t.Errorf("Confirm: got %v, want nil", err)
	}
}

func TestGate_ConfirmGivesUp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := domain.NewMockIdempotencyStore(ctrl)
	g := New(store, time.Hour)
	storeErr := errors.New("unavailable")

	store.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(storeErr).Times(confirmAttempts)

	err := g.Confirm(context.Background(), "k")
	if !errors.Is(err, storeErr) {
		t.Errorf("Confirm: got %v, want wrapped %v", err, storeErr)
	}
}

func TestGate_TryAdmitPropagatesStoreErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := domain.NewMockIdempotencyStore(ctrl)
	g := New(store, 0)
	storeErr := errors.New("unavailable")

	store.EXPECT().SetIfAbsent(gomock.Any(), KeyPrefix+"k", lockedValue, DefaultTTL).Return(false, storeErr)

	ok, err := g.TryAdmit(context.Background(), "k")
	if ok || !errors.Is(err, storeErr) {
		t.Errorf("TryAdmit: got (%v, %v), want (false, %v)", ok, err, storeErr)
	}
}
