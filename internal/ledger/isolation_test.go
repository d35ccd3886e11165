package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/concurrent-transfers-ledger/internal/storage"
)

func TestIsolation_UsesConfiguredLevel(t *testing.T) {
	tests := []struct {
		name  string
		level storage.IsolationLevel
	}{
		{"read committed", storage.ReadCommitted},
		{"repeatable read", storage.RepeatableRead},
		{"serializable", storage.Serializable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			sender := f.account(t, 1000)
			receiver := f.account(t, 0)
			counting := &countingStore{LedgerStore: f.store}
			d := f.deps()
			d.Store = counting
			d.IsolationLevel = tt.level

			strategy := NewIsolationStrategy(d)
			assert.Equal(t, tt.level, strategy.Level())

			_, err := strategy.Handle(context.Background(), transferOf(sender.ID, receiver.ID, 10))
			require.NoError(t, err)
			assert.Equal(t, []storage.IsolationLevel{tt.level}, counting.levels)
		})
	}
}

func TestIsolation_DefaultsToReadCommitted(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, storage.ReadCommitted, NewIsolationStrategy(f.deps()).Level())
}

func TestIsolation_ConcurrentSerializableTransfers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sender := f.account(t, 1000)
	receiver := f.account(t, 0)
	d := f.deps()
	d.IsolationLevel = storage.Serializable
	strategy := NewIsolationStrategy(d)

	var wg sync.WaitGroup
	for _, amount := range []int64{200, 300} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := strategy.Handle(ctx, transferOf(sender.ID, receiver.ID, amount))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.True(t, f.storedBalance(t, sender.ID).Equal(dec(500)))
	assert.True(t, f.storedBalance(t, receiver.ID).Equal(dec(500)))
	assert.Len(t, f.store.Transfers(), 2)
}
