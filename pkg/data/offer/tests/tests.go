package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-escrow/pkg/data/offer"
	"github.com/code-payments/code-escrow/pkg/database/query"
	"github.com/code-payments/code-escrow/pkg/pointer"
)

func RunTests(t *testing.T, s offer.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s offer.Store){
		testRoundTrip,
		testExchangeHappyPath,
		testUpdateStaleRecord,
		testExchangedIsFinal,
		testInvalidRecord,
		testGetAllByInitializer,
		testGetAllByState,
	} {
		tf(t, s)
		teardown()
	}
}

func testRoundTrip(t *testing.T, s offer.Store) {
	t.Run("testRoundTrip", func(t *testing.T) {
		ctx := context.Background()

		actual, err := s.GetByEscrow(ctx, "test_escrow")
		require.Error(t, err)
		assert.Equal(t, offer.ErrNotFound, err)
		assert.Nil(t, actual)

		expected := newTestRecord("test_escrow", "test_initializer")
		cloned := expected.Clone()
		err = s.Save(ctx, expected)
		require.NoError(t, err)
		assert.EqualValues(t, 1, expected.Id)
		assert.EqualValues(t, 1, expected.Version)

		actual, err = s.GetByEscrow(ctx, "test_escrow")
		require.NoError(t, err)
		assertEquivalentRecords(t, &cloned, actual)
		assert.EqualValues(t, 1, actual.Version)

		count, err := s.CountByState(ctx, offer.StateInitialized)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})
}

func testExchangeHappyPath(t *testing.T, s offer.Store) {
	t.Run("testExchangeHappyPath", func(t *testing.T) {
		ctx := context.Background()

		expected := newTestRecord("test_escrow", "test_initializer")
		require.NoError(t, s.Save(ctx, expected))
		assert.EqualValues(t, 1, expected.Version)

		expected.Acceptor = pointer.To("test_acceptor")
		expected.ExchangeSignature = pointer.To("test_exchange_signature")
		expected.State = offer.StateExchanged

		require.NoError(t, s.Save(ctx, expected))
		assert.EqualValues(t, 1, expected.Id)
		assert.EqualValues(t, 2, expected.Version)

		actual, err := s.GetByEscrow(ctx, "test_escrow")
		require.NoError(t, err)
		assertEquivalentRecords(t, expected, actual)

		count, err := s.CountByState(ctx, offer.StateInitialized)
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		count, err = s.CountByState(ctx, offer.StateExchanged)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})
}

func testUpdateStaleRecord(t *testing.T, s offer.Store) {
	t.Run("testUpdateStaleRecord", func(t *testing.T) {
		ctx := context.Background()

		expected := newTestRecord("test_escrow", "test_initializer")
		require.NoError(t, s.Save(ctx, expected))
		assert.EqualValues(t, 1, expected.Version)

		stale := expected.Clone()
		stale.Version -= 1
		stale.Acceptor = pointer.To("test_acceptor")
		stale.ExchangeSignature = pointer.To("test_exchange_signature")
		stale.State = offer.StateExchanged

		err := s.Save(ctx, &stale)
		assert.Equal(t, offer.ErrStaleVersion, err)
		assert.EqualValues(t, 0, stale.Version)

		actual, err := s.GetByEscrow(ctx, "test_escrow")
		require.NoError(t, err)
		assert.Equal(t, offer.StateInitialized, actual.State)
		assert.Nil(t, actual.Acceptor)
		assert.Nil(t, actual.ExchangeSignature)
		assert.EqualValues(t, 1, actual.Version)
	})
}

func testExchangedIsFinal(t *testing.T, s offer.Store) {
	t.Run("testExchangedIsFinal", func(t *testing.T) {
		ctx := context.Background()

		expected := newTestRecord("test_escrow", "test_initializer")
		require.NoError(t, s.Save(ctx, expected))

		expected.Acceptor = pointer.To("test_acceptor")
		expected.ExchangeSignature = pointer.To("test_exchange_signature")
		expected.State = offer.StateExchanged
		require.NoError(t, s.Save(ctx, expected))

		// Neither a second acceptor nor reopening the offer is allowed
		again := expected.Clone()
		again.Acceptor = pointer.To("test_other_acceptor")
		assert.Equal(t, offer.ErrInvalidTransition, s.Save(ctx, &again))

		reopened := expected.Clone()
		reopened.Acceptor = nil
		reopened.ExchangeSignature = nil
		reopened.State = offer.StateInitialized
		assert.Equal(t, offer.ErrInvalidTransition, s.Save(ctx, &reopened))

		actual, err := s.GetByEscrow(ctx, "test_escrow")
		require.NoError(t, err)
		assertEquivalentRecords(t, expected, actual)
	})
}

func testInvalidRecord(t *testing.T, s offer.Store) {
	t.Run("testInvalidRecord", func(t *testing.T) {
		ctx := context.Background()

		for _, mutate := range []func(r *offer.Record){
			func(r *offer.Record) { r.Escrow = "" },
			func(r *offer.Record) { r.Initializer = "" },
			func(r *offer.Record) { r.DepositAmount = 0 },
			func(r *offer.Record) { r.ExpectedAmount = 0 },
			func(r *offer.Record) { r.DepositAmount = offer.MaxAmount + 1 },
			func(r *offer.Record) { r.ExpectedAmount = offer.MaxAmount + 1 },
			func(r *offer.Record) { r.InitializeSignature = "" },
			func(r *offer.Record) { r.State = offer.StateUnknown },
			func(r *offer.Record) { r.Acceptor = pointer.To("test_acceptor") },
			func(r *offer.Record) { r.State = offer.StateExchanged },
		} {
			record := newTestRecord("test_escrow", "test_initializer")
			mutate(record)
			assert.Error(t, s.Save(ctx, record))
		}

		_, err := s.GetByEscrow(ctx, "test_escrow")
		assert.Equal(t, offer.ErrNotFound, err)
	})
}

func testGetAllByInitializer(t *testing.T, s offer.Store) {
	t.Run("testGetAllByInitializer", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllByInitializer(ctx, "test_initializer_0", offer.StateInitialized)
		assert.Equal(t, offer.ErrNotFound, err)

		var records []*offer.Record
		for i := 0; i < 30; i++ {
			record := newTestRecord(fmt.Sprintf("test_escrow_%d", i), fmt.Sprintf("test_initializer_%d", i%3))
			require.NoError(t, s.Save(ctx, record))

			if i%2 == 0 {
				record.Acceptor = pointer.To(fmt.Sprintf("test_acceptor_%d", i))
				record.ExchangeSignature = pointer.To(fmt.Sprintf("test_exchange_signature_%d", i))
				record.State = offer.StateExchanged
				require.NoError(t, s.Save(ctx, record))
			}

			records = append(records, record)
		}

		for i := 0; i < 3; i++ {
			initializer := fmt.Sprintf("test_initializer_%d", i)

			for _, state := range []offer.State{offer.StateInitialized, offer.StateExchanged} {
				allActual, err := s.GetAllByInitializer(ctx, initializer, state)
				require.NoError(t, err)
				require.Len(t, allActual, 5)

				for _, actual := range allActual {
					assert.Equal(t, initializer, actual.Initializer)
					assert.Equal(t, state, actual.State)

					var found bool
					for _, record := range records {
						if record.Escrow == actual.Escrow {
							found = true
							assertEquivalentRecords(t, record, actual)
							break
						}
					}
					assert.True(t, found)
				}
			}
		}
	})
}

func testGetAllByState(t *testing.T, s offer.Store) {
	t.Run("testGetAllByState", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllByState(ctx, offer.StateInitialized, query.EmptyCursor, 1, query.Ascending)
		assert.Equal(t, offer.ErrNotFound, err)

		var records []*offer.Record
		for i := 0; i < 100; i++ {
			record := newTestRecord(fmt.Sprintf("test_escrow_%d", i), fmt.Sprintf("test_initializer_%d", i%3))
			require.NoError(t, s.Save(ctx, record))

			if i >= 50 {
				record.Acceptor = pointer.To(fmt.Sprintf("test_acceptor_%d", i))
				record.ExchangeSignature = pointer.To(fmt.Sprintf("test_exchange_signature_%d", i))
				record.State = offer.StateExchanged
				require.NoError(t, s.Save(ctx, record))
			}

			records = append(records, record)
		}

		count, err := s.CountByState(ctx, offer.StateInitialized)
		require.NoError(t, err)
		assert.EqualValues(t, 50, count)

		allActual, err := s.GetAllByState(ctx, offer.StateInitialized, query.EmptyCursor, 100, query.Ascending)
		require.NoError(t, err)
		require.Len(t, allActual, 50)
		for i, actual := range allActual {
			assertEquivalentRecords(t, records[i], actual)
		}

		allActual, err = s.GetAllByState(ctx, offer.StateInitialized, query.EmptyCursor, 10, query.Descending)
		require.NoError(t, err)
		require.Len(t, allActual, 10)
		for i, actual := range allActual {
			assertEquivalentRecords(t, records[50-i-1], actual)
		}

		allActual, err = s.GetAllByState(ctx, offer.StateInitialized, query.ToCursor(records[23].Id), 10, query.Ascending)
		require.NoError(t, err)
		require.Len(t, allActual, 10)
		for i, actual := range allActual {
			assertEquivalentRecords(t, records[23+i+1], actual)
		}

		allActual, err = s.GetAllByState(ctx, offer.StateInitialized, query.ToCursor(records[23].Id), 10, query.Descending)
		require.NoError(t, err)
		require.Len(t, allActual, 10)
		for i, actual := range allActual {
			assertEquivalentRecords(t, records[23-i-1], actual)
		}

		_, err = s.GetAllByState(ctx, offer.StateInitialized, query.ToCursor(records[49].Id), 10, query.Ascending)
		assert.Equal(t, offer.ErrNotFound, err)

		allActual, err = s.GetAllByState(ctx, offer.StateExchanged, query.EmptyCursor, 100, query.Ascending)
		require.NoError(t, err)
		require.Len(t, allActual, 50)
		for i, actual := range allActual {
			assertEquivalentRecords(t, records[50+i], actual)
		}
	})
}

func newTestRecord(escrow, initializer string) *offer.Record {
	return &offer.Record{
		Escrow:      escrow,
		Initializer: initializer,

		TempTokenAccount:    escrow + "_temp",
		ReceiveTokenAccount: initializer + "_receive",

		DepositMint:   "test_deposit_mint",
		DepositAmount: 50,

		ReceiveMint:    "test_receive_mint",
		ExpectedAmount: 30,

		InitializeSignature: escrow + "_initialize_signature",

		State: offer.StateInitialized,

		CreatedAt: time.Now(),
	}
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *offer.Record) {
	assert.Equal(t, obj1.Escrow, obj2.Escrow)
	assert.Equal(t, obj1.Initializer, obj2.Initializer)

	assert.Equal(t, obj1.TempTokenAccount, obj2.TempTokenAccount)
	assert.Equal(t, obj1.ReceiveTokenAccount, obj2.ReceiveTokenAccount)

	assert.Equal(t, obj1.DepositMint, obj2.DepositMint)
	assert.Equal(t, obj1.DepositAmount, obj2.DepositAmount)

	assert.Equal(t, obj1.ReceiveMint, obj2.ReceiveMint)
	assert.Equal(t, obj1.ExpectedAmount, obj2.ExpectedAmount)

	assert.Equal(t, obj1.InitializeSignature, obj2.InitializeSignature)

	assert.EqualValues(t, obj1.Acceptor, obj2.Acceptor)
	assert.EqualValues(t, obj1.ExchangeSignature, obj2.ExchangeSignature)

	assert.Equal(t, obj1.State, obj2.State)
}
