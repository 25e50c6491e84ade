// Copyright 2026 Kestrel Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package transfer

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/kestrel/chain"
	"github.com/kestrelhq/kestrel/database"
	"github.com/kestrelhq/kestrel/database/models"
	"github.com/kestrelhq/kestrel/event"
)

type fakeChain struct {
	config       *chain.Config
	irreversible int64
	balances     map[string]decimal.Decimal
	balanceErr   error
	prepared     *chain.Transaction
	prepareCalls int
	preparedOps  []chain.TransferOperation
	sendTxID     string
	sendErr      error
	sendCalls    int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		config: &chain.Config{
			AddressPrefix: "TST",
			ChainID:       "deadbeef",
		},
		irreversible: 500,
		balances:     map[string]decimal.Decimal{},
		prepared: &chain.Transaction{
			RefBlockNum:    100,
			RefBlockPrefix: 12345,
			Expiration:     "2026-01-01T00:00:30",
		},
		sendTxID: "tx-real",
	}
}

func (f *fakeChain) Config(_ context.Context) (*chain.Config, error) {
	return f.config, nil
}

func (f *fakeChain) LastIrreversibleBlock(
	_ context.Context,
) (int64, error) {
	return f.irreversible, nil
}

func (f *fakeChain) Balance(
	_ context.Context,
	account string,
	assetID string,
) (decimal.Decimal, error) {
	if f.balanceErr != nil {
		return decimal.Zero, f.balanceErr
	}
	return f.balances[account+"/"+assetID], nil
}

func (f *fakeChain) PrepareTransaction(
	_ context.Context,
	operations []chain.TransferOperation,
) (*chain.Transaction, error) {
	f.prepareCalls++
	f.preparedOps = operations
	tx := *f.prepared
	tx.Operations = operations
	return &tx, nil
}

func (f *fakeChain) Send(
	_ context.Context,
	_ *chain.SignedTransaction,
) (string, error) {
	f.sendCalls++
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.sendTxID, nil
}

func testOrchestrator(
	t *testing.T,
) (*Orchestrator, *database.Store, *fakeChain) {
	t.Helper()
	store, err := database.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close() //nolint:errcheck
	})
	require.NoError(t, store.UpsertAsset("TEST", "", "Test Token", 3))
	chainClient := newFakeChain()
	return New(store, chainClient, nil, nil), store, chainClient
}

func requireBlockchainError(
	t *testing.T,
	err error,
	status int,
	code ErrorCode,
) *BlockchainError {
	t.Helper()
	require.Error(t, err)
	var blockchainErr *BlockchainError
	require.ErrorAs(t, err, &blockchainErr)
	assert.Equal(t, status, blockchainErr.Status)
	assert.Equal(t, code, blockchainErr.Code)
	return blockchainErr
}

func TestBuildUnknownAsset(t *testing.T) {
	orchestrator, _, _ := testOrchestrator(t)
	_, err := orchestrator.Build(
		t.Context(),
		models.OperationTypeSingle,
		"op-1",
		"MISSING",
		[]Leg{{FromAddress: "hot$a", ToAddress: "hot$b", Amount: "1000"}},
	)
	blockchainErr := requireBlockchainError(
		t, err, http.StatusBadRequest, ErrorCodeUnknown,
	)
	assert.Contains(t, blockchainErr.Message, "MISSING")
}

func TestBuildInvalidAmount(t *testing.T) {
	orchestrator, _, _ := testOrchestrator(t)
	for _, amount := range []string{"abc", "1.5", ""} {
		_, err := orchestrator.Build(
			t.Context(),
			models.OperationTypeSingle,
			"op-1",
			"TEST",
			[]Leg{{
				FromAddress: "hot$a",
				ToAddress:   "hot$b",
				Amount:      amount,
			}},
		)
		blockchainErr := requireBlockchainError(
			t, err, http.StatusBadRequest, ErrorCodeUnknown,
		)
		assert.Contains(t, blockchainErr.Message, amount)
	}
	for _, amount := range []string{"0", "-1000"} {
		_, err := orchestrator.Build(
			t.Context(),
			models.OperationTypeSingle,
			"op-1",
			"TEST",
			[]Leg{{
				FromAddress: "hot$a",
				ToAddress:   "hot$b",
				Amount:      amount,
			}},
		)
		requireBlockchainError(
			t, err, http.StatusBadRequest, ErrorCodeAmountTooSmall,
		)
	}
}

func TestBuildSimulatedInsufficientBalance(t *testing.T) {
	orchestrator, _, _ := testOrchestrator(t)
	_, err := orchestrator.Build(
		t.Context(),
		models.OperationTypeSingle,
		"op-1",
		"TEST",
		[]Leg{{FromAddress: "hot$a", ToAddress: "hot$b", Amount: "1000"}},
	)
	requireBlockchainError(
		t, err, http.StatusBadRequest, ErrorCodeNotEnoughBalance,
	)
}

func TestBuildSimulatedSuccess(t *testing.T) {
	orchestrator, store, chainClient := testOrchestrator(t)
	require.NoError(t, store.UpsertBalance(
		"hot$a", "TEST", "seed", 5, 5000, 100,
	))

	encoded, err := orchestrator.Build(
		t.Context(),
		models.OperationTypeSingle,
		"op-1",
		"TEST",
		[]Leg{{FromAddress: "hot$a", ToAddress: "hot$b", Amount: "1000"}},
	)
	require.NoError(t, err)

	// Nothing to sign when every leg settles internally
	var decoded TransactionContext
	require.NoError(t, DecodeBase64(encoded, &decoded))
	require.NotNil(t, decoded.Config)
	assert.Equal(t, "TST", decoded.Config.AddressPrefix)
	assert.Equal(t, false, decoded.Tx)
	assert.Zero(t, chainClient.prepareCalls)

	operation, err := store.GetOperation("op-1")
	require.NoError(t, err)
	require.NotNil(t, operation)
	assert.False(t, operation.IsSent())
	assert.Equal(t, int64(1000), operation.AmountInBaseUnit)

	// Building never charges the ledger
	balance, err := store.GetBalance("hot$a", "TEST")
	require.NoError(t, err)
	require.NotNil(t, balance)
	assert.Equal(t, int64(5000), balance.AmountInBaseUnit)
}

func TestBuildRealLeg(t *testing.T) {
	orchestrator, store, chainClient := testOrchestrator(t)
	chainClient.balances["hot/TEST"] = decimal.RequireFromString("10")

	encoded, err := orchestrator.Build(
		t.Context(),
		models.OperationTypeSingle,
		"op-1",
		"TEST",
		[]Leg{{
			FromAddress: "hot",
			ToAddress:   "cold$dest-memo",
			Amount:      "1500",
		}},
	)
	require.NoError(t, err)

	require.Equal(t, 1, chainClient.prepareCalls)
	require.Len(t, chainClient.preparedOps, 1)
	params := chainClient.preparedOps[0].Params
	assert.Equal(t, "hot", params.From)
	assert.Equal(t, "cold", params.To)
	assert.Equal(t, "1.500 TEST", params.Amount)
	assert.Equal(t, "dest-memo", params.Memo)

	var decoded struct {
		Config *chain.Config      `json:"config"`
		Tx     *chain.Transaction `json:"tx"`
	}
	require.NoError(t, DecodeBase64(encoded, &decoded))
	require.NotNil(t, decoded.Tx)
	assert.Equal(t, "2026-01-01T00:00:30", decoded.Tx.Expiration)

	operation, err := store.GetOperation("op-1")
	require.NoError(t, err)
	require.NotNil(t, operation)
	require.NotNil(t, operation.ExpiryTime)
	expected, _ := chain.ParseExpiration("2026-01-01T00:00:30")
	assert.True(t, operation.ExpiryTime.Equal(expected))
}

func TestBuildRealLegInsufficientBalance(t *testing.T) {
	orchestrator, _, chainClient := testOrchestrator(t)
	chainClient.balances["hot/TEST"] = decimal.RequireFromString("1")

	_, err := orchestrator.Build(
		t.Context(),
		models.OperationTypeSingle,
		"op-1",
		"TEST",
		[]Leg{{
			FromAddress: "hot",
			ToAddress:   "cold",
			Amount:      "1500",
		}},
	)
	requireBlockchainError(
		t, err, http.StatusBadRequest, ErrorCodeNotEnoughBalance,
	)
	assert.Zero(t, chainClient.prepareCalls)
}

func TestBuildConflictAfterSend(t *testing.T) {
	orchestrator, store, _ := testOrchestrator(t)
	require.NoError(t, store.UpsertBalance(
		"hot$a", "TEST", "seed", 5, 5000, 100,
	))
	legs := []Leg{
		{FromAddress: "hot$a", ToAddress: "hot$b", Amount: "1000"},
	}
	_, err := orchestrator.Build(
		t.Context(),
		models.OperationTypeSingle,
		"op-1",
		"TEST",
		legs,
	)
	require.NoError(t, err)

	// Rebuilding before send is allowed
	_, err = orchestrator.Build(
		t.Context(),
		models.OperationTypeSingle,
		"op-1",
		"TEST",
		legs,
	)
	require.NoError(t, err)

	sendTime := time.Now().UTC()
	require.NoError(t, store.UpdateOperation(
		"op-1",
		database.OperationUpdate{SendTime: &sendTime},
	))

	_, err = orchestrator.Build(
		t.Context(),
		models.OperationTypeSingle,
		"op-1",
		"TEST",
		legs,
	)
	requireBlockchainError(
		t, err, http.StatusConflict, ErrorCodeUnknown,
	)
}

func TestBroadcastUnknownOperation(t *testing.T) {
	orchestrator, _, _ := testOrchestrator(t)
	_, err := orchestrator.Broadcast(t.Context(), "op-missing", "ignored")
	blockchainErr := requireBlockchainError(
		t, err, http.StatusBadRequest, ErrorCodeUnknown,
	)
	assert.Contains(t, blockchainErr.Message, "op-missing")
}

func TestBroadcastInvalidPayload(t *testing.T) {
	orchestrator, store, _ := testOrchestrator(t)
	require.NoError(t, store.UpsertBalance(
		"hot$a", "TEST", "seed", 5, 5000, 100,
	))
	_, err := orchestrator.Build(
		t.Context(),
		models.OperationTypeSingle,
		"op-1",
		"TEST",
		[]Leg{{FromAddress: "hot$a", ToAddress: "hot$b", Amount: "1000"}},
	)
	require.NoError(t, err)

	_, err = orchestrator.Broadcast(t.Context(), "op-1", "not-base64!!")
	requireBlockchainError(
		t, err, http.StatusBadRequest, ErrorCodeUnknown,
	)
}

func TestBroadcastSimulatedSettles(t *testing.T) {
	orchestrator, store, chainClient := testOrchestrator(t)
	require.NoError(t, store.UpsertBalance(
		"hot$a", "TEST", "seed", 5, 5000, 100,
	))
	_, err := orchestrator.Build(
		t.Context(),
		models.OperationTypeSingle,
		"op-1",
		"TEST",
		[]Leg{{FromAddress: "hot$a", ToAddress: "hot$b", Amount: "1000"}},
	)
	require.NoError(t, err)

	payload, err := EncodeBase64(chain.SignedTransaction{TxID: "sim-1"})
	require.NoError(t, err)
	txID, err := orchestrator.Broadcast(t.Context(), "op-1", payload)
	require.NoError(t, err)
	assert.Equal(t, "sim-1", txID)
	assert.Zero(t, chainClient.sendCalls)

	// Double entry: source debited, destination credited
	source, err := store.GetBalance("hot$a", "TEST")
	require.NoError(t, err)
	require.NotNil(t, source)
	assert.Equal(t, int64(4000), source.AmountInBaseUnit)

	destination, err := store.GetBalance("hot$b", "TEST")
	require.NoError(t, err)
	require.NotNil(t, destination)
	assert.Equal(t, int64(1000), destination.AmountInBaseUnit)

	expectedBlock := chainClient.irreversible*10 + 1
	status, err := orchestrator.Status(t.Context(), "op-1")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, models.OperationStateCompleted, status.State)
	assert.Equal(t, "sim-1", status.Hash)
	assert.Equal(t, expectedBlock, status.Block)
	assert.Equal(t, "1000", status.Amount)
	assert.Equal(t, "0", status.Fee)

	items, err := orchestrator.History(
		t.Context(), "from", "hot$a", 10, "",
	)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "sim-1", items[0].Hash)
	assert.Equal(t, "1000", items[0].Amount)
	assert.Equal(t, "hot$b", items[0].ToAddress)

	operationID, err := store.OperationIDByTxID("sim-1")
	require.NoError(t, err)
	assert.Equal(t, "op-1", operationID)

	// Send time, once set, is terminal
	_, err = orchestrator.Broadcast(t.Context(), "op-1", payload)
	requireBlockchainError(
		t, err, http.StatusConflict, ErrorCodeUnknown,
	)
}

func TestBroadcastRealRecordsSendOnly(t *testing.T) {
	orchestrator, store, chainClient := testOrchestrator(t)
	chainClient.balances["hot/TEST"] = decimal.RequireFromString("10")
	_, err := orchestrator.Build(
		t.Context(),
		models.OperationTypeSingle,
		"op-1",
		"TEST",
		[]Leg{{FromAddress: "hot", ToAddress: "cold", Amount: "1000"}},
	)
	require.NoError(t, err)

	payload, err := EncodeBase64(chain.SignedTransaction{
		Signatures: []string{"sig"},
	})
	require.NoError(t, err)
	txID, err := orchestrator.Broadcast(t.Context(), "op-1", payload)
	require.NoError(t, err)
	assert.Equal(t, "tx-real", txID)
	assert.Equal(t, 1, chainClient.sendCalls)

	// Settlement is the watcher's job, the ledger stays untouched
	balance, err := store.GetBalance("hot", "TEST")
	require.NoError(t, err)
	assert.Nil(t, balance)

	status, err := orchestrator.Status(t.Context(), "op-1")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, models.OperationStateInProgress, status.State)
	assert.Equal(t, "tx-real", status.Hash)
}

func TestBroadcastRejectedTransaction(t *testing.T) {
	orchestrator, store, chainClient := testOrchestrator(t)
	chainClient.balances["hot/TEST"] = decimal.RequireFromString("10")
	chainClient.sendErr = &chain.RPCError{
		Code:    chain.CodeTxExpired,
		Message: "transaction expired",
	}
	legs := []Leg{
		{FromAddress: "hot", ToAddress: "cold", Amount: "1000"},
	}
	_, err := orchestrator.Build(
		t.Context(),
		models.OperationTypeSingle,
		"op-1",
		"TEST",
		legs,
	)
	require.NoError(t, err)

	payload, err := EncodeBase64(chain.SignedTransaction{
		Signatures: []string{"sig"},
	})
	require.NoError(t, err)
	_, err = orchestrator.Broadcast(t.Context(), "op-1", payload)
	requireBlockchainError(
		t,
		err,
		http.StatusBadRequest,
		ErrorCodeBuildingShouldBeRepeated,
	)

	// The operation was never sent, so it can be rebuilt
	operation, err := store.GetOperation("op-1")
	require.NoError(t, err)
	require.NotNil(t, operation)
	assert.False(t, operation.IsSent())
	_, err = orchestrator.Build(
		t.Context(),
		models.OperationTypeSingle,
		"op-1",
		"TEST",
		legs,
	)
	require.NoError(t, err)
}

func TestBroadcastSendFailurePropagates(t *testing.T) {
	orchestrator, _, chainClient := testOrchestrator(t)
	chainClient.balances["hot/TEST"] = decimal.RequireFromString("10")
	chainClient.sendErr = errors.New("connection refused")
	_, err := orchestrator.Build(
		t.Context(),
		models.OperationTypeSingle,
		"op-1",
		"TEST",
		[]Leg{{FromAddress: "hot", ToAddress: "cold", Amount: "1000"}},
	)
	require.NoError(t, err)

	payload, err := EncodeBase64(chain.SignedTransaction{
		Signatures: []string{"sig"},
	})
	require.NoError(t, err)
	_, err = orchestrator.Broadcast(t.Context(), "op-1", payload)
	require.Error(t, err)
	var blockchainErr *BlockchainError
	assert.False(t, errors.As(err, &blockchainErr))
}

func TestBroadcastFailedOperation(t *testing.T) {
	orchestrator, store, _ := testOrchestrator(t)
	require.NoError(t, store.UpsertBalance(
		"hot$a", "TEST", "seed", 5, 5000, 100,
	))
	_, err := orchestrator.Build(
		t.Context(),
		models.OperationTypeSingle,
		"op-1",
		"TEST",
		[]Leg{{FromAddress: "hot$a", ToAddress: "hot$b", Amount: "1000"}},
	)
	require.NoError(t, err)

	failTime := time.Now().UTC()
	failError := "transaction expired"
	failCode := string(ErrorCodeBuildingShouldBeRepeated)
	require.NoError(t, store.UpdateOperation(
		"op-1",
		database.OperationUpdate{
			FailTime:  &failTime,
			Error:     &failError,
			ErrorCode: &failCode,
		},
	))

	payload, err := EncodeBase64(chain.SignedTransaction{TxID: "sim-1"})
	require.NoError(t, err)
	_, err = orchestrator.Broadcast(t.Context(), "op-1", payload)
	blockchainErr := requireBlockchainError(
		t,
		err,
		http.StatusBadRequest,
		ErrorCodeBuildingShouldBeRepeated,
	)
	assert.Equal(t, "transaction expired", blockchainErr.Message)
}

func TestStatusHiddenStates(t *testing.T) {
	orchestrator, store, _ := testOrchestrator(t)

	// Unknown operation
	status, err := orchestrator.Status(t.Context(), "op-missing")
	require.NoError(t, err)
	assert.Nil(t, status)

	// Built but never broadcast
	require.NoError(t, store.UpsertBalance(
		"hot$a", "TEST", "seed", 5, 5000, 100,
	))
	_, err = orchestrator.Build(
		t.Context(),
		models.OperationTypeSingle,
		"op-1",
		"TEST",
		[]Leg{{FromAddress: "hot$a", ToAddress: "hot$b", Amount: "1000"}},
	)
	require.NoError(t, err)
	status, err = orchestrator.Status(t.Context(), "op-1")
	require.NoError(t, err)
	assert.Nil(t, status)

	// Broadcast, then soft-deleted
	payload, err := EncodeBase64(chain.SignedTransaction{TxID: "sim-1"})
	require.NoError(t, err)
	_, err = orchestrator.Broadcast(t.Context(), "op-1", payload)
	require.NoError(t, err)
	status, err = orchestrator.Status(t.Context(), "op-1")
	require.NoError(t, err)
	require.NotNil(t, status)

	require.NoError(t, orchestrator.Delete(t.Context(), "op-1"))
	status, err = orchestrator.Status(t.Context(), "op-1")
	require.NoError(t, err)
	assert.Nil(t, status)

	// Deletion never unwinds settled entries
	balance, err := store.GetBalance("hot$b", "TEST")
	require.NoError(t, err)
	require.NotNil(t, balance)
	assert.Equal(t, int64(1000), balance.AmountInBaseUnit)
}

func TestBroadcastManyOutputsSettlesAllLegs(t *testing.T) {
	orchestrator, store, _ := testOrchestrator(t)
	require.NoError(t, store.UpsertBalance(
		"hot$a", "TEST", "seed", 10, 10000, 100,
	))
	_, err := orchestrator.Build(
		t.Context(),
		models.OperationTypeManyOutputs,
		"op-1",
		"TEST",
		[]Leg{
			{FromAddress: "hot$a", ToAddress: "hot$b", Amount: "1000"},
			{FromAddress: "hot$a", ToAddress: "hot$c", Amount: "2000"},
		},
	)
	require.NoError(t, err)

	payload, err := EncodeBase64(chain.SignedTransaction{TxID: "sim-1"})
	require.NoError(t, err)
	_, err = orchestrator.Broadcast(t.Context(), "op-1", payload)
	require.NoError(t, err)

	source, err := store.GetBalance("hot$a", "TEST")
	require.NoError(t, err)
	require.NotNil(t, source)
	assert.Equal(t, int64(7000), source.AmountInBaseUnit)

	for address, expected := range map[string]int64{
		"hot$b": 1000,
		"hot$c": 2000,
	} {
		balance, err := store.GetBalance(address, "TEST")
		require.NoError(t, err)
		require.NotNil(t, balance)
		assert.Equal(t, expected, balance.AmountInBaseUnit)
	}

	status, err := orchestrator.Status(t.Context(), "op-1")
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Len(t, status.Actions, 2)
	assert.Equal(t, "3000", status.Amount)
}

func TestBroadcastPublishesCompletionEvent(t *testing.T) {
	store, err := database.New(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close() //nolint:errcheck
	})
	require.NoError(t, store.UpsertAsset("TEST", "", "Test Token", 3))
	require.NoError(t, store.UpsertBalance(
		"hot$a", "TEST", "seed", 5, 5000, 100,
	))

	bus := event.NewEventBus(nil)
	t.Cleanup(bus.Stop)
	_, events := bus.Subscribe(event.OperationCompletedEventType)

	orchestrator := New(store, newFakeChain(), bus, nil)
	_, err = orchestrator.Build(
		t.Context(),
		models.OperationTypeSingle,
		"op-1",
		"TEST",
		[]Leg{{FromAddress: "hot$a", ToAddress: "hot$b", Amount: "1000"}},
	)
	require.NoError(t, err)

	payload, err := EncodeBase64(chain.SignedTransaction{TxID: "sim-1"})
	require.NoError(t, err)
	_, err = orchestrator.Broadcast(t.Context(), "op-1", payload)
	require.NoError(t, err)

	select {
	case evt := <-events:
		data, ok := evt.Data.(event.OperationEvent)
		require.True(t, ok)
		assert.Equal(t, "op-1", data.OperationID)
		assert.Equal(t, "sim-1", data.TxID)
		assert.Equal(t, int64(1000), data.AmountInBaseUnit)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for completion event")
	}
}
