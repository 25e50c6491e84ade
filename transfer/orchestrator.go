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
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kestrelhq/kestrel/chain"
	"github.com/kestrelhq/kestrel/database"
	"github.com/kestrelhq/kestrel/database/models"
	"github.com/kestrelhq/kestrel/event"
)

// ChainClient is the chain gateway surface the orchestrator depends on.
type ChainClient interface {
	Config(ctx context.Context) (*chain.Config, error)
	LastIrreversibleBlock(ctx context.Context) (int64, error)
	Balance(
		ctx context.Context,
		account string,
		assetID string,
	) (decimal.Decimal, error)
	PrepareTransaction(
		ctx context.Context,
		operations []chain.TransferOperation,
	) (*chain.Transaction, error)
	Send(
		ctx context.Context,
		tx *chain.SignedTransaction,
	) (string, error)
}

// Leg is one source to destination transfer within an operation, with
// the amount as a base unit integer string.
type Leg struct {
	FromAddress string
	ToAddress   string
	Amount      string
}

// Status is the externally visible view of a broadcast operation.
type Status struct {
	OperationID string
	State       string
	Timestamp   time.Time
	Amount      string
	Fee         string
	Hash        string
	Block       int64
	Error       string
	ErrorCode   string
	Actions     []models.OperationAction
}

// HistoryItem is one settled transfer leg as surfaced by the history
// queries.
type HistoryItem struct {
	Timestamp   time.Time
	FromAddress string
	ToAddress   string
	AssetID     string
	Amount      string
	Hash        string
}

// Orchestrator composes the repositories and the chain client to drive
// the operation lifecycle: build, broadcast, query, delete. Legs are
// processed sequentially within one call to keep double-entry ordering
// deterministic.
type Orchestrator struct {
	logger *slog.Logger
	store  *database.Store
	chain  ChainClient
	events *event.EventBus
}

// New creates a transfer orchestrator. The event bus may be nil when
// nothing consumes lifecycle events.
func New(
	store *database.Store,
	chainClient ChainClient,
	events *event.EventBus,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	return &Orchestrator{
		logger: logger.With("component", "transfer"),
		store:  store,
		chain:  chainClient,
		events: events,
	}
}

func (o *Orchestrator) publish(
	eventType event.EventType,
	data event.OperationEvent,
) {
	if o.events == nil {
		return
	}
	o.events.Publish(eventType, event.NewEvent(eventType, data))
}

// Build validates the legs of an operation, reserves nothing, and
// returns the opaque transaction context for the external signer.
// Simulated legs are checked against the internal ledger; real legs are
// checked against the externally observed balance and bundled into an
// unsigned chain transaction. Build never charges the ledger.
func (o *Orchestrator) Build(
	ctx context.Context,
	opType string,
	operationID string,
	assetID string,
	legs []Leg,
) (string, error) {
	operation, err := o.store.GetOperation(operationID)
	if err != nil {
		return "", fmt.Errorf("failed to load operation: %w", err)
	}
	if operation != nil && operation.IsSent() {
		return "", NewConflict(fmt.Sprintf(
			"operation [%s] already %s",
			operationID,
			operation.State(),
		))
	}
	asset, err := o.store.GetAsset(assetID)
	if err != nil {
		return "", fmt.Errorf("failed to load asset: %w", err)
	}
	if asset == nil {
		return "", NewBadRequest(
			fmt.Sprintf("unknown asset [%s]", assetID),
		)
	}
	actions := make([]database.OperationActionParams, 0, len(legs))
	var txOperations []chain.TransferOperation
	for _, leg := range legs {
		amountInBaseUnit, err := strconv.ParseInt(leg.Amount, 10, 64)
		if err != nil {
			return "", NewBadRequest(
				fmt.Sprintf("invalid amount [%s]", leg.Amount),
			)
		}
		if amountInBaseUnit <= 0 {
			return "", NewBadRequestWithCode(
				fmt.Sprintf("invalid amount [%s]", leg.Amount),
				ErrorCodeAmountTooSmall,
			)
		}
		amount := asset.FromBaseUnit(amountInBaseUnit)
		actions = append(actions, database.OperationActionParams{
			FromAddress:      leg.FromAddress,
			ToAddress:        leg.ToAddress,
			Amount:           amount.InexactFloat64(),
			AmountInBaseUnit: amountInBaseUnit,
		})
		var balanceInBaseUnit int64
		if IsSimulated(leg.FromAddress, leg.ToAddress) {
			balance, err := o.store.GetBalance(leg.FromAddress, assetID)
			if err != nil {
				return "", fmt.Errorf("failed to load balance: %w", err)
			}
			if balance != nil {
				balanceInBaseUnit = balance.AmountInBaseUnit
			}
		} else {
			chainBalance, err := o.chain.Balance(
				ctx,
				Account(leg.FromAddress),
				assetID,
			)
			if err != nil {
				return "", fmt.Errorf(
					"failed to read chain balance: %w",
					err,
				)
			}
			balanceInBaseUnit = asset.ToBaseUnit(chainBalance)
			txOperations = append(
				txOperations,
				chain.TransferOperation{
					Kind: "transfer",
					Params: chain.TransferParams{
						From: Account(leg.FromAddress),
						To:   Account(leg.ToAddress),
						Amount: fmt.Sprintf(
							"%s %s",
							amount.StringFixed(asset.Accuracy),
							assetID,
						),
						Memo: AddressContext(leg.ToAddress),
					},
				},
			)
		}
		if balanceInBaseUnit < amountInBaseUnit {
			return "", NewBadRequestWithCode(
				fmt.Sprintf(
					"not enough balance on address [%s]",
					leg.FromAddress,
				),
				ErrorCodeNotEnoughBalance,
			)
		}
	}
	config, err := o.chain.Config(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read chain config: %w", err)
	}
	var tx any = false
	var expiryTime *time.Time
	if len(txOperations) > 0 {
		prepared, err := o.chain.PrepareTransaction(ctx, txOperations)
		if err != nil {
			return "", fmt.Errorf(
				"failed to prepare transaction: %w",
				err,
			)
		}
		tx = prepared
		expiry, err := chain.ParseExpiration(prepared.Expiration)
		if err != nil {
			return "", fmt.Errorf(
				"malformed transaction expiration %q: %w",
				prepared.Expiration,
				err,
			)
		}
		expiryTime = &expiry
	}
	if err := o.store.UpsertOperation(
		operationID,
		opType,
		assetID,
		actions,
		expiryTime,
	); err != nil {
		return "", fmt.Errorf("failed to persist operation: %w", err)
	}
	return EncodeBase64(TransactionContext{Config: config, Tx: tx})
}

// Broadcast accepts an externally signed payload for a built operation.
// Fully simulated payloads (pre-computed transaction id, nothing to
// sign) settle immediately in the internal ledger; real payloads are
// submitted to the chain and settle later via an external watcher. Send
// time, once set, is terminal: re-broadcast attempts are rejected.
func (o *Orchestrator) Broadcast(
	ctx context.Context,
	operationID string,
	signedTransaction string,
) (string, error) {
	operation, err := o.store.GetOperation(operationID)
	if err != nil {
		return "", fmt.Errorf("failed to load operation: %w", err)
	}
	if operation == nil {
		return "", NewBadRequest(
			fmt.Sprintf("unknown operation [%s]", operationID),
		)
	}
	if operation.IsFailed() {
		// failure may have been recorded by the settlement watcher in
		// the window between chain submission and state persistence
		return "", &BlockchainError{
			Status:  400,
			Message: operation.Error,
			Code:    ErrorCode(operation.ErrorCode),
		}
	}
	if operation.IsSent() || operation.IsCompleted() {
		return "", NewConflict(fmt.Sprintf(
			"operation [%s] already %s",
			operationID,
			operation.State(),
		))
	}
	var tx chain.SignedTransaction
	if err := DecodeBase64(signedTransaction, &tx); err != nil {
		return "", NewBadRequest("invalid signed transaction payload")
	}
	sendTime := time.Now().UTC()
	block := operation.Block
	if block == 0 {
		irreversible, err := o.chain.LastIrreversibleBlock(ctx)
		if err != nil {
			return "", fmt.Errorf(
				"failed to read chain height: %w",
				err,
			)
		}
		block = irreversible*10 + 1
	}
	blockTime := sendTime
	if operation.BlockTime != nil {
		blockTime = *operation.BlockTime
	}
	completionTime := sendTime
	if operation.CompletionTime != nil {
		completionTime = *operation.CompletionTime
	}

	if tx.TxID != "" {
		return o.settleSimulated(
			operation,
			tx.TxID,
			block,
			sendTime,
			blockTime,
			completionTime,
		)
	}

	// The txId is assigned by the node when it serializes the signed
	// payload, so it cannot be indexed before submission; a crash
	// between Send and the update below leaves the operation without
	// its txId reconciliation key until resubmission.
	txID, err := o.chain.Send(ctx, &tx)
	if err != nil {
		if chain.IsRejected(err) {
			return "", &BlockchainError{
				Status:  400,
				Message: "transaction rejected",
				Code:    ErrorCodeBuildingShouldBeRepeated,
				Data:    err.Error(),
			}
		}
		return "", err
	}
	// balances and history for real legs are populated by the
	// settlement watcher once the transaction is irreversible
	if err := o.store.UpdateOperation(
		operationID,
		database.OperationUpdate{
			TxID:     &txID,
			SendTime: &sendTime,
		},
	); err != nil {
		return "", fmt.Errorf("failed to record send: %w", err)
	}
	o.publish(event.OperationSentEventType, event.OperationEvent{
		OperationID:      operationID,
		AssetID:          operation.AssetID,
		TxID:             txID,
		AmountInBaseUnit: operation.AmountInBaseUnit,
	})
	return txID, nil
}

// settleSimulated settles a fully simulated operation entirely in the
// internal ledger: for every leg a debit entry on the source and a
// credit entry on the destination (cause id = operation id), then the
// history records, then the operation is marked sent and completed.
func (o *Orchestrator) settleSimulated(
	operation *models.Operation,
	txID string,
	block int64,
	sendTime time.Time,
	blockTime time.Time,
	completionTime time.Time,
) (string, error) {
	// connect operation to transaction before settling so the operation
	// is recoverable by transaction id if a write below fails
	if err := o.store.UpdateOperation(
		operation.ID,
		database.OperationUpdate{TxID: &txID},
	); err != nil {
		return "", fmt.Errorf("failed to link transaction: %w", err)
	}
	actions, err := o.store.GetOperationActions(operation.ID)
	if err != nil {
		return "", fmt.Errorf("failed to load actions: %w", err)
	}
	// One ledger entry per address keyed by the operation id. Legs
	// sharing an address are combined first, otherwise the later entry
	// would overwrite the earlier one under the same cause.
	type balanceChange struct {
		amount           float64
		amountInBaseUnit int64
	}
	var order []string
	changes := make(map[string]*balanceChange)
	apply := func(address string, amount float64, amountInBaseUnit int64) {
		change, ok := changes[address]
		if !ok {
			change = &balanceChange{}
			changes[address] = change
			order = append(order, address)
		}
		change.amount += amount
		change.amountInBaseUnit += amountInBaseUnit
	}
	for _, action := range actions {
		apply(
			action.FromAddress,
			-action.Amount,
			-action.AmountInBaseUnit,
		)
		apply(
			action.ToAddress,
			action.Amount,
			action.AmountInBaseUnit,
		)
	}
	for _, address := range order {
		change := changes[address]
		if err := o.store.UpsertBalance(
			address,
			operation.AssetID,
			operation.ID,
			change.amount,
			change.amountInBaseUnit,
			block,
		); err != nil {
			return "", fmt.Errorf(
				"failed to record balance change: %w",
				err,
			)
		}
		o.logger.Info(
			"balance change recorded",
			"address", address,
			"assetId", operation.AssetID,
			"amountInBaseUnit", change.amountInBaseUnit,
			"txId", txID,
		)
	}
	for _, action := range actions {
		if err := o.store.UpsertHistory(
			action.FromAddress,
			action.ToAddress,
			operation.AssetID,
			action.Amount,
			action.AmountInBaseUnit,
			block,
			blockTime,
			txID,
			action.Sequence,
			operation.ID,
		); err != nil {
			return "", fmt.Errorf("failed to record history: %w", err)
		}
	}
	if err := o.store.UpdateOperation(
		operation.ID,
		database.OperationUpdate{
			SendTime:       &sendTime,
			CompletionTime: &completionTime,
			BlockTime:      &blockTime,
			Block:          &block,
		},
	); err != nil {
		return "", fmt.Errorf("failed to complete operation: %w", err)
	}
	o.publish(event.OperationCompletedEventType, event.OperationEvent{
		OperationID:      operation.ID,
		AssetID:          operation.AssetID,
		TxID:             txID,
		AmountInBaseUnit: operation.AmountInBaseUnit,
		Block:            block,
	})
	return txID, nil
}

// Status returns the visible state of a broadcast operation, or nil if
// the operation is unknown, not yet sent, or soft-deleted.
func (o *Orchestrator) Status(
	_ context.Context,
	operationID string,
) (*Status, error) {
	operation, err := o.store.GetOperation(operationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load operation: %w", err)
	}
	if operation == nil || !operation.IsSent() || operation.IsDeleted() {
		return nil, nil
	}
	actions, err := o.store.GetOperationActions(operationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load actions: %w", err)
	}
	var timestamp time.Time
	if ts := operation.Timestamp(); ts != nil {
		timestamp = *ts
	}
	return &Status{
		OperationID: operationID,
		State:       operation.State(),
		Timestamp:   timestamp,
		Amount: strconv.FormatInt(
			operation.AmountInBaseUnit,
			10,
		),
		Fee:       "0",
		Hash:      operation.TxID,
		Block:     operation.Block,
		Error:     operation.Error,
		ErrorCode: operation.ErrorCode,
		Actions:   actions,
	}, nil
}

// Delete soft-deletes an operation by recording the delete time. History
// and balance entries are never removed.
func (o *Orchestrator) Delete(
	_ context.Context,
	operationID string,
) error {
	now := time.Now().UTC()
	return o.store.UpdateOperation(
		operationID,
		database.OperationUpdate{DeleteTime: &now},
	)
}

// History returns up to take settled transfer legs for an address in
// the given category (from/to), starting after the transaction
// identified by afterHash when supplied.
func (o *Orchestrator) History(
	_ context.Context,
	category string,
	address string,
	take int,
	afterHash string,
) ([]HistoryItem, error) {
	records, err := o.store.GetHistory(category, address, take, afterHash)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	items := make([]HistoryItem, 0, len(records))
	for _, record := range records {
		items = append(items, HistoryItem{
			Timestamp:   record.BlockTime,
			FromAddress: record.FromAddress,
			ToAddress:   record.ToAddress,
			AssetID:     record.AssetID,
			Amount: strconv.FormatInt(
				record.AmountInBaseUnit,
				10,
			),
			Hash: record.TxID,
		})
	}
	return items, nil
}
