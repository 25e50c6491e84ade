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

package database

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kestrelhq/kestrel/database/models"
)

// OperationActionParams describes one transfer leg passed to
// UpsertOperation.
type OperationActionParams struct {
	FromAddress      string
	ToAddress        string
	Amount           float64
	AmountInBaseUnit int64
}

// OperationUpdate is a partial update of an operation record. Only
// non-nil fields are written; everything else is left untouched by the
// store's merge semantics.
type OperationUpdate struct {
	SendTime       *time.Time
	CompletionTime *time.Time
	FailTime       *time.Time
	DeleteTime     *time.Time
	TxID           *string
	BlockTime      *time.Time
	Block          *int64
	Error          *string
	ErrorCode      *string
}

// GetOperation returns an operation by id, or nil if not found.
func (d *Store) GetOperation(id string) (*models.Operation, error) {
	ret := &models.Operation{}
	result := d.db.Where("id = ?", id).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetOperationActions returns the legs of an operation in their
// client-supplied order.
func (d *Store) GetOperationActions(
	id string,
) ([]models.OperationAction, error) {
	var ret []models.OperationAction
	result := d.db.Where("operation_id = ?", id).
		Order("sequence").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// UpsertOperation writes an operation record, its ordered actions and,
// when an expiry is set, an expiry index record. Total amounts are
// computed as the sum of action amounts. The three writes are not
// atomic, but all of them are deterministic for the same input and safe
// to rewrite, so the caller retries on partial failure.
func (d *Store) UpsertOperation(
	id string,
	opType string,
	assetID string,
	actions []OperationActionParams,
	expiryTime *time.Time,
) error {
	var amount float64
	var amountInBaseUnit int64
	for _, action := range actions {
		amount += action.Amount
		amountInBaseUnit += action.AmountInBaseUnit
	}
	operation := &models.Operation{
		ID:               id,
		Type:             opType,
		AssetID:          assetID,
		Amount:           amount,
		AmountInBaseUnit: amountInBaseUnit,
		BuildTime:        time.Now().UTC(),
		ExpiryTime:       expiryTime,
	}
	// Merge only the build-time fields so that a rebuild never clobbers
	// lifecycle timestamps written by a concurrent broadcast
	result := d.db.Clauses(clause.OnConflict{
		DoUpdates: clause.AssignmentColumns([]string{
			"type",
			"asset_id",
			"amount",
			"amount_in_base_unit",
			"build_time",
			"expiry_time",
		}),
	}).Create(operation)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert operation: %w", result.Error)
	}
	actionRows := make([]*models.OperationAction, 0, len(actions))
	for i, action := range actions {
		actionRows = append(actionRows, &models.OperationAction{
			OperationID:      id,
			Sequence:         fmt.Sprintf("%04d", i),
			FromAddress:      action.FromAddress,
			ToAddress:        action.ToAddress,
			Amount:           action.Amount,
			AmountInBaseUnit: action.AmountInBaseUnit,
		})
	}
	if err := insertOrMergeBatch(d.db, actionRows); err != nil {
		return fmt.Errorf("failed to upsert operation actions: %w", err)
	}
	if expiryTime != nil {
		expiryRow := &models.OperationExpiry{
			ExpiryTime:  expiryTime.UTC().Format(time.RFC3339),
			OperationID: id,
		}
		if err := insertOrMerge(d.db, expiryRow); err != nil {
			return fmt.Errorf("failed to upsert expiry index: %w", err)
		}
	}
	return nil
}

// UpdateOperation performs a partial merge of the supplied fields into
// an existing operation record. When a transaction id is supplied the
// txId index record is written first, so that the operation can be
// recovered by transaction id even if the operation update is lost.
func (d *Store) UpdateOperation(
	id string,
	update OperationUpdate,
) error {
	if update.TxID != nil {
		txRow := &models.OperationTx{
			TxID:        *update.TxID,
			OperationID: id,
		}
		if err := insertOrMerge(d.db, txRow); err != nil {
			return fmt.Errorf("failed to upsert tx index: %w", err)
		}
	}
	fields := map[string]any{}
	if update.SendTime != nil {
		fields["send_time"] = *update.SendTime
	}
	if update.CompletionTime != nil {
		fields["completion_time"] = *update.CompletionTime
	}
	if update.FailTime != nil {
		fields["fail_time"] = *update.FailTime
	}
	if update.DeleteTime != nil {
		fields["delete_time"] = *update.DeleteTime
	}
	if update.TxID != nil {
		fields["tx_id"] = *update.TxID
	}
	if update.BlockTime != nil {
		fields["block_time"] = *update.BlockTime
	}
	if update.Block != nil {
		fields["block"] = *update.Block
	}
	if update.Error != nil {
		fields["error"] = *update.Error
	}
	if update.ErrorCode != nil {
		fields["error_code"] = *update.ErrorCode
	}
	if len(fields) == 0 {
		return nil
	}
	result := d.db.Model(&models.Operation{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update operation: %w", result.Error)
	}
	return nil
}

// OperationIDByTxID resolves a broadcast transaction id to the
// originating operation id, or empty string if unknown.
func (d *Store) OperationIDByTxID(txID string) (string, error) {
	ret := &models.OperationTx{}
	result := d.db.Where("tx_id = ?", txID).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", result.Error
	}
	return ret.OperationID, nil
}

// OperationIDsByExpiryTime returns ids of operations whose expiry time
// falls in the half-open interval (from, to].
func (d *Store) OperationIDsByExpiryTime(
	from, to time.Time,
) ([]string, error) {
	var rows []models.OperationExpiry
	result := d.db.
		Where(
			"expiry_time > ? AND expiry_time <= ?",
			from.UTC().Format(time.RFC3339),
			to.UTC().Format(time.RFC3339),
		).
		Order("expiry_time").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.OperationID)
	}
	return ids, nil
}
