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

	"github.com/kestrelhq/kestrel/database/models"
)

// UpsertHistory records one transfer leg in the append-only history
// index: the txId to block height index record first, then two copies of
// the record, one under the "from" partition and one under "to".
func (d *Store) UpsertHistory(
	from string,
	to string,
	assetID string,
	amount float64,
	amountInBaseUnit int64,
	block int64,
	blockTime time.Time,
	txID string,
	actionID string,
	operationID string,
) error {
	txRow := &models.HistoryTx{
		TxID:  txID,
		Block: block,
	}
	if err := insertOrMerge(d.db, txRow); err != nil {
		return fmt.Errorf("failed to upsert history tx index: %w", err)
	}
	for _, category := range []string{
		models.HistoryCategoryFrom,
		models.HistoryCategoryTo,
	} {
		address := from
		if category == models.HistoryCategoryTo {
			address = to
		}
		row := &models.History{
			Partition:        models.HistoryPartition(category, address),
			OrderKey:         models.HistoryOrderKey(block, txID, actionID),
			FromAddress:      from,
			ToAddress:        to,
			AssetID:          assetID,
			Amount:           amount,
			AmountInBaseUnit: amountInBaseUnit,
			Block:            block,
			BlockTime:        blockTime,
			TxID:             txID,
			ActionID:         actionID,
			OperationID:      operationID,
		}
		if err := insertOrMerge(d.db, row); err != nil {
			return fmt.Errorf("failed to upsert history record: %w", err)
		}
	}
	return nil
}

// GetHistory returns up to take records from the category partition of
// an address, ordered by block/txId/actionId. When afterTxID resolves in
// the index the query ranges over everything ordered after that
// transaction's own records, so same-block transactions are not skipped;
// when it does not resolve the filter is simply omitted and the query
// returns from the beginning.
func (d *Store) GetHistory(
	category string,
	address string,
	take int,
	afterTxID string,
) ([]models.History, error) {
	query := d.db.
		Where("partition = ?", models.HistoryPartition(category, address))
	if afterTxID != "" {
		index := &models.HistoryTx{}
		result := d.db.Where("tx_id = ?", afterTxID).First(index)
		if result.Error != nil {
			if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return nil, result.Error
			}
		} else {
			// Action ids are decimal digits, so 0xff bounds every action
			// of the anchor transaction while staying below the next
			// transaction at the same height.
			query = query.Where(
				"order_key > ?",
				models.HistoryOrderKey(index.Block, afterTxID, "\xff"),
			)
		}
	}
	var ret []models.History
	result := query.Order("order_key").Limit(take).Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
