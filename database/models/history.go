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

package models

import (
	"fmt"
	"time"
)

// History address categories. Every transfer leg is written twice, once
// under each category partition, so both counterparties can page through
// their own history.
const (
	HistoryCategoryFrom = "from"
	HistoryCategoryTo   = "to"
)

// History is one transfer leg in the append-only history index. The
// order key sorts records by block height, then transaction id, then
// action id, which supports "everything after transaction X" range
// queries via the block height resolved from HistoryTx.
type History struct {
	Partition        string `gorm:"primaryKey;size:336"`
	OrderKey         string `gorm:"primaryKey;size:144"`
	FromAddress      string `gorm:"size:320"`
	ToAddress        string `gorm:"size:320"`
	AssetID          string `gorm:"size:64"`
	Amount           float64
	AmountInBaseUnit int64
	Block            int64
	BlockTime        time.Time
	TxID             string `gorm:"size:64"`
	ActionID         string `gorm:"size:8"`
	OperationID      string `gorm:"size:64"`
}

func (History) TableName() string {
	return "history"
}

func (h *History) PartitionKey() string {
	return h.Partition
}

func (h *History) SortKey() string {
	return h.OrderKey
}

// HistoryPartition builds the partition key for an address category.
func HistoryPartition(category, address string) string {
	return fmt.Sprintf("%s_%s", category, address)
}

// HistoryOrderKey builds the lexically ordered key for a history record.
// The block height is zero-padded so that string comparison matches
// numeric comparison.
func HistoryOrderKey(block int64, txID, actionID string) string {
	return fmt.Sprintf("%s_%s_%s", PaddedBlock(block), txID, actionID)
}

// PaddedBlock renders a block height as a fixed-width decimal string.
func PaddedBlock(block int64) string {
	return fmt.Sprintf("%012d", block)
}

// HistoryTx maps an external transaction id to the block height it was
// observed at, letting history queries resolve an "after hash" cursor
// into a position in the order key space.
type HistoryTx struct {
	TxID  string `gorm:"primaryKey;size:64"`
	Block int64
}

func (HistoryTx) TableName() string {
	return "history_tx"
}

func (t *HistoryTx) PartitionKey() string {
	return t.TxID
}

func (t *HistoryTx) SortKey() string {
	return ""
}
