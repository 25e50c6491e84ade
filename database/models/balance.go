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
)

// BalanceEntry is one immutable, signed ledger entry attributed to a
// cause (operation id or external transaction id). The entry id is the
// address/asset/cause triple, which makes recording a balance change
// idempotent: replaying the same cause overwrites the same row instead
// of adding a second one.
type BalanceEntry struct {
	ID               string `gorm:"primaryKey;size:768"`
	Address          string `gorm:"index;size:320"`
	AssetID          string `gorm:"index;size:64"`
	CauseID          string `gorm:"size:64"`
	Amount           float64
	AmountInBaseUnit int64
	Block            int64
	IsObservable     bool `gorm:"index"`
	IsCancelled      bool
}

func (BalanceEntry) TableName() string {
	return "balance_entry"
}

func (b *BalanceEntry) PartitionKey() string {
	return b.ID
}

func (b *BalanceEntry) SortKey() string {
	return ""
}

// BalanceEntryID builds the composite entry id for an
// address/asset/cause triple.
func BalanceEntryID(address, assetID, causeID string) string {
	return fmt.Sprintf("%s_%s_%s", address, assetID, causeID)
}

// BalanceAggregate is the materialized view of all non-cancelled entries
// for one address/asset pair: summed amounts and the highest observed
// block. It is a query result shape, not a table.
type BalanceAggregate struct {
	Address          string
	AssetID          string
	Amount           float64
	AmountInBaseUnit int64
	Block            int64
}

// ObservableAddress marks an address whose balances are surfaced by the
// paged balance query.
type ObservableAddress struct {
	Address string `gorm:"primaryKey;size:320"`
}

func (ObservableAddress) TableName() string {
	return "observable_address"
}

func (o *ObservableAddress) PartitionKey() string {
	return o.Address
}

func (o *ObservableAddress) SortKey() string {
	return ""
}
