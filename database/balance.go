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
	"regexp"
	"strconv"

	"gorm.io/gorm"

	"github.com/kestrelhq/kestrel/database/models"
)

var continuationRegexp = regexp.MustCompile(`^\d+$`)

// BalancePage is one page of balance aggregates together with the
// continuation token for the next page. An empty continuation means the
// cursor is exhausted.
type BalancePage struct {
	Items        []models.BalanceAggregate
	Continuation string
}

// UpsertBalance records a signed balance change for an address/asset
// pair attributed to a cause (operation id or external transaction id).
// The entry id is the address/asset/cause triple, so replaying the same
// cause is idempotent under aggregation.
func (d *Store) UpsertBalance(
	address string,
	assetID string,
	causeID string,
	amount float64,
	amountInBaseUnit int64,
	block int64,
) error {
	isObservable, err := d.IsObservable(address)
	if err != nil {
		return err
	}
	entry := &models.BalanceEntry{
		ID:               models.BalanceEntryID(address, assetID, causeID),
		Address:          address,
		AssetID:          assetID,
		CauseID:          causeID,
		Amount:           amount,
		AmountInBaseUnit: amountInBaseUnit,
		Block:            block,
		IsObservable:     isObservable,
	}
	if err := insertOrMerge(d.db, entry); err != nil {
		return fmt.Errorf("failed to upsert balance entry: %w", err)
	}
	return nil
}

// CancelBalance toggles the cancellation flag on an existing entry,
// removing it from (or restoring it to) the aggregate view. The entry
// itself is never deleted.
func (d *Store) CancelBalance(
	address string,
	assetID string,
	causeID string,
	isCancelled bool,
) error {
	result := d.db.Model(&models.BalanceEntry{}).
		Where("id = ?", models.BalanceEntryID(address, assetID, causeID)).
		Update("is_cancelled", isCancelled)
	return result.Error
}

// GetBalance returns the aggregate balance for an address/asset pair:
// the cancellation-filtered sum of all entries with the highest observed
// block. Returns nil when no entries exist.
func (d *Store) GetBalance(
	address string,
	assetID string,
) (*models.BalanceAggregate, error) {
	ret := &models.BalanceAggregate{}
	result := d.db.Model(&models.BalanceEntry{}).
		Select(
			"address",
			"asset_id",
			"SUM(amount) AS amount",
			"SUM(amount_in_base_unit) AS amount_in_base_unit",
			"MAX(block) AS block",
		).
		Where(
			"address = ? AND asset_id = ? AND is_cancelled = ?",
			address,
			assetID,
			false,
		).
		Group("address, asset_id").
		First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetBalances returns a page of balance aggregates for observable
// addresses. The continuation token is a numeric offset into the
// aggregate ordering; zero and negative aggregates are NOT filtered here
// because the aggregation cannot combine a group filter with the
// observability match in one pass - callers discard them and pull more
// pages until satisfied.
func (d *Store) GetBalances(
	take int,
	continuation string,
) (*BalancePage, error) {
	if !ValidateContinuation(continuation) {
		return nil, fmt.Errorf("invalid continuation %q", continuation)
	}
	skip := 0
	if continuation != "" {
		skip, _ = strconv.Atoi(continuation)
	}
	var items []models.BalanceAggregate
	result := d.db.Model(&models.BalanceEntry{}).
		Select(
			"address",
			"asset_id",
			"SUM(amount) AS amount",
			"SUM(amount_in_base_unit) AS amount_in_base_unit",
			"MAX(block) AS block",
		).
		Where("is_cancelled = ? AND is_observable = ?", false, true).
		Group("address, asset_id").
		Order("address, asset_id").
		Offset(skip).
		Limit(take).
		Scan(&items)
	if result.Error != nil {
		return nil, result.Error
	}
	page := &BalancePage{Items: items}
	if len(items) >= take {
		page.Continuation = strconv.Itoa(skip + take)
	}
	return page, nil
}

// ObserveAddress marks an address as observable and retroactively flags
// all of its existing entries.
func (d *Store) ObserveAddress(address string) error {
	if err := insertOrMerge(
		d.db,
		&models.ObservableAddress{Address: address},
	); err != nil {
		return fmt.Errorf("failed to observe address: %w", err)
	}
	result := d.db.Model(&models.BalanceEntry{}).
		Where("address = ?", address).
		Update("is_observable", true)
	return result.Error
}

// RemoveAddress clears the observability mark from an address and all of
// its existing entries.
func (d *Store) RemoveAddress(address string) error {
	result := d.db.
		Where("address = ?", address).
		Delete(&models.ObservableAddress{})
	if result.Error != nil {
		return result.Error
	}
	result = d.db.Model(&models.BalanceEntry{}).
		Where("address = ?", address).
		Update("is_observable", false)
	return result.Error
}

// IsObservable reports whether an address is marked observable.
func (d *Store) IsObservable(address string) (bool, error) {
	var count int64
	result := d.db.Model(&models.ObservableAddress{}).
		Where("address = ?", address).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// ValidateContinuation reports whether a continuation token is usable by
// GetBalances. The empty token is valid and means "from the beginning".
func ValidateContinuation(continuation string) bool {
	return continuation == "" || continuationRegexp.MatchString(continuation)
}
