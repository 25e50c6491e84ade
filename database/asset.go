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
	"strconv"

	"gorm.io/gorm"

	"github.com/kestrelhq/kestrel/database/models"
)

// AssetPage is one page of assets with the continuation token for the
// next page.
type AssetPage struct {
	Items        []models.Asset
	Continuation string
}

// UpsertAsset registers or updates an asset definition.
func (d *Store) UpsertAsset(
	assetID string,
	address string,
	name string,
	accuracy int32,
) error {
	asset := &models.Asset{
		ID:       assetID,
		Address:  address,
		Name:     name,
		Accuracy: accuracy,
	}
	if err := insertOrMerge(d.db, asset); err != nil {
		return fmt.Errorf("failed to upsert asset: %w", err)
	}
	return nil
}

// GetAsset returns an asset by id, or nil if unknown.
func (d *Store) GetAsset(assetID string) (*models.Asset, error) {
	ret := &models.Asset{}
	result := d.db.Where("id = ?", assetID).First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetAssets returns a page of registered assets ordered by id.
func (d *Store) GetAssets(
	take int,
	continuation string,
) (*AssetPage, error) {
	if !ValidateContinuation(continuation) {
		return nil, fmt.Errorf("invalid continuation %q", continuation)
	}
	skip := 0
	if continuation != "" {
		skip, _ = strconv.Atoi(continuation)
	}
	var items []models.Asset
	result := d.db.Model(&models.Asset{}).
		Order("id").
		Offset(skip).
		Limit(take).
		Find(&items)
	if result.Error != nil {
		return nil, result.Error
	}
	page := &AssetPage{Items: items}
	if len(items) >= take {
		page.Continuation = strconv.Itoa(skip + take)
	}
	return page, nil
}
