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
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kestrelhq/kestrel/database/models"
)

const upsertBatchSize = 100

// insertOrMerge writes a full row, replacing any existing row with the
// same two-part key. Rows are keyed via the models.Keyed contract, so
// the conflict target is always the model's primary key columns.
func insertOrMerge[T models.Keyed](db *gorm.DB, row T) error {
	result := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(row)
	return result.Error
}

// insertOrMergeBatch is the batched variant of insertOrMerge. Rows are
// written in chunks to bound statement size, mirroring the batched
// upsert offered by the underlying table primitive.
func insertOrMergeBatch[T models.Keyed](db *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	result := db.Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(rows, upsertBatchSize)
	return result.Error
}
