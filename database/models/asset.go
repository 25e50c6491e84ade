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
	"github.com/shopspring/decimal"
)

// Asset describes a transferable asset known to the integration:
// its chain symbol, issuing address, display name and accuracy
// (number of decimal places between base units and display units).
type Asset struct {
	ID       string `gorm:"primaryKey;size:64"`
	Address  string `gorm:"size:320"`
	Name     string `gorm:"size:256"`
	Accuracy int32
}

func (Asset) TableName() string {
	return "asset"
}

func (a *Asset) PartitionKey() string {
	return a.ID
}

func (a *Asset) SortKey() string {
	return ""
}

// FromBaseUnit converts an integer base unit amount to display units.
func (a *Asset) FromBaseUnit(v int64) decimal.Decimal {
	return decimal.New(v, -a.Accuracy)
}

// ToBaseUnit converts a display unit amount to integer base units,
// truncating any precision beyond the asset accuracy.
func (a *Asset) ToBaseUnit(v decimal.Decimal) int64 {
	return v.Shift(a.Accuracy).IntPart()
}
