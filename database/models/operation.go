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
	"time"
)

// Operation types
const (
	OperationTypeSingle      = "Single"
	OperationTypeManyInputs  = "ManyInputs"
	OperationTypeManyOutputs = "ManyOutputs"
)

// Operation states derived from timestamps
const (
	OperationStateInProgress = "inProgress"
	OperationStateCompleted  = "completed"
	OperationStateFailed     = "failed"
)

// Operation is a client-identified request to move value, tracked through
// build, broadcast and settlement. There is exactly one non-deleted
// operation per id.
type Operation struct {
	ID               string `gorm:"primaryKey;size:64"`
	Type             string `gorm:"size:16"`
	AssetID          string `gorm:"size:64"`
	Amount           float64
	AmountInBaseUnit int64
	BuildTime        time.Time
	ExpiryTime       *time.Time
	SendTime         *time.Time
	TxID             string `gorm:"index;size:64"`
	CompletionTime   *time.Time
	BlockTime        *time.Time
	Block            int64
	FailTime         *time.Time
	Error            string
	ErrorCode        string `gorm:"size:32"`
	DeleteTime       *time.Time
}

func (Operation) TableName() string {
	return "operation"
}

func (o *Operation) PartitionKey() string {
	return o.ID
}

func (o *Operation) SortKey() string {
	return ""
}

func (o *Operation) IsSent() bool {
	return o.SendTime != nil
}

func (o *Operation) IsCompleted() bool {
	return o.CompletionTime != nil
}

func (o *Operation) IsFailed() bool {
	return o.FailTime != nil
}

func (o *Operation) IsDeleted() bool {
	return o.DeleteTime != nil
}

// State derives the externally visible operation state from the
// fail/completion timestamps.
func (o *Operation) State() string {
	switch {
	case o.IsFailed():
		return OperationStateFailed
	case o.IsCompleted():
		return OperationStateCompleted
	default:
		return OperationStateInProgress
	}
}

// Timestamp returns the most significant lifecycle timestamp: failure,
// then completion, then send time.
func (o *Operation) Timestamp() *time.Time {
	switch {
	case o.FailTime != nil:
		return o.FailTime
	case o.CompletionTime != nil:
		return o.CompletionTime
	default:
		return o.SendTime
	}
}

// OperationAction is one source to destination transfer leg within an
// operation. Actions are immutable once written and ordered by their
// zero-padded sequence index.
type OperationAction struct {
	OperationID      string `gorm:"primaryKey;size:64"`
	Sequence         string `gorm:"primaryKey;size:8"`
	FromAddress      string `gorm:"size:320"`
	ToAddress        string `gorm:"size:320"`
	Amount           float64
	AmountInBaseUnit int64
}

func (OperationAction) TableName() string {
	return "operation_action"
}

func (a *OperationAction) PartitionKey() string {
	return a.OperationID
}

func (a *OperationAction) SortKey() string {
	return a.Sequence
}

// OperationExpiry is a secondary index of operations by expiry time,
// used by out-of-band cleanup to find operations whose unsigned
// transaction has lapsed.
type OperationExpiry struct {
	ExpiryTime  string `gorm:"primaryKey;size:40"` // RFC 3339 UTC
	OperationID string `gorm:"primaryKey;size:64"`
}

func (OperationExpiry) TableName() string {
	return "operation_expiry"
}

func (e *OperationExpiry) PartitionKey() string {
	return e.ExpiryTime
}

func (e *OperationExpiry) SortKey() string {
	return e.OperationID
}

// OperationTx maps a broadcast transaction id back to the originating
// operation. It is the reconciliation key for out-of-band recovery when
// a crash lands between chain submission and state persistence.
type OperationTx struct {
	TxID        string `gorm:"primaryKey;size:64"`
	OperationID string `gorm:"size:64"`
}

func (OperationTx) TableName() string {
	return "operation_tx"
}

func (t *OperationTx) PartitionKey() string {
	return t.TxID
}

func (t *OperationTx) SortKey() string {
	return ""
}
