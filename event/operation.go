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

package event

const (
	// OperationSentEventType is emitted when a signed transaction has
	// been handed to the chain
	OperationSentEventType = EventType("operation.sent")
	// OperationCompletedEventType is emitted when an operation settled
	// in the internal ledger
	OperationCompletedEventType = EventType("operation.completed")
)

// OperationEvent carries the operation lifecycle transition details
type OperationEvent struct {
	OperationID      string
	AssetID          string
	TxID             string
	AmountInBaseUnit int64
	Block            int64
}
