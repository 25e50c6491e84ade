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

package transfer

import (
	"net/http"
)

// ErrorCode is the machine-readable error code carried by BadRequest
// responses. The enumeration is fixed by the integration contract.
type ErrorCode string

const (
	ErrorCodeUnknown                  ErrorCode = "unknown"
	ErrorCodeAmountTooSmall           ErrorCode = "amountIsTooSmall"
	ErrorCodeNotEnoughBalance         ErrorCode = "notEnoughBalance"
	ErrorCodeBuildingShouldBeRepeated ErrorCode = "buildingShouldBeRepeated"
)

// BlockchainError is a classified failure surfaced to the API caller
// with an HTTP status and an error code from the fixed enumeration.
type BlockchainError struct {
	Status  int
	Message string
	Code    ErrorCode
	Data    any
}

func (e *BlockchainError) Error() string {
	return e.Message
}

// NewBadRequest creates a 400 error with the unknown error code.
func NewBadRequest(message string) *BlockchainError {
	return &BlockchainError{
		Status:  http.StatusBadRequest,
		Message: message,
		Code:    ErrorCodeUnknown,
	}
}

// NewBadRequestWithCode creates a 400 error with an explicit error code.
func NewBadRequestWithCode(
	message string,
	code ErrorCode,
) *BlockchainError {
	return &BlockchainError{
		Status:  http.StatusBadRequest,
		Message: message,
		Code:    code,
	}
}

// NewConflict creates a 409 error for operations that already
// progressed past the requested transition.
func NewConflict(message string) *BlockchainError {
	return &BlockchainError{
		Status:  http.StatusConflict,
		Message: message,
		Code:    ErrorCodeUnknown,
	}
}

// NewNotImplemented creates a 501 error for intentionally unbuilt
// features.
func NewNotImplemented() *BlockchainError {
	return &BlockchainError{
		Status:  http.StatusNotImplemented,
		Message: "not implemented",
		Code:    ErrorCodeUnknown,
	}
}
