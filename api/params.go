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

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/kestrelhq/kestrel/database"
	"github.com/kestrelhq/kestrel/transfer"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders a failure as the contract's {errorMessage,
// errorCode} body. Classified errors keep their status and code;
// anything else becomes a 500 with the raw message.
func (a *Api) writeError(w http.ResponseWriter, err error) {
	var blockchainErr *transfer.BlockchainError
	if errors.As(err, &blockchainErr) {
		body := errorResponse{
			ErrorMessage: blockchainErr.Message,
		}
		if blockchainErr.Code != transfer.ErrorCodeUnknown {
			body.ErrorCode = string(blockchainErr.Code)
		}
		writeJSON(w, blockchainErr.Status, body)
		return
	}
	a.logger.Error("request failed", "error", err)
	writeJSON(
		w,
		http.StatusInternalServerError,
		errorResponse{ErrorMessage: err.Error()},
	)
}

func (a *Api) writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(
		w,
		http.StatusBadRequest,
		errorResponse{ErrorMessage: message},
	)
}

func decodeBody(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func isValidOperationID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// parseTake parses the mandatory positive-integer take parameter.
func parseTake(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("take")
	take, err := strconv.Atoi(raw)
	if err != nil || take <= 0 {
		return 0, fmt.Errorf("invalid take parameter [%s]", raw)
	}
	return take, nil
}

func parseContinuation(r *http.Request) (string, error) {
	continuation := r.URL.Query().Get("continuation")
	if !database.ValidateContinuation(continuation) {
		return "", fmt.Errorf(
			"invalid continuation parameter [%s]",
			continuation,
		)
	}
	return continuation, nil
}

func isValidHistoryCategory(category string) bool {
	return category == "from" || category == "to"
}
