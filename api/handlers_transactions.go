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
	"fmt"
	"net/http"

	"github.com/kestrelhq/kestrel/database/models"
	"github.com/kestrelhq/kestrel/transfer"
)

func (a *Api) handleBuildSingle(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req buildSingleRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeBadRequest(w, err.Error())
		return
	}
	legs := []transfer.Leg{
		{
			FromAddress: req.FromAddress,
			ToAddress:   req.ToAddress,
			Amount:      req.Amount,
		},
	}
	a.build(
		w,
		r,
		models.OperationTypeSingle,
		req.OperationID,
		req.AssetID,
		legs,
	)
}

func (a *Api) handleBuildManyInputs(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req buildManyInputsRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeBadRequest(w, err.Error())
		return
	}
	if len(req.Inputs) == 0 {
		a.writeBadRequest(w, "inputs must not be empty")
		return
	}
	legs := make([]transfer.Leg, 0, len(req.Inputs))
	for _, input := range req.Inputs {
		legs = append(legs, transfer.Leg{
			FromAddress: input.FromAddress,
			ToAddress:   req.ToAddress,
			Amount:      input.Amount,
		})
	}
	a.build(
		w,
		r,
		models.OperationTypeManyInputs,
		req.OperationID,
		req.AssetID,
		legs,
	)
}

func (a *Api) handleBuildManyOutputs(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req buildManyOutputsRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeBadRequest(w, err.Error())
		return
	}
	if len(req.Outputs) == 0 {
		a.writeBadRequest(w, "outputs must not be empty")
		return
	}
	legs := make([]transfer.Leg, 0, len(req.Outputs))
	for _, output := range req.Outputs {
		legs = append(legs, transfer.Leg{
			FromAddress: req.FromAddress,
			ToAddress:   output.ToAddress,
			Amount:      output.Amount,
		})
	}
	a.build(
		w,
		r,
		models.OperationTypeManyOutputs,
		req.OperationID,
		req.AssetID,
		legs,
	)
}

// build validates the shared build parameters and runs the orchestrator.
func (a *Api) build(
	w http.ResponseWriter,
	r *http.Request,
	opType string,
	operationID string,
	assetID string,
	legs []transfer.Leg,
) {
	if !isValidOperationID(operationID) {
		a.writeBadRequest(
			w,
			fmt.Sprintf("invalid operation id [%s]", operationID),
		)
		return
	}
	for _, leg := range legs {
		for _, address := range []string{
			leg.FromAddress,
			leg.ToAddress,
		} {
			if !transfer.IsValidAddress(address) {
				a.writeBadRequest(
					w,
					fmt.Sprintf("invalid address [%s]", address),
				)
				return
			}
		}
	}
	transactionContext, err := a.transfers.Build(
		r.Context(),
		opType,
		operationID,
		assetID,
		legs,
	)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(
		w,
		http.StatusOK,
		buildResponse{TransactionContext: transactionContext},
	)
}

// handleRebuild always reports not implemented. Rebuilding is flagged
// off in the capabilities response.
func (a *Api) handleRebuild(
	w http.ResponseWriter,
	r *http.Request,
) {
	a.writeError(w, transfer.NewNotImplemented())
}

func (a *Api) handleBroadcast(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req broadcastRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeBadRequest(w, err.Error())
		return
	}
	if !isValidOperationID(req.OperationID) {
		a.writeBadRequest(
			w,
			fmt.Sprintf("invalid operation id [%s]", req.OperationID),
		)
		return
	}
	if req.SignedTransaction == "" {
		a.writeBadRequest(w, "signedTransaction is required")
		return
	}
	txID, err := a.transfers.Broadcast(
		r.Context(),
		req.OperationID,
		req.SignedTransaction,
	)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, broadcastResponse{TxID: txID})
}

func (a *Api) handleGetSingle(
	w http.ResponseWriter,
	r *http.Request,
) {
	status := a.operationStatus(w, r)
	if status == nil {
		return
	}
	writeJSON(w, http.StatusOK, operationStateResponse{
		OperationID: status.OperationID,
		State:       status.State,
		Timestamp:   status.Timestamp,
		Amount:      status.Amount,
		Fee:         status.Fee,
		Hash:        status.Hash,
		Block:       status.Block,
		Error:       status.Error,
		ErrorCode:   status.ErrorCode,
	})
}

func (a *Api) handleGetManyInputs(
	w http.ResponseWriter,
	r *http.Request,
) {
	status := a.operationStatus(w, r)
	if status == nil {
		return
	}
	inputs := make([]buildInput, 0, len(status.Actions))
	for _, action := range status.Actions {
		inputs = append(inputs, buildInput{
			FromAddress: action.FromAddress,
			Amount: fmt.Sprintf(
				"%d",
				action.AmountInBaseUnit,
			),
		})
	}
	writeJSON(w, http.StatusOK, operationStateResponse{
		OperationID: status.OperationID,
		State:       status.State,
		Timestamp:   status.Timestamp,
		Fee:         status.Fee,
		Hash:        status.Hash,
		Block:       status.Block,
		Error:       status.Error,
		ErrorCode:   status.ErrorCode,
		Inputs:      inputs,
	})
}

func (a *Api) handleGetManyOutputs(
	w http.ResponseWriter,
	r *http.Request,
) {
	status := a.operationStatus(w, r)
	if status == nil {
		return
	}
	outputs := make([]buildOutput, 0, len(status.Actions))
	for _, action := range status.Actions {
		outputs = append(outputs, buildOutput{
			ToAddress: action.ToAddress,
			Amount: fmt.Sprintf(
				"%d",
				action.AmountInBaseUnit,
			),
		})
	}
	writeJSON(w, http.StatusOK, operationStateResponse{
		OperationID: status.OperationID,
		State:       status.State,
		Timestamp:   status.Timestamp,
		Fee:         status.Fee,
		Hash:        status.Hash,
		Block:       status.Block,
		Error:       status.Error,
		ErrorCode:   status.ErrorCode,
		Outputs:     outputs,
	})
}

// operationStatus resolves the path operation id to a visible status,
// writing the response itself when there is nothing to show. Unknown,
// unsent and deleted operations all surface as 204.
func (a *Api) operationStatus(
	w http.ResponseWriter,
	r *http.Request,
) *transfer.Status {
	operationID := r.PathValue("operationId")
	if !isValidOperationID(operationID) {
		a.writeBadRequest(
			w,
			fmt.Sprintf("invalid operation id [%s]", operationID),
		)
		return nil
	}
	status, err := a.transfers.Status(r.Context(), operationID)
	if err != nil {
		a.writeError(w, err)
		return nil
	}
	if status == nil {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	return status
}

func (a *Api) handleDeleteOperation(
	w http.ResponseWriter,
	r *http.Request,
) {
	operationID := r.PathValue("operationId")
	if !isValidOperationID(operationID) {
		a.writeBadRequest(
			w,
			fmt.Sprintf("invalid operation id [%s]", operationID),
		)
		return
	}
	operation, err := a.store.GetOperation(operationID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if operation == nil || operation.IsDeleted() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := a.transfers.Delete(r.Context(), operationID); err != nil {
		a.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (a *Api) handleHistory(
	w http.ResponseWriter,
	r *http.Request,
) {
	category := r.PathValue("category")
	address := r.PathValue("address")
	if !isValidHistoryCategory(category) {
		a.writeBadRequest(
			w,
			fmt.Sprintf("invalid history category [%s]", category),
		)
		return
	}
	if !transfer.IsValidAddress(address) {
		a.writeBadRequest(
			w,
			fmt.Sprintf("invalid address [%s]", address),
		)
		return
	}
	take, err := parseTake(r)
	if err != nil {
		a.writeBadRequest(w, err.Error())
		return
	}
	afterHash := r.URL.Query().Get("afterHash")
	items, err := a.transfers.History(
		r.Context(),
		category,
		address,
		take,
		afterHash,
	)
	if err != nil {
		a.writeError(w, err)
		return
	}
	ret := make([]historyItemResponse, 0, len(items))
	for _, item := range items {
		ret = append(ret, historyItemResponse{
			Timestamp:   item.Timestamp,
			FromAddress: item.FromAddress,
			ToAddress:   item.ToAddress,
			AssetID:     item.AssetID,
			Amount:      item.Amount,
			Hash:        item.Hash,
		})
	}
	writeJSON(w, http.StatusOK, ret)
}

// handleHistoryObservation acknowledges history observation requests.
// Every settled transfer is recorded regardless of observation, so the
// call is a validated no-op.
func (a *Api) handleHistoryObservation(
	w http.ResponseWriter,
	r *http.Request,
) {
	category := r.PathValue("category")
	address := r.PathValue("address")
	if !isValidHistoryCategory(category) {
		a.writeBadRequest(
			w,
			fmt.Sprintf("invalid history category [%s]", category),
		)
		return
	}
	if !transfer.IsValidAddress(address) {
		a.writeBadRequest(
			w,
			fmt.Sprintf("invalid address [%s]", address),
		)
		return
	}
	w.WriteHeader(http.StatusOK)
}
