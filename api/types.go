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
	"time"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	ErrorMessage string `json:"errorMessage"`
	ErrorCode    string `json:"errorCode,omitempty"`
}

type buildSingleRequest struct {
	OperationID string `json:"operationId"`
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
	AssetID     string `json:"assetId"`
	Amount      string `json:"amount"`
	IncludeFee  bool   `json:"includeFee"`
}

type buildInput struct {
	FromAddress string `json:"fromAddress"`
	Amount      string `json:"amount"`
}

type buildManyInputsRequest struct {
	OperationID string       `json:"operationId"`
	Inputs      []buildInput `json:"inputs"`
	ToAddress   string       `json:"toAddress"`
	AssetID     string       `json:"assetId"`
}

type buildOutput struct {
	ToAddress string `json:"toAddress"`
	Amount    string `json:"amount"`
}

type buildManyOutputsRequest struct {
	OperationID string        `json:"operationId"`
	FromAddress string        `json:"fromAddress"`
	Outputs     []buildOutput `json:"outputs"`
	AssetID     string        `json:"assetId"`
}

type buildResponse struct {
	TransactionContext string `json:"transactionContext"`
}

type broadcastRequest struct {
	OperationID       string `json:"operationId"`
	SignedTransaction string `json:"signedTransaction"`
}

type broadcastResponse struct {
	TxID string `json:"txId"`
}

type operationStateResponse struct {
	OperationID string        `json:"operationId"`
	State       string        `json:"state"`
	Timestamp   time.Time     `json:"timestamp"`
	Amount      string        `json:"amount,omitempty"`
	Fee         string        `json:"fee"`
	Hash        string        `json:"hash,omitempty"`
	Block       int64         `json:"block,omitempty"`
	Error       string        `json:"error,omitempty"`
	ErrorCode   string        `json:"errorCode,omitempty"`
	Inputs      []buildInput  `json:"inputs,omitempty"`
	Outputs     []buildOutput `json:"outputs,omitempty"`
}

type historyItemResponse struct {
	Timestamp   time.Time `json:"timestamp"`
	FromAddress string    `json:"fromAddress"`
	ToAddress   string    `json:"toAddress"`
	AssetID     string    `json:"assetId"`
	Amount      string    `json:"amount"`
	Hash        string    `json:"hash"`
}

type balanceItemResponse struct {
	Address string `json:"address"`
	AssetID string `json:"assetId"`
	Balance string `json:"balance"`
	Block   int64  `json:"block"`
}

type balancesResponse struct {
	Continuation string                `json:"continuation,omitempty"`
	Items        []balanceItemResponse `json:"items"`
}

type assetResponse struct {
	AssetID  string `json:"assetId"`
	Address  string `json:"address,omitempty"`
	Name     string `json:"name"`
	Accuracy int32  `json:"accuracy"`
}

type assetsResponse struct {
	Continuation string          `json:"continuation,omitempty"`
	Items        []assetResponse `json:"items"`
}

type createAssetRequest struct {
	AssetID  string `json:"assetId"`
	Address  string `json:"address"`
	Name     string `json:"name"`
	Accuracy int32  `json:"accuracy"`
}

type addressValidityResponse struct {
	IsValid bool `json:"isValid"`
}

type capabilitiesResponse struct {
	IsTransactionsRebuildingSupported bool `json:"isTransactionsRebuildingSupported"`
	AreManyInputsSupported            bool `json:"areManyInputsSupported"`
	AreManyOutputsSupported           bool `json:"areManyOutputsSupported"`
	IsTestingTransfersSupported       bool `json:"isTestingTransfersSupported"`
	IsPublicAddressExtensionRequired  bool `json:"isPublicAddressExtensionRequired"`
	IsReceiveTransactionRequired      bool `json:"isReceiveTransactionRequired"`
	CanReturnExplorerURL              bool `json:"canReturnExplorerUrl"`
}

type publicAddressExtension struct {
	Separator           string `json:"separator"`
	DisplayName         string `json:"displayName"`
	BaseDisplayName     string `json:"baseDisplayName"`
	InternalDisplayName string `json:"internalDisplayName"`
}

type constantsResponse struct {
	PublicAddressExtension publicAddressExtension `json:"publicAddressExtension"`
}

type isAliveResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Env     string `json:"env,omitempty"`
	IsDebug bool   `json:"isDebug"`
}
