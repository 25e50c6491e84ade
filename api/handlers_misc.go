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

	"github.com/kestrelhq/kestrel/internal/version"
	"github.com/kestrelhq/kestrel/transfer"
)

func (a *Api) handleAssets(
	w http.ResponseWriter,
	r *http.Request,
) {
	take, err := parseTake(r)
	if err != nil {
		a.writeBadRequest(w, err.Error())
		return
	}
	continuation, err := parseContinuation(r)
	if err != nil {
		a.writeBadRequest(w, err.Error())
		return
	}
	page, err := a.store.GetAssets(take, continuation)
	if err != nil {
		a.writeError(w, err)
		return
	}
	items := make([]assetResponse, 0, len(page.Items))
	for _, asset := range page.Items {
		items = append(items, assetResponse{
			AssetID:  asset.ID,
			Address:  asset.Address,
			Name:     asset.Name,
			Accuracy: asset.Accuracy,
		})
	}
	writeJSON(w, http.StatusOK, assetsResponse{
		Continuation: page.Continuation,
		Items:        items,
	})
}

func (a *Api) handleAsset(
	w http.ResponseWriter,
	r *http.Request,
) {
	assetID := r.PathValue("assetId")
	asset, err := a.store.GetAsset(assetID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if asset == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, assetResponse{
		AssetID:  asset.ID,
		Address:  asset.Address,
		Name:     asset.Name,
		Accuracy: asset.Accuracy,
	})
}

func (a *Api) handleCreateAsset(
	w http.ResponseWriter,
	r *http.Request,
) {
	var req createAssetRequest
	if err := decodeBody(r, &req); err != nil {
		a.writeBadRequest(w, err.Error())
		return
	}
	if req.AssetID == "" {
		a.writeBadRequest(w, "assetId is required")
		return
	}
	if req.Accuracy < 0 {
		a.writeBadRequest(
			w,
			fmt.Sprintf("invalid accuracy [%d]", req.Accuracy),
		)
		return
	}
	if err := a.store.UpsertAsset(
		req.AssetID,
		req.Address,
		req.Name,
		req.Accuracy,
	); err != nil {
		a.writeError(w, err)
		return
	}
	a.logger.Info("asset registered", "assetId", req.AssetID)
	w.WriteHeader(http.StatusOK)
}

func (a *Api) handleAddressValidity(
	w http.ResponseWriter,
	r *http.Request,
) {
	address := r.PathValue("address")
	writeJSON(w, http.StatusOK, addressValidityResponse{
		IsValid: transfer.IsValidAddress(address),
	})
}

func (a *Api) handleExplorerURL(
	w http.ResponseWriter,
	r *http.Request,
) {
	a.writeError(w, transfer.NewNotImplemented())
}

func (a *Api) handleCapabilities(
	w http.ResponseWriter,
	r *http.Request,
) {
	writeJSON(w, http.StatusOK, capabilitiesResponse{
		IsTransactionsRebuildingSupported: false,
		AreManyInputsSupported:            true,
		AreManyOutputsSupported:           true,
		IsTestingTransfersSupported:       false,
		IsPublicAddressExtensionRequired:  true,
		IsReceiveTransactionRequired:      false,
		CanReturnExplorerURL:              false,
	})
}

func (a *Api) handleConstants(
	w http.ResponseWriter,
	r *http.Request,
) {
	writeJSON(w, http.StatusOK, constantsResponse{
		PublicAddressExtension: publicAddressExtension{
			Separator:           transfer.AddressSeparator,
			DisplayName:         "Memo",
			BaseDisplayName:     "Account",
			InternalDisplayName: "Memo",
		},
	})
}

func (a *Api) handleIsAlive(
	w http.ResponseWriter,
	r *http.Request,
) {
	writeJSON(w, http.StatusOK, isAliveResponse{
		Name:    "kestrel",
		Version: version.GetVersionString(),
		IsDebug: false,
	})
}
