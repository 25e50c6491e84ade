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
	"strconv"

	"github.com/kestrelhq/kestrel/transfer"
)

// handleBalances pages through observable balance aggregates, dropping
// zero and negative balances, until it has at least take items or the
// cursor is exhausted. Pages are always consumed whole so the
// continuation stays page-aligned; the response may carry more than
// take items, never fewer while positive aggregates remain. Reported
// block heights are floored at ten times the last irreversible block so
// downstream deposit detection never re-reads settled history.
func (a *Api) handleBalances(
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
	irreversible, err := a.chain.LastIrreversibleBlock(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	blockFloor := irreversible * 10
	items := make([]balanceItemResponse, 0, take)
	for len(items) < take {
		page, err := a.store.GetBalances(take, continuation)
		if err != nil {
			a.writeError(w, err)
			return
		}
		for _, aggregate := range page.Items {
			if aggregate.AmountInBaseUnit <= 0 {
				continue
			}
			block := aggregate.Block
			if block < blockFloor {
				block = blockFloor
			}
			items = append(items, balanceItemResponse{
				Address: aggregate.Address,
				AssetID: aggregate.AssetID,
				Balance: strconv.FormatInt(
					aggregate.AmountInBaseUnit,
					10,
				),
				Block: block,
			})
		}
		continuation = page.Continuation
		if continuation == "" {
			break
		}
	}
	writeJSON(w, http.StatusOK, balancesResponse{
		Continuation: continuation,
		Items:        items,
	})
}

func (a *Api) handleBalance(
	w http.ResponseWriter,
	r *http.Request,
) {
	address := r.PathValue("address")
	assetID := r.PathValue("assetId")
	if !transfer.IsValidAddress(address) {
		a.writeBadRequest(
			w,
			fmt.Sprintf("invalid address [%s]", address),
		)
		return
	}
	aggregate, err := a.store.GetBalance(address, assetID)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if aggregate == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, balanceItemResponse{
		Address: aggregate.Address,
		AssetID: aggregate.AssetID,
		Balance: strconv.FormatInt(
			aggregate.AmountInBaseUnit,
			10,
		),
		Block: aggregate.Block,
	})
}

func (a *Api) handleObserveAddress(
	w http.ResponseWriter,
	r *http.Request,
) {
	address := r.PathValue("address")
	if !transfer.IsValidAddress(address) {
		a.writeBadRequest(
			w,
			fmt.Sprintf("invalid address [%s]", address),
		)
		return
	}
	observed, err := a.store.IsObservable(address)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if observed {
		a.writeError(w, transfer.NewConflict(
			fmt.Sprintf("address [%s] is already observed", address),
		))
		return
	}
	if err := a.store.ObserveAddress(address); err != nil {
		a.writeError(w, err)
		return
	}
	a.logger.Info("address observation started", "address", address)
	w.WriteHeader(http.StatusOK)
}

func (a *Api) handleRemoveAddress(
	w http.ResponseWriter,
	r *http.Request,
) {
	address := r.PathValue("address")
	if !transfer.IsValidAddress(address) {
		a.writeBadRequest(
			w,
			fmt.Sprintf("invalid address [%s]", address),
		)
		return
	}
	observed, err := a.store.IsObservable(address)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if !observed {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := a.store.RemoveAddress(address); err != nil {
		a.writeError(w, err)
		return
	}
	a.logger.Info("address observation stopped", "address", address)
	w.WriteHeader(http.StatusOK)
}
