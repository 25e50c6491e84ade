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

package chain

import (
	"encoding/json"
	"errors"
)

// Config is the immutable chain deployment configuration.
type Config struct {
	AddressPrefix string `json:"addressPrefix"`
	ChainID       string `json:"chainId"`
}

// TransferParams are the arguments of a transfer operation.
type TransferParams struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"` // "<display amount> <asset>"
	Memo   string `json:"memo"`
}

// TransferOperation is one operation inside a transaction. The chain
// encodes operations as ["<kind>", {params}] tuples on the wire.
type TransferOperation struct {
	Kind   string
	Params TransferParams
}

func (o TransferOperation) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{o.Kind, o.Params})
}

func (o *TransferOperation) UnmarshalJSON(data []byte) error {
	var tuple [2]json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return err
	}
	if tuple[0] == nil || tuple[1] == nil {
		return errors.New("malformed operation tuple")
	}
	if err := json.Unmarshal(tuple[0], &o.Kind); err != nil {
		return err
	}
	return json.Unmarshal(tuple[1], &o.Params)
}

// Transaction is an unsigned transfer instruction bundle prepared by the
// chain gateway. The expiration is an ISO 8601 timestamp without zone
// suffix, as the chain renders it.
type Transaction struct {
	RefBlockNum    uint16              `json:"ref_block_num"`
	RefBlockPrefix uint32              `json:"ref_block_prefix"`
	Expiration     string              `json:"expiration"`
	Operations     []TransferOperation `json:"operations"`
}

// SignedTransaction is a transaction with signatures attached by the
// external signing service. For fully simulated transfers the signer
// pre-computes the transaction id instead of signing anything.
type SignedTransaction struct {
	Transaction
	Signatures []string `json:"signatures"`
	TxID       string   `json:"txId,omitempty"`
}
