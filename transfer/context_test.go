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
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelhq/kestrel/chain"
)

func TestTransactionContextSimulated(t *testing.T) {
	encoded, err := EncodeBase64(TransactionContext{
		Config: &chain.Config{
			AddressPrefix: "TST",
			ChainID:       "deadbeef",
		},
		Tx: false,
	})
	require.NoError(t, err)

	// The payload is plain base64 JSON
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.JSONEq(
		t,
		`{"config":{"addressPrefix":"TST","chainId":"deadbeef"},"tx":false}`,
		string(raw),
	)

	var decoded TransactionContext
	require.NoError(t, DecodeBase64(encoded, &decoded))
	require.NotNil(t, decoded.Config)
	assert.Equal(t, "TST", decoded.Config.AddressPrefix)
	assert.Equal(t, false, decoded.Tx)
}

func TestTransactionContextWithTransaction(t *testing.T) {
	tx := &chain.Transaction{
		RefBlockNum:    100,
		RefBlockPrefix: 12345,
		Expiration:     "2026-01-01T00:00:30",
		Operations: []chain.TransferOperation{
			{
				Kind: "transfer",
				Params: chain.TransferParams{
					From:   "hot",
					To:     "cold",
					Amount: "1.000 TEST",
					Memo:   "memo",
				},
			},
		},
	}
	encoded, err := EncodeBase64(TransactionContext{
		Config: &chain.Config{AddressPrefix: "TST"},
		Tx:     tx,
	})
	require.NoError(t, err)

	var decoded struct {
		Config *chain.Config      `json:"config"`
		Tx     *chain.Transaction `json:"tx"`
	}
	require.NoError(t, DecodeBase64(encoded, &decoded))
	require.NotNil(t, decoded.Tx)
	assert.Equal(t, *tx, *decoded.Tx)
}

func TestDecodeBase64Invalid(t *testing.T) {
	var out TransactionContext
	assert.Error(t, DecodeBase64("not base64!!", &out))

	garbage := base64.StdEncoding.EncodeToString([]byte("not json"))
	assert.Error(t, DecodeBase64(garbage, &out))
}
