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
	"encoding/json"
	"fmt"

	"github.com/kestrelhq/kestrel/chain"
)

// TransactionContext is the opaque payload handed to the external
// signing service: the chain configuration plus the unsigned
// transaction, or the JSON literal false when every leg is simulated and
// there is nothing to sign.
type TransactionContext struct {
	Config *chain.Config `json:"config"`
	Tx     any           `json:"tx"`
}

// EncodeBase64 serializes a value to JSON and encodes it to base64 for
// transport.
func EncodeBase64(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeBase64 decodes a base64 string and parses the contained JSON
// into out.
func DecodeBase64(s string, out any) error {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse payload: %w", err)
	}
	return nil
}
