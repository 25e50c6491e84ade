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

package database

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBalanceUnknown(t *testing.T) {
	store := testStore(t)
	balance, err := store.GetBalance("alice", "TEST")
	require.NoError(t, err)
	assert.Nil(t, balance)
}

func TestUpsertBalanceIdempotent(t *testing.T) {
	store := testStore(t)
	// Replaying the same cause must not double-count
	for range 3 {
		require.NoError(t, store.UpsertBalance(
			"alice", "TEST", "op-1", 5, 5000, 100,
		))
	}
	balance, err := store.GetBalance("alice", "TEST")
	require.NoError(t, err)
	require.NotNil(t, balance)
	assert.Equal(t, int64(5000), balance.AmountInBaseUnit)
	assert.Equal(t, int64(100), balance.Block)
}

func TestGetBalanceAggregation(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.UpsertBalance(
		"alice", "TEST", "op-1", 5, 5000, 100,
	))
	require.NoError(t, store.UpsertBalance(
		"alice", "TEST", "op-2", -2, -2000, 200,
	))
	require.NoError(t, store.UpsertBalance(
		"alice", "TEST", "tx-3", 1, 1000, 150,
	))
	// Different asset is a separate aggregate
	require.NoError(t, store.UpsertBalance(
		"alice", "OTHER", "op-4", 9, 9000, 50,
	))

	balance, err := store.GetBalance("alice", "TEST")
	require.NoError(t, err)
	require.NotNil(t, balance)
	assert.Equal(t, int64(4000), balance.AmountInBaseUnit)
	assert.InDelta(t, 4.0, balance.Amount, 0.0001)
	assert.Equal(t, int64(200), balance.Block)
}

func TestCancelBalanceExcludesEntry(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.UpsertBalance(
		"alice", "TEST", "op-1", 5, 5000, 100,
	))
	require.NoError(t, store.UpsertBalance(
		"alice", "TEST", "op-2", 3, 3000, 200,
	))
	require.NoError(t, store.CancelBalance("alice", "TEST", "op-2", true))

	balance, err := store.GetBalance("alice", "TEST")
	require.NoError(t, err)
	require.NotNil(t, balance)
	assert.Equal(t, int64(5000), balance.AmountInBaseUnit)

	// Un-cancelling restores the entry
	require.NoError(t, store.CancelBalance("alice", "TEST", "op-2", false))
	balance, err = store.GetBalance("alice", "TEST")
	require.NoError(t, err)
	require.NotNil(t, balance)
	assert.Equal(t, int64(8000), balance.AmountInBaseUnit)
}

func TestGetBalancesOnlyObservable(t *testing.T) {
	store := testStore(t)
	require.NoError(t, store.UpsertBalance(
		"alice", "TEST", "op-1", 5, 5000, 100,
	))
	page, err := store.GetBalances(10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	// Observation retroactively surfaces existing entries
	require.NoError(t, store.ObserveAddress("alice"))
	page, err = store.GetBalances(10, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "alice", page.Items[0].Address)
	assert.Equal(t, int64(5000), page.Items[0].AmountInBaseUnit)

	require.NoError(t, store.RemoveAddress("alice"))
	page, err = store.GetBalances(10, "")
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestGetBalancesPagination(t *testing.T) {
	store := testStore(t)
	for i := range 5 {
		address := fmt.Sprintf("addr-%d", i)
		require.NoError(t, store.ObserveAddress(address))
		require.NoError(t, store.UpsertBalance(
			address, "TEST", "op-1", 1, 1000, 100,
		))
	}

	var seen []string
	continuation := ""
	for {
		page, err := store.GetBalances(2, continuation)
		require.NoError(t, err)
		for _, item := range page.Items {
			seen = append(seen, item.Address)
		}
		continuation = page.Continuation
		if continuation == "" {
			break
		}
	}
	require.Len(t, seen, 5)
	// Pages never overlap
	unique := make(map[string]struct{})
	for _, address := range seen {
		unique[address] = struct{}{}
	}
	assert.Len(t, unique, 5)
}

func TestIsObservable(t *testing.T) {
	store := testStore(t)
	observed, err := store.IsObservable("alice")
	require.NoError(t, err)
	assert.False(t, observed)

	require.NoError(t, store.ObserveAddress("alice"))
	observed, err = store.IsObservable("alice")
	require.NoError(t, err)
	assert.True(t, observed)
}

func TestValidateContinuation(t *testing.T) {
	assert.True(t, ValidateContinuation(""))
	assert.True(t, ValidateContinuation("0"))
	assert.True(t, ValidateContinuation("1234"))
	assert.False(t, ValidateContinuation("abc"))
	assert.False(t, ValidateContinuation("-1"))
	assert.False(t, ValidateContinuation("12 "))
}
