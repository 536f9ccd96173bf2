package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorePrune(t *testing.T) {
	cfg = testConfig(t)
	ctx := context.Background()

	st, err := initStore(ctx)
	require.NoError(t, err)
	require.NoError(t, st.SetCachedResponse(ctx, "old", []byte("x"), -time.Minute))
	require.NoError(t, st.SetCachedResponse(ctx, "fresh", []byte("y"), time.Hour))
	require.NoError(t, st.Close())

	var buf bytes.Buffer
	storePruneCmd.SetContext(ctx)
	storePruneCmd.SetOut(&buf)
	require.NoError(t, storePruneCmd.RunE(storePruneCmd, nil))
	assert.Contains(t, buf.String(), "Deleted 1 expired responses.")
}

func TestStoreInit(t *testing.T) {
	cfg = testConfig(t)
	storeInitCmd.SetContext(context.Background())
	assert.NoError(t, storeInitCmd.RunE(storeInitCmd, nil))
}
