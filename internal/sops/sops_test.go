package sops_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/x45dev/keyops/internal/errors"
	"github.com/x45dev/keyops/internal/sops"
	"github.com/x45dev/keyops/tests/testutil"
)

func TestCheck_Decryptable(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockCommandExecutor()
	mock.AddResponse("sops --decrypt secrets/prod.yaml", testutil.SopsMockResponses{}.DecryptOK("API_KEY: hunter2\n"))

	client := sops.NewClient(mock)
	ok, reason := client.Check(context.Background(), "secrets/prod.yaml")

	assert.True(t, ok)
	assert.Empty(t, reason)
	mock.AssertCalled(t, "sops")
}

func TestCheck_NotDecryptable(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockCommandExecutor()
	mock.AddResponse("sops --decrypt secrets/locked.yaml", testutil.SopsMockResponses{}.DecryptNoKey())

	client := sops.NewClient(mock)
	ok, reason := client.Check(context.Background(), "secrets/locked.yaml")

	assert.False(t, ok)
	assert.Contains(t, reason, "Failed to get the data key")
}

func TestCheck_PlaintextFile(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockCommandExecutor()
	mock.AddResponse("sops --decrypt notes.yaml", testutil.SopsMockResponses{}.NotASopsFile())

	client := sops.NewClient(mock)
	ok, reason := client.Check(context.Background(), "notes.yaml")

	assert.False(t, ok)
	assert.Contains(t, reason, "sops metadata not found")
}

func TestUpdateKeys_Success(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockCommandExecutor()
	mock.AddResponse("sops updatekeys --yes secrets/prod.yaml", testutil.SopsMockResponses{}.UpdateKeysOK("secrets/prod.yaml"))

	client := sops.NewClient(mock)
	require.NoError(t, client.UpdateKeys(context.Background(), "secrets/prod.yaml"))

	calls := mock.GetCalls("sops")
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"updatekeys", "--yes", "secrets/prod.yaml"}, calls[0].Args)
}

func TestUpdateKeys_NoCreationRule(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockCommandExecutor()
	mock.AddResponse("sops updatekeys --yes orphan.yaml", testutil.SopsMockResponses{}.UpdateKeysNoRule())

	client := sops.NewClient(mock)
	err := client.UpdateKeys(context.Background(), "orphan.yaml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no matching creation rules")
	assert.Contains(t, err.Error(), ".sops.yaml")
}

func TestUpdateKeys_ErrorCarriesExitCode(t *testing.T) {
	t.Parallel()

	mock := testutil.NewMockCommandExecutor()
	mock.AddResponse("sops updatekeys --yes orphan.yaml", testutil.SopsMockResponses{}.UpdateKeysNoRule())

	client := sops.NewClient(mock)
	err := client.UpdateKeys(context.Background(), "orphan.yaml")

	require.Error(t, err)
	var cmdErr kerrors.CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, "sops updatekeys", cmdErr.Command)
}

func TestCheckFailure_Suggestions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		reason   string
		wantHint string
	}{
		{
			name:     "no identity can open the file",
			reason:   "Failed to get the data key required to decrypt the SOPS file.",
			wantHint: "SOPS_AGE_KEY_FILE",
		},
		{
			name:     "plaintext file",
			reason:   "sops metadata not found",
			wantHint: "sops --encrypt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := sops.CheckFailure("secrets/prod.yaml", tt.reason)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "secrets/prod.yaml")
			assert.Contains(t, err.Error(), tt.reason)
			assert.Contains(t, err.Error(), tt.wantHint)
		})
	}
}

func TestCheckFailure_EmptyReason(t *testing.T) {
	t.Parallel()

	err := sops.CheckFailure("secrets/prod.yaml", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decryption failed")
}

func TestUpdateKeys_IdempotentInvocation(t *testing.T) {
	t.Parallel()

	// Rekeying an already-current file succeeds again; sops rewrites the
	// same recipient set and the plaintext is untouched.
	mock := testutil.NewMockCommandExecutor()
	mock.AddResponse("sops updatekeys --yes secrets/prod.yaml", testutil.SopsMockResponses{}.UpdateKeysOK("secrets/prod.yaml"))

	client := sops.NewClient(mock)
	require.NoError(t, client.UpdateKeys(context.Background(), "secrets/prod.yaml"))
	require.NoError(t, client.UpdateKeys(context.Background(), "secrets/prod.yaml"))

	assert.Equal(t, 2, mock.CallCount())
}
