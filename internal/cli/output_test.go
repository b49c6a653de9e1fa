package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ledgerflow/internal/engine"
	"github.com/roach88/ledgerflow/internal/ledger"
	"github.com/roach88/ledgerflow/internal/record"
	"github.com/roach88/ledgerflow/internal/store"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]string{"result": "success"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("UNAUTHORIZED", "advance failed", nil)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
	assert.Equal(t, "advance failed", resp.Error.Message)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error("E002", "record not found", map[string]string{"id": "rec-1"})
	require.NoError(t, err)
	assert.Equal(t, "Error [E002]: record not found\nDetails: map[id:rec-1]\n", buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "json",
		Writer:    out,
		ErrWriter: errOut,
	}

	formatter.VerboseLog("hidden %d", 1)
	assert.Empty(t, errOut.String())

	formatter.Verbose = true
	formatter.VerboseLog("shown %d", 2)
	assert.Equal(t, "shown 2\n", errOut.String())
	assert.Empty(t, out.String(), "verbose output must not corrupt JSON")
}

func TestExitError(t *testing.T) {
	err := WrapExitError(ExitCommandError, "failed to open ledger", errors.New("no such file"))
	assert.Equal(t, "failed to open ledger: no such file", err.Error())
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", err)))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"workflow", engine.NewUnauthorizedError("r", "0xB"), "UNAUTHORIZED"},
		{"not found", fmt.Errorf("get r: %w", store.ErrNotFound), ErrCodeNotFound},
		{"decode", &record.DecodeError{Field: "id", Message: "missing"}, ErrCodeDecode},
		{"ledger", &ledger.Error{Op: ledger.OpGet, Key: "k", Err: errors.New("refused")}, ErrCodeLedger},
		{"other", errors.New("boom"), ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorCode(tt.err))
		})
	}
}

func TestRecordView(t *testing.T) {
	v := NewRecordView(record.Record{
		ID:        "rec-0001",
		Payload:   []byte("P"),
		CreatedAt: 1700000000,
		Owner:     "0xA",
		Status:    record.StatusProcessing,
	})

	assert.Equal(t, "rec-0001  Processing  0xA  2023-11-14T22:13:20Z  artifacts=0", v.String())

	data, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"rec-0001","owner":"0xA","status":"Processing","created_at":1700000000,"payload":"UA==","artifacts":[]}`, string(data))

	assert.Equal(t, "No records.", RecordList{}.String())
}
