package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbncursed/vkr/pass-service/internal/models"
)

func Test_UpdatePassRequestToCommand(t *testing.T) {
	key := models.PassKey{PassTypeID: "pass.com.example.demo", SerialNumber: "001"}

	var req UpdatePassRequest
	require.NoError(t, json.Unmarshal([]byte(`{"expirationDate":"2025-01-01T00:00:00Z"}`), &req))
	cmd := req.ToCommand(key)
	assert.Equal(t, key, cmd.Key)
	assert.Equal(t, "2025-01-01T00:00:00Z", cmd.ExpirationDate)
	assert.Empty(t, cmd.BarcodeMessage)
	assert.Empty(t, cmd.BarcodeAltText)

	req = UpdatePassRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"barcodeMessage":"M-1","barcodeAltText":""}`), &req))
	cmd = req.ToCommand(key)
	assert.Equal(t, "M-1", cmd.BarcodeMessage)
	assert.Empty(t, cmd.ExpirationDate)
}
