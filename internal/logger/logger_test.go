package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_WithFieldsMerges(t *testing.T) {
	ctx := WithFields(context.Background(), logrus.Fields{"request_id": "r1"})
	ctx = WithFields(ctx, logrus.Fields{"serial_number": "001"})

	fields := Fields(ctx)
	assert.Equal(t, "r1", fields["request_id"])
	assert.Equal(t, "001", fields["serial_number"])
}

func Test_GetLoggerDefault(t *testing.T) {
	require.NotNil(t, GetLogger(context.Background()))
	assert.Empty(t, Fields(context.Background()))
}

func Test_SetupJSON(t *testing.T) {
	var buf bytes.Buffer
	Setup("debug", "json", &buf)
	defer Setup("info", "text", nil)

	GetLogger(context.Background()).WithField("k", "v").Debug("hello")
	assert.Contains(t, buf.String(), `"k":"v"`)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
}
