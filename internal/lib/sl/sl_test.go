package sl_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/storyflow/internal/lib/sl"
)

func TestErr_ReturnsCorrectAttr(t *testing.T) {
	err := errors.New("something went wrong")
	attr := sl.Err(err)

	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, slog.StringValue("something went wrong"), attr.Value)
}

func TestErr_NilError(t *testing.T) {
	assert.Panics(t, func() {
		_ = sl.Err(nil)
	})
}

func TestNewWithWriter_Prod(t *testing.T) {
	var buf bytes.Buffer
	log := sl.NewWithWriter(sl.EnvProd, &buf)

	log.Debug("hidden")
	log.Info("visible", sl.Err(errors.New("boom")))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "boom", entry["error"])
}

func TestNewWithWriter_LocalIsText(t *testing.T) {
	var buf bytes.Buffer
	log := sl.NewWithWriter("unknown", &buf)

	log.Debug("debug line")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), `msg="debug line"`)
}
