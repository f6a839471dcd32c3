package step

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeConstructors(t *testing.T) {
	ok := Ok("probe")
	assert.True(t, ok.OK())
	assert.True(t, ok.Usable())
	assert.Empty(t, ok.Reason)

	deg := Degrade("fonts", "file missing: %s", "/opt/css/x.css")
	assert.False(t, deg.OK())
	assert.True(t, deg.Usable())
	assert.Equal(t, "file missing: /opt/css/x.css", deg.Reason)

	fail := Fail("scroll", errors.New("boom"))
	assert.False(t, fail.Usable())
	assert.Equal(t, "boom", fail.Reason)

	assert.Equal(t, "unknown error", Fail("x", nil).Reason)
}

func TestOutcomeJSON(t *testing.T) {
	data, err := json.Marshal(Degrade("wait", "timeout"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"step":"wait","status":"degraded","reason":"timeout"}`, string(data))

	data, err = json.Marshal(Ok("wait"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"step":"wait","status":"succeeded"}`, string(data))
}

func TestOutcomeLogLevel(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	Fail("capture", errors.New("empty")).Log(&log)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "capture", entry["step"])
	assert.Equal(t, "empty", entry["reason"])
}

func TestStatusUnmarshal(t *testing.T) {
	var o Outcome
	require.NoError(t, json.Unmarshal([]byte(`{"step":"probe","status":"failed","reason":"x"}`), &o))
	assert.Equal(t, Fail("probe", errors.New("x")), o)

	var s Status
	assert.Error(t, json.Unmarshal([]byte(`"bogus"`), &s))
	assert.Error(t, json.Unmarshal([]byte(`2`), &s))
}
