package admission

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmckeone/omnis-bouncer/internal/bouncererr"
)

func TestParseBoolDefault(t *testing.T) {
	assert.Equal(t, false, parseBoolDefault("0", true))
	assert.Equal(t, true, parseBoolDefault("1", false))
	assert.Equal(t, true, parseBoolDefault("", true))
	assert.Equal(t, false, parseBoolDefault("garbage", false))
}

func TestParseIntDefault(t *testing.T) {
	assert.Equal(t, 5, parseIntDefault("5", -1))
	assert.Equal(t, -3, parseIntDefault("-3", -1))
	assert.Equal(t, -1, parseIntDefault("", -1))
	assert.Equal(t, -1, parseIntDefault("not-a-number", -1))
}

func TestToInt64(t *testing.T) {
	assert.Equal(t, int64(42), toInt64(int64(42)))
	assert.Equal(t, int64(0), toInt64("not an int64"))
	assert.Equal(t, int64(0), toInt64(nil))
}

func TestSetStoreCapacity_RejectsOutOfRangeBeforeTouchingRedis(t *testing.T) {
	c := &Client{}
	err := c.SetStoreCapacity(context.Background(), "p", -5)
	assert.Error(t, err)
	assert.True(t, bouncererr.Is(err, bouncererr.KindInvalidArgument))
}

func TestSetQueueEnabledRaw_RejectsOutOfRangeBeforeTouchingRedis(t *testing.T) {
	c := &Client{}
	err := c.SetQueueEnabledRaw(context.Background(), "p", "maybe")
	assert.Error(t, err)
	assert.True(t, bouncererr.Is(err, bouncererr.KindInvalidArgument))
	assert.True(t, errors.Is(err, bouncererr.ErrQueueEnabledOutOfRange))
}
