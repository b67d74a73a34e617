package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := WithContext(context.Background(), "abc")
	assert.Equal(t, "abc", FromContext(ctx))
	assert.Empty(t, FromContext(context.Background()))
}

func TestFromHeaders(t *testing.T) {
	assert.Equal(t, "req-1", FromHeaders("", "req-1"))
	assert.Equal(t, "t-1", FromHeaders("t-1", "req-1"))
	assert.Len(t, FromHeaders("", ""), 32)
}
