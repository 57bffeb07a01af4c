package ailink

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aptoseidon/aptoseidon/internal/ailink/driver"
)

func TestMapProviderErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name       string
		statusCode int
		wantCode   string
	}{
		{"auth", 401, "AILINK_PROVIDER_AUTH"},
		{"forbidden", 403, "AILINK_PROVIDER_AUTH"},
		{"rate", 429, "AILINK_PROVIDER_RATE_LIMIT"},
		{"bad", 400, "AILINK_PROVIDER_BAD_REQUEST"},
		{"unavail", 503, "AILINK_PROVIDER_UNAVAILABLE"},
	}

	for _, tc := range cases {
		err := &driver.ProviderError{Provider: "openai", StatusCode: tc.statusCode, Message: "boom"}
		mapped := mapProviderError(err)
		require.NotNil(t, mapped, tc.name)
		require.Equal(t, tc.wantCode, mapped.Code, tc.name)
		require.ErrorIs(t, mapped, err)
	}
}

func TestMapProviderErrorTimeout(t *testing.T) {
	mapped := mapProviderError(fmt.Errorf("request failed: %w", context.DeadlineExceeded))
	require.Equal(t, "AILINK_PROVIDER_TIMEOUT", mapped.Code)
	require.ErrorIs(t, mapped, context.DeadlineExceeded)
	require.Nil(t, mapProviderError(nil))
}
