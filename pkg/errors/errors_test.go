package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIErrorIs(t *testing.T) {
	t.Run("429 maps to rate limited", func(t *testing.T) {
		err := &APIError{Source: "yandex", StatusCode: 429, Message: "too many requests"}
		assert.True(t, stderrors.Is(err, ErrRateLimited))
		assert.False(t, stderrors.Is(err, ErrSourceUnavailable))
	})

	t.Run("5xx maps to source unavailable", func(t *testing.T) {
		for _, code := range []int{500, 502, 503} {
			err := &APIError{Source: "uzum", StatusCode: code}
			assert.True(t, stderrors.Is(err, ErrSourceUnavailable), "status %d", code)
		}
	})

	t.Run("4xx other than 429 maps to nothing", func(t *testing.T) {
		err := &APIError{Source: "billz", StatusCode: 400}
		assert.False(t, stderrors.Is(err, ErrRateLimited))
		assert.False(t, stderrors.Is(err, ErrSourceUnavailable))
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&APIError{StatusCode: 429}))
	assert.True(t, IsRetryable(&APIError{StatusCode: 503}))
	assert.False(t, IsRetryable(&APIError{StatusCode: 404}))
	assert.False(t, IsRetryable(stderrors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestWrappers(t *testing.T) {
	t.Run("nil passes through", func(t *testing.T) {
		assert.NoError(t, WrapFetch("billz", nil))
		assert.NoError(t, WrapStore("upsert", nil))
		assert.NoError(t, WrapParse("json", "page", nil))
	})

	t.Run("wrapped cause stays reachable", func(t *testing.T) {
		cause := &APIError{StatusCode: 429}
		err := WrapFetch("yandex", cause)

		var fetchErr *FetchError
		assert.ErrorAs(t, err, &fetchErr)
		assert.Equal(t, "yandex", fetchErr.Source)
		assert.True(t, stderrors.Is(err, ErrRateLimited))
	})
}

func TestDispatchErrorMessage(t *testing.T) {
	err := &DispatchError{Target: "yandex-stocks", Batch: 2, Attempts: 3, StatusCode: 429}
	msg := err.Error()
	assert.Contains(t, msg, "yandex-stocks")
	assert.Contains(t, msg, "429")
}
