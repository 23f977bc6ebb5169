package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExperience(t *testing.T) {
	cases := []struct {
		in   interface{}
		want *int
	}{
		{nil, nil},
		{"", nil},
		{"none", nil},
		{"5", intPtr(5)},
		{"5 Years", intPtr(5)},
		{"about 12yrs", intPtr(12)},
		{7, intPtr(7)},
		{-3, nil},
		{"-5", nil},
		{" -2 years", nil},
		{"5-7 years", intPtr(5)},
		{float64(4), intPtr(4)},
		{json.Number("9"), intPtr(9)},
	}
	for _, tc := range cases {
		got := ParseExperience(tc.in)
		if tc.want == nil {
			assert.Nil(t, got, "input %v", tc.in)
			continue
		}
		require.NotNil(t, got, "input %v", tc.in)
		assert.Equal(t, *tc.want, *got, "input %v", tc.in)
	}
}

func TestFormatExperience(t *testing.T) {
	assert.Equal(t, "", FormatExperience(nil))
	assert.Equal(t, "", FormatExperience(intPtr(0)))
	assert.Equal(t, "3 years", FormatExperience(intPtr(3)))
}

func TestRoundTo(t *testing.T) {
	assert.Equal(t, 17.123457, RoundTo(17.1234567, 6))
	assert.Equal(t, 80.0, RoundTo(80.0000001, 6))
}

func TestErrorCategories(t *testing.T) {
	wrapped := fmt.Errorf("%w: booking 7", ErrNotFound)
	assert.Equal(t, "not_found", ErrorCode(wrapped))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(wrapped))

	assert.Equal(t, http.StatusBadRequest, HTTPStatus(fmt.Errorf("%w: missing lat", ErrInvalidInput)))
	assert.Equal(t, http.StatusConflict, HTTPStatus(ErrConflict))
	assert.Equal(t, http.StatusServiceUnavailable, HTTPStatus(fmt.Errorf("%w: %w", ErrStorageUnavailable, errors.New("dial tcp"))))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
	assert.Equal(t, "internal", ErrorCode(errors.New("boom")))
}

func intPtr(n int) *int { return &n }
