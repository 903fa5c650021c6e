package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestTokenPair_Usable — граница MinAccessTokenLen.
func TestTokenPair_Usable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{name: "empty", token: "", want: false},
		{name: "short", token: "short", want: false},
		{name: "len_19", token: strings.Repeat("a", 19), want: false},
		{name: "len_20", token: strings.Repeat("a", 20), want: true},
		{name: "long", token: strings.Repeat("a", 200), want: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, TokenPair{AccessToken: tt.token}.Usable())
		})
	}
}

// TestValidationRecord_Plausible — обязательные признаки правдоподобной записи.
func TestValidationRecord_Plausible(t *testing.T) {
	t.Parallel()

	ts := time.Unix(1700000000, 0).UTC()

	require.True(t, ValidationRecord{Asset: "BTCUSD", Price: 1, MsgHash: "0x1", Timestamp: ts}.Plausible())
	require.False(t, ValidationRecord{Asset: "BTCUSD", Price: 0, MsgHash: "0x1", Timestamp: ts}.Plausible())
	require.False(t, ValidationRecord{Asset: "BTCUSD", Price: 1, Timestamp: ts}.Plausible())
	require.False(t, ValidationRecord{Asset: "BTCUSD", Price: 1, MsgHash: "0x1"}.Plausible())
}
