package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFanOut_TriesEveryRelayNotJustTheFirst(t *testing.T) {
	miss := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer miss.Close()

	hit := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value":"2000000000000000000"}`))
	}))
	defer hit.Close()

	c := New(map[string]string{
		"relay-a-misses": miss.URL,
		"relay-b-hits":   hit.URL,
	}, "/relay/v1/data/bidtraces/proposer_payload_delivered?slot=%s")

	value, found := c.GetPayloadValue(context.Background(), 6543210)
	require.True(t, found)
	require.Equal(t, uint64(2_000_000_000), value)
}

func TestFanOut_AllMissReturnsNotFound(t *testing.T) {
	miss := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer miss.Close()

	c := New(map[string]string{"only": miss.URL}, "/path?slot=%s")
	_, found := c.GetPayloadValue(context.Background(), 6543210)
	require.False(t, found)
}

func TestParseWei(t *testing.T) {
	v, err := parseWei("1500000000000000000")
	require.NoError(t, err)
	require.Equal(t, uint64(1_500_000_000), v)

	_, err = parseWei("not-a-number")
	require.Error(t, err)
}

func TestFmtPayloadPath(t *testing.T) {
	require.Equal(t, "/x?slot=123", fmtPayloadPath("/x?slot=%s", "123"))
}
