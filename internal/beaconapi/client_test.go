package beaconapi

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ethzen/valmon/internal/config"
)

func TestGetGenesis(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/eth/v1/beacon/genesis", r.URL.Path)
		w.Write([]byte(`{"data":{"genesis_time":"1606824023"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, config.ClientOther)
	got, err := c.GetGenesis(context.Background())
	require.NoError(t, err)
	require.Equal(t, time.Unix(1606824023, 0), got)
}

func TestGetPotentialBlock_404IsAbsentNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, config.ClientOther)

	_, err := c.GetBlock(context.Background(), 5)
	require.ErrorIs(t, err, ErrNoBlock)

	block, err := c.GetPotentialBlock(context.Background(), 5)
	require.NoError(t, err)
	require.Nil(t, block)
}

func TestRetry_TransientStatusThenSuccess(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"data":{"genesis_time":"1"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, config.ClientOther)
	got, err := c.GetGenesis(context.Background())
	require.NoError(t, err)
	require.Equal(t, time.Unix(1, 0), got)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetProposerDuties_MemoizedPerEpoch(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"dependent_root":"0xroot","data":[{"pubkey":"0xaaa","validator_index":"7","slot":"321"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, config.ClientOther)
	first, err := c.GetProposerDuties(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, first.Duties, 1)
	require.Equal(t, uint64(321), first.Duties[0].Slot)

	second, err := c.GetProposerDuties(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGetCommitteeDuties_ShapesSlotToCommitteeToValidators(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/eth/v1/beacon/states/head/committees", r.URL.Path)
		require.Equal(t, "3", r.URL.Query().Get("epoch"))
		w.Write([]byte(`{"data":[{"index":"0","slot":"96","validators":["10","11"]},{"index":"1","slot":"96","validators":["12"]}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, config.ClientOther)
	duties, err := c.GetCommitteeDuties(context.Background(), 3)
	require.NoError(t, err)
	require.Equal(t, []uint64{10, 11}, duties[96][0])
	require.Equal(t, []uint64{12}, duties[96][1])
}

func TestLiveness_NimbusSynthesizesAllLive(t *testing.T) {
	// No server at all: the Nimbus path must never issue a request.
	c := New("http://127.0.0.1:0", config.ClientNimbus)
	out, err := c.GetValidatorsLiveness(context.Background(), 5, []uint64{1, 2})
	require.NoError(t, err)
	require.Equal(t, map[uint64]bool{1: true, 2: true}, out)
}

func TestLiveness_BadRequestAssumesAllLive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(srv.URL, config.ClientOther)
	out, err := c.GetValidatorsLiveness(context.Background(), 5, []uint64{9})
	require.NoError(t, err)
	require.Equal(t, map[uint64]bool{9: true}, out)
}

func TestLiveness_LighthouseWireShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/lighthouse/liveness", r.URL.Path)
		body, err := ioutil.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `{"epoch":5,"indices":[3,7]}`, string(body))
		w.Write([]byte(`{"data":[{"index":"3","is_live":true},{"index":"7","is_live":false}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, config.ClientLighthouse)
	out, err := c.GetValidatorsLiveness(context.Background(), 5, []uint64{7, 3})
	require.NoError(t, err)
	require.Equal(t, map[uint64]bool{3: true, 7: false}, out)
}

func TestLiveness_DefaultPostsDecimalStrings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/eth/v1/validator/liveness/5", r.URL.Path)
		body, err := ioutil.ReadAll(r.Body)
		require.NoError(t, err)
		require.JSONEq(t, `["3","7"]`, string(body))
		w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, config.ClientPrysm)
	_, err := c.GetValidatorsLiveness(context.Background(), 5, []uint64{7, 3})
	require.NoError(t, err)
}

func TestRewards_PrysmReturnsEmptyWithoutRequest(t *testing.T) {
	c := New("http://127.0.0.1:0", config.ClientPrysm)
	out, err := c.GetRewards(context.Background(), 5, []uint64{1})
	require.NoError(t, err)
	require.Empty(t, out.Ideal)
	require.Empty(t, out.Earned)
}

func TestRewards_BadRequestReturnsEmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(srv.URL, config.ClientOther)
	out, err := c.GetRewards(context.Background(), 5, nil)
	require.NoError(t, err)
	require.Empty(t, out.Ideal)
	require.Empty(t, out.Earned)
}

func TestRewards_ParsesSignedComponents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/eth/v1/beacon/rewards/attestations/5", r.URL.Path)
		w.Write([]byte(`{"data":{
			"ideal_rewards":[{"effective_balance":"32000000000","source":"14000","target":"13000","head":"7500"}],
			"total_rewards":[{"validator_index":"42","source":"14000","target":"-12999","head":"7500"}]
		}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, config.ClientOther)
	out, err := c.GetRewards(context.Background(), 5, []uint64{42})
	require.NoError(t, err)
	require.Len(t, out.Ideal, 1)
	require.Equal(t, uint64(32_000_000_000), out.Ideal[0].EffectiveBalance)
	require.Len(t, out.Earned, 1)
	require.Equal(t, int64(-12999), out.Earned[0].Reward.Target)
}
