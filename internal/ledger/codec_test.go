package ledger

import (
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardvault-api/internal/model"
)

func TestPersistedRowLayout(t *testing.T) {
	at := time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC)
	rows := [][]string{
		EncodeOwnershipRow(model.OwnershipRow{
			Key:    model.ItemKey{Category: "Students", Name: "Aria"},
			Owners: map[string]int{"u2": 3, "u1": 1, "u9": 0},
		}),
		EncodeBoardOffer(model.BoardOffer{
			ID:        7,
			OwnerID:   "u1",
			OwnerName: "Ari",
			Item:      model.ItemKey{Category: "Teachers", Name: "Mentor"},
			Comment:   "swap for Students?",
			CreatedAt: at,
		}),
		EncodeDiscovery(model.Discovery{
			Item:           model.ItemKey{Category: "Students", Name: "Aria"},
			DiscovererID:   "u1",
			DiscovererName: "Ari",
			Timestamp:      at,
			Index:          1,
		}),
	}

	var b strings.Builder
	for _, cells := range rows {
		b.WriteString(strings.Join(cells, "\t"))
		b.WriteString("\n")
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "persisted_rows", []byte(b.String()))
}

func TestDecodeOwnershipRow_PrunesEmptyAndMalformedCells(t *testing.T) {
	row, err := DecodeOwnershipRow([]string{"Students", "Aria", "", "u1:2", "garbage", "u2:0", "guild:x:1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"u1": 2, "guild:x": 1}, row.Owners)

	_, err = DecodeOwnershipRow([]string{"Students"})
	assert.Error(t, err)
}

func TestDecodeCounters_ShortRowReadsAsZero(t *testing.T) {
	c, err := DecodeCounters([]string{"u1", "2026-10-19"})
	require.NoError(t, err)
	assert.Equal(t, model.DailyCounters{UserID: "u1", LastDailyDraw: "2026-10-19"}, c)
}

func TestTradeRow_RoundTripKeepsResolution(t *testing.T) {
	created := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	resolved := created.Add(time.Hour)
	in := model.TradeRequest{
		ID:          "t-1",
		RequesterID: "a",
		TargetID:    "b",
		Offered:     model.ItemKey{Category: "Students", Name: "Aria"},
		Requested:   model.ItemKey{Category: "Teachers", Name: "Mentor"},
		Status:      model.TradeAccepted,
		CreatedAt:   created,
		ExpiresAt:   created.Add(24 * time.Hour),
		ResolvedAt:  &resolved,
	}
	out, err := DecodeTrade(EncodeTrade(in))
	require.NoError(t, err)
	require.NotNil(t, out.ResolvedAt)
	assert.True(t, resolved.Equal(*out.ResolvedAt))
	assert.Equal(t, in.Status, out.Status)
	assert.Equal(t, in.Offered, out.Offered)
}
