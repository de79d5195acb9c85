package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardvault-api/internal/model"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()

	var out []Event
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var ev Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		out = append(out, ev)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestTrail_RecordsAndRotatesHourly(t *testing.T) {
	dir := t.TempDir()
	trail := NewTrail(dir)
	now := time.Date(2025, 4, 2, 9, 59, 0, 0, time.UTC)
	trail.w.now = func() time.Time { return now }

	aria := model.ItemKey{Category: "Students", Name: "Aria"}
	trail.Record(Event{Type: EventDraw, UserID: "u1", Got: []model.ItemKey{aria}})
	trail.Record(Event{Type: EventVaultDeposit, UserID: "u1", Gave: []model.ItemKey{aria}})
	now = now.Add(2 * time.Minute)
	trail.Record(Event{Type: EventBonusGranted, UserID: "u2", Detail: "3"})
	require.NoError(t, trail.Close())

	first := readEvents(t, trail.w.PathForHour("2025-04-02-09"))
	require.Len(t, first, 2)
	assert.Equal(t, EventDraw, first[0].Type)
	assert.Equal(t, []model.ItemKey{aria}, first[0].Got)
	assert.Equal(t, time.Date(2025, 4, 2, 9, 59, 0, 0, time.UTC), first[0].Time)

	second := readEvents(t, trail.w.PathForHour("2025-04-02-10"))
	require.Len(t, second, 1)
	assert.Equal(t, "u2", second[0].UserID)
}

func TestOpen_EmptyDirIsNop(t *testing.T) {
	r := Open("")
	_, ok := r.(Nop)
	assert.True(t, ok)
	r.Record(Event{Type: EventDraw})
	assert.NoError(t, r.Close())
}
