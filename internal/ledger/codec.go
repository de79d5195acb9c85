package ledger

import (
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"cardvault-api/internal/model"
)

// keySep joins category and name into a store row key. It never appears in cells.
const keySep = "\x1f"

func itemRowKey(key model.ItemKey) string {
	return key.Category + keySep + key.Name
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}

// EncodeOwnershipRow renders [category, name, "ownerId:count", ...].
// Owners with a zero count are pruned; owner cells are sorted by owner id.
func EncodeOwnershipRow(row model.OwnershipRow) []string {
	owners := make([]string, 0, len(row.Owners))
	for id, count := range row.Owners {
		if id == "" || count <= 0 {
			continue
		}
		owners = append(owners, id)
	}
	sort.Strings(owners)

	cells := make([]string, 0, 2+len(owners))
	cells = append(cells, row.Key.Category, row.Key.Name)
	for _, id := range owners {
		cells = append(cells, id+":"+strconv.Itoa(row.Owners[id]))
	}
	return cells
}

// DecodeOwnershipRow parses an ownership row. Empty and malformed owner cells are skipped.
func DecodeOwnershipRow(cells []string) (model.OwnershipRow, error) {
	if len(cells) < 2 || cells[0] == "" || cells[1] == "" {
		return model.OwnershipRow{}, fmt.Errorf("ownership row needs category and name, got %d cells", len(cells))
	}
	row := model.OwnershipRow{
		Key:    model.ItemKey{Category: cells[0], Name: cells[1]},
		Owners: make(map[string]int),
	}
	for _, cell := range cells[2:] {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			continue
		}
		i := strings.LastIndex(cell, ":")
		if i <= 0 {
			log.Printf("[Ledger] Skipping malformed owner cell %q in %s", cell, row.Key)
			continue
		}
		count, err := strconv.Atoi(cell[i+1:])
		if err != nil || count <= 0 {
			log.Printf("[Ledger] Skipping malformed owner cell %q in %s", cell, row.Key)
			continue
		}
		row.Owners[cell[:i]] += count
	}
	return row, nil
}

// EncodeBoardOffer renders [id, ownerId, ownerName, category, name, comment, createdAt].
func EncodeBoardOffer(o model.BoardOffer) []string {
	return []string{
		strconv.FormatInt(o.ID, 10),
		o.OwnerID,
		o.OwnerName,
		o.Item.Category,
		o.Item.Name,
		o.Comment,
		formatTime(o.CreatedAt),
	}
}

// DecodeBoardOffer parses a board row.
func DecodeBoardOffer(cells []string) (model.BoardOffer, error) {
	if len(cells) < 7 {
		return model.BoardOffer{}, fmt.Errorf("board row needs 7 cells, got %d", len(cells))
	}
	id, err := strconv.ParseInt(cells[0], 10, 64)
	if err != nil {
		return model.BoardOffer{}, fmt.Errorf("invalid board offer id %q: %w", cells[0], err)
	}
	createdAt, err := parseTime(cells[6])
	if err != nil {
		return model.BoardOffer{}, fmt.Errorf("invalid board offer time %q: %w", cells[6], err)
	}
	return model.BoardOffer{
		ID:        id,
		OwnerID:   cells[1],
		OwnerName: cells[2],
		Item:      model.ItemKey{Category: cells[3], Name: cells[4]},
		Comment:   cells[5],
		CreatedAt: createdAt,
	}, nil
}

// EncodeDiscovery renders [category, name, discovererId, discovererName, timestamp, discoveryIndex].
func EncodeDiscovery(d model.Discovery) []string {
	return []string{
		d.Item.Category,
		d.Item.Name,
		d.DiscovererID,
		d.DiscovererName,
		formatTime(d.Timestamp),
		strconv.Itoa(d.Index),
	}
}

// DecodeDiscovery parses a discovery row.
func DecodeDiscovery(cells []string) (model.Discovery, error) {
	if len(cells) < 6 {
		return model.Discovery{}, fmt.Errorf("discovery row needs 6 cells, got %d", len(cells))
	}
	ts, err := parseTime(cells[4])
	if err != nil {
		return model.Discovery{}, fmt.Errorf("invalid discovery time %q: %w", cells[4], err)
	}
	index, err := strconv.Atoi(cells[5])
	if err != nil {
		return model.Discovery{}, fmt.Errorf("invalid discovery index %q: %w", cells[5], err)
	}
	return model.Discovery{
		Item:           model.ItemKey{Category: cells[0], Name: cells[1]},
		DiscovererID:   cells[2],
		DiscovererName: cells[3],
		Timestamp:      ts,
		Index:          index,
	}, nil
}

// EncodeCounters renders [userId, lastDailyDate, lastSacrificeDate, bonusCredits, exchangeWeek, weeklyExchanges].
func EncodeCounters(c model.DailyCounters) []string {
	return []string{
		c.UserID,
		c.LastDailyDraw,
		c.LastSacrifice,
		strconv.Itoa(c.BonusCredits),
		c.ExchangeWeek,
		strconv.Itoa(c.WeeklyExchanges),
	}
}

// DecodeCounters parses a counters row. Missing trailing cells read as zero values.
func DecodeCounters(cells []string) (model.DailyCounters, error) {
	if len(cells) < 1 || cells[0] == "" {
		return model.DailyCounters{}, fmt.Errorf("counters row needs a user id")
	}
	get := func(i int) string {
		if i < len(cells) {
			return cells[i]
		}
		return ""
	}
	atoi := func(s string) (int, error) {
		if s == "" {
			return 0, nil
		}
		return strconv.Atoi(s)
	}
	bonus, err := atoi(get(3))
	if err != nil {
		return model.DailyCounters{}, fmt.Errorf("invalid bonus credits %q: %w", get(3), err)
	}
	weekly, err := atoi(get(5))
	if err != nil {
		return model.DailyCounters{}, fmt.Errorf("invalid weekly exchanges %q: %w", get(5), err)
	}
	return model.DailyCounters{
		UserID:          cells[0],
		LastDailyDraw:   get(1),
		LastSacrifice:   get(2),
		BonusCredits:    bonus,
		ExchangeWeek:    get(4),
		WeeklyExchanges: weekly,
	}, nil
}

// EncodeTrade renders a bazaar trade request row.
func EncodeTrade(tr model.TradeRequest) []string {
	resolved := ""
	if tr.ResolvedAt != nil {
		resolved = formatTime(*tr.ResolvedAt)
	}
	return []string{
		tr.ID,
		tr.RequesterID,
		tr.TargetID,
		tr.Offered.Category,
		tr.Offered.Name,
		tr.Requested.Category,
		tr.Requested.Name,
		string(tr.Status),
		formatTime(tr.CreatedAt),
		formatTime(tr.ExpiresAt),
		resolved,
	}
}

// DecodeTrade parses a trade request row.
func DecodeTrade(cells []string) (model.TradeRequest, error) {
	if len(cells) < 11 {
		return model.TradeRequest{}, fmt.Errorf("trade row needs 11 cells, got %d", len(cells))
	}
	createdAt, err := parseTime(cells[8])
	if err != nil {
		return model.TradeRequest{}, fmt.Errorf("invalid trade created time %q: %w", cells[8], err)
	}
	expiresAt, err := parseTime(cells[9])
	if err != nil {
		return model.TradeRequest{}, fmt.Errorf("invalid trade expiry %q: %w", cells[9], err)
	}
	tr := model.TradeRequest{
		ID:          cells[0],
		RequesterID: cells[1],
		TargetID:    cells[2],
		Offered:     model.ItemKey{Category: cells[3], Name: cells[4]},
		Requested:   model.ItemKey{Category: cells[5], Name: cells[6]},
		Status:      model.TradeStatus(cells[7]),
		CreatedAt:   createdAt,
		ExpiresAt:   expiresAt,
	}
	if cells[10] != "" {
		resolved, err := parseTime(cells[10])
		if err != nil {
			return model.TradeRequest{}, fmt.Errorf("invalid trade resolved time %q: %w", cells[10], err)
		}
		tr.ResolvedAt = &resolved
	}
	return tr, nil
}
