package application

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ericfisherdev/accountvault/internal/domain/model"
)

// deviceNumberPattern captures the device number operators write in notes,
// e.g. "iPhone 7", "phone #12", "device 3", "Redmi #8".
var deviceNumberPattern = regexp.MustCompile(`(?i)(iphone|phone|device|#)\s*#?\s*(\d+)`)

const (
	notLoggedInMarker = "not yet logged in"

	androidSortBase     int64 = 1000
	androidMiscSortBase int64 = 2000

	// Legacy fixed mappings for notes that predate device numbering.
	// TODO: drop once the "nelson" and "tiktok redmi" accounts have numbered notes.
	legacyNelsonDevice      int64 = 7
	legacyTikTokRedmiDevice int64 = 8

	iosFallbackDevice int64 = 1

	// maxSortOffset keeps every base+offset sum inside int64.
	maxSortOffset = math.MaxInt64 - androidMiscSortBase
)

// GroupByDevice buckets accounts by the phone their notes say they are logged
// in on. Accounts with empty notes, or notes containing "not yet logged in",
// appear in no group. Groups are ordered iOS first (by device number), then
// numbered Android devices, then single-account Android misc buckets ordered
// by last update. GroupByDevice never fails: notes it cannot interpret fall
// into fallback buckets.
func GroupByDevice(accounts []model.Account) []model.DeviceGroup {
	groups := make(map[string]*model.DeviceGroup)
	var keys []string

	for _, acc := range accounts {
		notes := strings.ToLower(strings.TrimSpace(acc.Notes))
		if notes == "" || strings.Contains(notes, notLoggedInMarker) {
			continue
		}

		kind, key, sortOrder := classifyNotes(notes, acc)

		g, ok := groups[key]
		if !ok {
			g = &model.DeviceGroup{
				Key:         key,
				DisplayName: deviceDisplayName(kind, key),
				Kind:        kind,
				SortOrder:   sortOrder,
			}
			groups[key] = g
			keys = append(keys, key)
		}
		g.Members = append(g.Members, acc)
	}

	result := make([]model.DeviceGroup, 0, len(keys))
	for _, key := range keys {
		result = append(result, *groups[key])
	}

	// Ties only happen between unrelated buckets; break them by key so the
	// layout does not depend on input order.
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].SortOrder != result[j].SortOrder {
			return result[i].SortOrder < result[j].SortOrder
		}
		return result[i].Key < result[j].Key
	})

	return result
}

// classifyNotes resolves normalized notes to a device kind, bucket key and
// sort order.
func classifyNotes(notes string, acc model.Account) (model.DeviceKind, string, int64) {
	number, hasNumber := extractDeviceNumber(notes)

	if isAndroidNotes(notes) {
		switch {
		case hasNumber:
			return model.DeviceKindAndroid, androidKey(number), androidSortBase + number
		case strings.Contains(notes, "nelson"):
			return model.DeviceKindAndroid, androidKey(legacyNelsonDevice), androidSortBase + legacyNelsonDevice
		case strings.Contains(notes, "tiktok") && strings.Contains(notes, "redmi"):
			return model.DeviceKindAndroid, androidKey(legacyTikTokRedmiDevice), androidSortBase + legacyTikTokRedmiDevice
		default:
			return model.DeviceKindAndroid, model.AndroidMiscKeyPrefix + acc.ID, miscSortOrder(acc)
		}
	}

	if !hasNumber {
		number = iosFallbackDevice
	}
	return model.DeviceKindIOS, "iphone_" + strconv.FormatInt(number, 10), number
}

// miscSortOrder orders misc buckets by last update. Pre-epoch and zero
// timestamps sort first; the offset is clamped so the sum cannot wrap.
func miscSortOrder(acc model.Account) int64 {
	if acc.UpdatedAt.IsZero() {
		return androidMiscSortBase
	}
	ms := min(max(acc.UpdatedAt.UnixMilli(), 0), maxSortOffset)
	return androidMiscSortBase + ms
}

func isAndroidNotes(notes string) bool {
	return strings.Contains(notes, "redmi") || strings.Contains(notes, "android")
}

// extractDeviceNumber returns the first device number found in notes.
// Numbers too large to add to a sort base count as no number.
func extractDeviceNumber(notes string) (int64, bool) {
	m := deviceNumberPattern.FindStringSubmatch(notes)
	if m == nil {
		return 0, false
	}

	n, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil || n > maxSortOffset {
		return 0, false
	}
	return n, true
}

func androidKey(number int64) string {
	return "android_" + strconv.FormatInt(number, 10)
}

// deviceDisplayName derives the label shown for a group from its key.
func deviceDisplayName(kind model.DeviceKind, key string) string {
	if kind == model.DeviceKindIOS {
		return "iPhone #" + strings.TrimPrefix(key, "iphone_")
	}
	if strings.HasPrefix(key, model.AndroidMiscKeyPrefix) {
		return model.AndroidMiscDisplayName
	}
	return "Android Phone #" + strings.TrimPrefix(key, "android_")
}

// FilterAccounts returns the accounts whose handle, username or notes contain
// query, ignoring case. An empty or blank query returns accounts unchanged.
func FilterAccounts(accounts []model.Account, query string) []model.Account {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return accounts
	}

	filtered := make([]model.Account, 0, len(accounts))
	for _, acc := range accounts {
		if strings.Contains(strings.ToLower(acc.Handle), q) ||
			strings.Contains(strings.ToLower(acc.Username), q) ||
			strings.Contains(strings.ToLower(acc.Notes), q) {
			filtered = append(filtered, acc)
		}
	}
	return filtered
}
