package model

import "strings"

// DeviceKind identifies the operating system family of an inferred device.
type DeviceKind string

const (
	DeviceKindIOS     DeviceKind = "ios"
	DeviceKindAndroid DeviceKind = "android"
)

// DeviceGroup is a set of accounts inferred to be logged in on the same
// physical phone. Groups are derived from account notes on every read and are
// never persisted.
type DeviceGroup struct {
	Key         string // e.g., "iphone_3", "android_7", "android_misc_<id>"
	DisplayName string
	Kind        DeviceKind
	SortOrder   int64
	Members     []Account
}

// IsMisc reports whether the group is a single-account fallback bucket.
func (g DeviceGroup) IsMisc() bool {
	return strings.HasPrefix(g.Key, AndroidMiscKeyPrefix)
}

// AndroidMiscKeyPrefix starts the key of every single-account Android bucket;
// the account ID follows it.
const AndroidMiscKeyPrefix = "android_misc_"

// AndroidMiscDisplayName is shown for Android accounts with no device number.
const AndroidMiscDisplayName = "Android Device"
