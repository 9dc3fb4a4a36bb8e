// internal/ua/ua.go
//
// User-Agent parsing helpers.
//
// This wrapper isolates `github.com/avct/uasurfer` so the rest of the
// codebase never sees its enums or structs.  Access logs, dashboard
// templates, and bot filtering on public sites all read Info.
package ua

import (
	"fmt"
	"strconv"
	"strings"

	surfer "github.com/avct/uasurfer"
)

// Device classes reported in Info.Device.
const (
	DeviceDesktop = "Desktop"
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceBot     = "Bot"
	DeviceOther   = "Other"
)

// Info carries the UA attributes used by middleware and templates.
//
// Example (Chrome on macOS):
//
//	Browser   "Chrome"
//	Version   "125.0.6422"
//	OS        "MacOSX"
//	OSVersion "14.4"
//	Device    "Desktop"
//	Platform  "Mac"
//	Lang      "en-us"
type Info struct {
	Browser   string
	Version   string
	OS        string
	OSVersion string
	Device    string
	Platform  string
	IsBot     bool
	Lang      string
}

// Parse converts the User-Agent and Accept-Language headers into Info.
func Parse(raw, acceptLang string) Info {
	u := surfer.Parse(raw)

	info := Info{
		Browser:   strings.TrimPrefix(u.Browser.Name.String(), "Browser"),
		Version:   versionToString(u.Browser.Version),
		OS:        strings.TrimPrefix(u.OS.Name.String(), "OS"),
		OSVersion: versionToString(u.OS.Version),
		Platform:  strings.TrimPrefix(u.OS.Platform.String(), "Platform"),
		IsBot:     u.IsBot(),
		Lang:      PrimaryLang(acceptLang),
	}

	switch {
	case info.IsBot:
		info.Device = DeviceBot
	case u.DeviceType == surfer.DeviceComputer:
		info.Device = DeviceDesktop
	case u.DeviceType == surfer.DeviceTablet:
		info.Device = DeviceTablet
	case u.DeviceType == surfer.DevicePhone, u.DeviceType == surfer.DeviceWearable:
		info.Device = DeviceMobile
	default:
		info.Device = DeviceOther
	}
	return info
}

// PrimaryLang returns the first Accept-Language tag, lowercased, without
// its q-value.
func PrimaryLang(al string) string {
	if al == "" {
		return ""
	}
	tag, _, _ := strings.Cut(al, ",")
	tag, _, _ = strings.Cut(tag, ";")
	return strings.ToLower(strings.TrimSpace(tag))
}

// versionToString renders a version in dotted form while trimming
// trailing zeros, e.g. 17.0.0 → "17", 17.3.0 → "17.3", 17.3.1 → "17.3.1".
func versionToString(v surfer.Version) string {
	if v.Major == 0 && v.Minor == 0 && v.Patch == 0 {
		return ""
	}
	if v.Patch != 0 {
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	}
	if v.Minor != 0 {
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	return strconv.Itoa(int(v.Major))
}
