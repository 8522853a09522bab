package analyzer

import (
	"fmt"
	"strings"
	"time"
)

// Timezone maps a short user-facing code onto an IANA zone and the
// abbreviation shown in rendered timestamps.
type Timezone struct {
	Code string `json:"code"`
	IANA string `json:"iana"`
	Abbr string `json:"abbr"`
}

// Timezones are the zones the analyzer accepts, in display order.
var Timezones = []Timezone{
	{Code: "UTC", IANA: "UTC", Abbr: "UTC"},
	{Code: "PT", IANA: "America/Los_Angeles", Abbr: "PT"},
	{Code: "ET", IANA: "America/New_York", Abbr: "ET"},
	{Code: "GMT", IANA: "Europe/London", Abbr: "GMT"},
	{Code: "CST", IANA: "Asia/Shanghai", Abbr: "CST"},
	{Code: "JST", IANA: "Asia/Tokyo", Abbr: "JST"},
}

// TimezoneByCode looks a zone up by its code, case-insensitively.
func TimezoneByCode(code string) (Timezone, error) {
	for _, tz := range Timezones {
		if strings.EqualFold(tz.Code, code) {
			return tz, nil
		}
	}
	return Timezone{}, fmt.Errorf("unknown timezone %q", code)
}

// Location resolves the IANA zone. UTC avoids the zoneinfo lookup so it
// works even without tzdata on the host.
func (tz Timezone) Location() (*time.Location, error) {
	if tz.IANA == "UTC" {
		return time.UTC, nil
	}
	return time.LoadLocation(tz.IANA)
}
