// Package transform maps raw analytical result rows to the public record
// shape, including attribution-source classification.
package transform

import (
	"regexp"
	"strings"

	"event-feed/internal/domain"
)

// NoSource is the attribution source reported when the referral string is
// absent or unrecognized.
const NoSource = "no-source"

// sourcePattern captures the leading provider group of a referral string,
// e.g. "fb_web" from "fb_web_criteo_12345".
var sourcePattern = regexp.MustCompile(`(?i)^([a-z]{1,6})(_[a-z]{1,3})?`)

// knownSources are the attribution providers reported as-is.
var knownSources = map[string]struct{}{
	"fb_web":     {},
	"fb_app":     {},
	"google_web": {},
	"google_app": {},
	"direct":     {},
}

// Source classifies a raw referral string into a known attribution source.
func Source(referral string) string {
	if referral == "" {
		return NoSource
	}
	group := sourcePattern.FindString(referral)
	if group == "" {
		return NoSource
	}
	group = strings.ToLower(group)
	if _, ok := knownSources[group]; ok {
		return group
	}
	return NoSource
}

// Records converts raw rows into public event records. It is a pure function:
// unknown or missing columns degrade to zero values, never errors.
func Records(rows []domain.Row) []domain.EventRecord {
	records := make([]domain.EventRecord, 0, len(rows))
	for _, row := range rows {
		referral := stringField(row, "referral_source")
		records = append(records, domain.EventRecord{
			AttributionURL: referral,
			AppID:          stringField(row, "app_package_name"),
			OrderedID:      intField(row, "event_timestamp"),
			User: domain.UserRecord{
				ID: stringField(row, "user_pseudo_id"),
				Metadata: domain.GeoMetadata{
					Continent: stringField(row, "continent"),
					Country:   stringField(row, "country"),
					Region:    stringField(row, "region"),
					City:      stringField(row, "city"),
				},
				AdAttribution: domain.AdAttribution{
					Source: Source(referral),
					Data: domain.AttributionData{
						AdvertisingID: stringField(row, "advertising_id"),
					},
				},
				Event: domain.EventDetail{
					Name:      stringField(row, "event_name"),
					Date:      stringField(row, "event_date"),
					Timestamp: intField(row, "event_timestamp"),
					Label:     stringField(row, "label"),
					Action:    stringField(row, "action"),
					Value:     row["value"],
					ValueType: stringField(row, "type"),
				},
			},
		})
	}
	return records
}

func stringField(row domain.Row, name string) string {
	switch v := row[name].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func intField(row domain.Row, name string) int64 {
	switch v := row[name].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
