package domain

// EventRecord is the public JSON shape of one analytics event row.
type EventRecord struct {
	AttributionURL string     `json:"attribution_url"`
	AppID          string     `json:"app_id"`
	OrderedID      int64      `json:"ordered_id"`
	User           UserRecord `json:"user"`
}

// UserRecord groups user identity, geo metadata, attribution, and the event.
type UserRecord struct {
	ID            string        `json:"id"`
	Metadata      GeoMetadata   `json:"metadata"`
	AdAttribution AdAttribution `json:"ad_attribution"`
	Event         EventDetail   `json:"event"`
}

// GeoMetadata is the coarse location recorded with the event.
type GeoMetadata struct {
	Continent string `json:"continent"`
	Country   string `json:"country"`
	Region    string `json:"region"`
	City      string `json:"city"`
}

// AdAttribution carries the classified attribution source and its raw data.
type AdAttribution struct {
	Source string          `json:"source"`
	Data   AttributionData `json:"data"`
}

// AttributionData holds identifiers attached to the attribution.
type AttributionData struct {
	AdvertisingID string `json:"advertising_id"`
}

// EventDetail describes the logged event itself.
type EventDetail struct {
	Name      string      `json:"name"`
	Date      string      `json:"date"`
	Timestamp int64       `json:"timestamp"`
	Label     string      `json:"label"`
	Action    string      `json:"action"`
	Value     interface{} `json:"value"`
	ValueType string      `json:"value_type"`
}
