package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SourceType distinguishes feed-style sources from JSON API sources.
type SourceType string

const (
	SourceTypeRSS SourceType = "rss"
	SourceTypeAPI SourceType = "api"
)

// Source is a configured feed or API origin.
type Source struct {
	ID          string      `db:"id"           json:"id"`
	Name        string      `db:"name"         json:"name"`
	URL         string      `db:"url"          json:"url"`
	FeedURLs    StringList  `db:"feed_urls"    json:"feed_urls"`
	Language    string      `db:"language"     json:"language"`
	CategoryIDs StringList  `db:"category_ids" json:"category_ids"`
	Type        SourceType  `db:"source_type"  json:"source_type"`
	Active      bool        `db:"active"       json:"active"`
	LastScraped *time.Time  `db:"last_scraped" json:"last_scraped,omitempty"`
	CreatedAt   time.Time   `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at"   json:"updated_at"`
}

// StringList is a JSONB-mapped slice of strings.
type StringList []string

// Value implements driver.Valuer for database storage.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for database retrieval.
func (l *StringList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("string list: unsupported scan type %T", value)
	}
	return json.Unmarshal(bytes, l)
}
