package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/newsforge/pipeline/internal/domain"
)

// Nullable JSONB wrappers for the optional Article sub-records. A nil value
// round-trips as SQL NULL rather than the JSON literal "null".

type factCheckJSON struct {
	value *domain.FactCheck
}

func (j factCheckJSON) Value() (driver.Value, error) {
	if j.value == nil {
		return nil, nil
	}
	return json.Marshal(j.value)
}

func (j *factCheckJSON) Scan(src any) error {
	j.value = nil
	return scanJSON(src, &j.value)
}

type socialMediaJSON struct {
	value *domain.SocialMedia
}

func (j socialMediaJSON) Value() (driver.Value, error) {
	if j.value == nil {
		return nil, nil
	}
	return json.Marshal(j.value)
}

func (j *socialMediaJSON) Scan(src any) error {
	j.value = nil
	return scanJSON(src, &j.value)
}

type translationsJSON struct {
	value []domain.Translation
}

func (j translationsJSON) Value() (driver.Value, error) {
	if j.value == nil {
		return nil, nil
	}
	return json.Marshal(j.value)
}

func (j *translationsJSON) Scan(src any) error {
	j.value = nil
	return scanJSON(src, &j.value)
}

func scanJSON(src, dst any) error {
	if src == nil {
		return nil
	}
	bytes, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("jsonb: unsupported scan type %T", src)
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, dst)
}
