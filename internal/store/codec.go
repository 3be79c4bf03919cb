package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"oligoscreen/internal/model"
)

func encode(res *model.ScreeningResults) ([]byte, error) {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}
	return append(b, '\n'), nil
}

func decode(key string, b []byte) (*model.ScreeningResults, error) {
	var res model.ScreeningResults
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &res, nil
}

// newInfo stamps a fresh run id for a Put.
func newInfo(key string, res *model.ScreeningResults, size int) Info {
	return Info{
		Key:      key,
		RunID:    uuid.NewString(),
		Template: res.TemplateName,
		Size:     int64(size),
		SavedAt:  time.Now().UTC(),
	}
}
