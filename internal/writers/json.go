package writers

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"oligoscreen/internal/model"
)

// WriteJSON writes res as indented JSON.
func WriteJSON(w io.Writer, res *model.ScreeningResults) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// ReadJSON decodes results previously written by WriteJSON.
func ReadJSON(r io.Reader) (*model.ScreeningResults, error) {
	var res model.ScreeningResults
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	if res.ResultsByLength == nil {
		res.ResultsByLength = make(map[int]model.LengthResult)
	}
	return &res, nil
}

// ReadJSONFile reads results from path; "-" is stdin.
func ReadJSONFile(path string) (*model.ScreeningResults, error) {
	if path == "-" {
		return ReadJSON(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	res, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}
