package editplan

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var requiredCaptionHeaders = []string{"start_time", "end_time", "text"}

// readCaptionFile loads transcript segments from YAML, CSV or TSV.
func readCaptionFile(path string) ([]rawCaption, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv":
		segments, err := parseCaptionTable(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		return segments, nil
	}
	var segments []rawCaption
	if err := yaml.Unmarshal(data, &segments); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return segments, nil
}

// parseCaptionTable reads a delimited transcript with a header row naming
// start_time, end_time, text and optionally confidence.
func parseCaptionTable(data []byte) ([]rawCaption, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("caption file is empty")
	}
	comma, err := detectDelimiter(data)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.FieldsPerRecord = -1

	var (
		segments  []rawCaption
		headerMap map[string]int
		line      int
	)
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		line++

		if line == 1 {
			if headerMap, err = buildHeaderMap(record); err != nil {
				return nil, err
			}
			continue
		}
		if isEmptyRecord(record) {
			continue
		}

		get := func(field string) string {
			pos, ok := headerMap[field]
			if !ok || pos >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[pos])
		}
		seg := rawCaption{Text: get("text")}
		if v := get("start_time"); v != "" {
			seg.StartTime = v
		}
		if v := get("end_time"); v != "" {
			seg.EndTime = v
		}
		if v := get("confidence"); v != "" {
			c, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: confidence %q is not a number", line, v)
			}
			seg.Confidence = c
		}
		segments = append(segments, seg)
	}
	if headerMap == nil {
		return nil, errors.New("missing header row")
	}
	return segments, nil
}

func detectDelimiter(data []byte) (rune, error) {
	header := string(data)
	if i := strings.IndexAny(header, "\r\n"); i >= 0 {
		header = header[:i]
	}
	switch {
	case strings.Contains(header, "\t"):
		return '\t', nil
	case strings.Contains(header, ","):
		return ',', nil
	}
	return 0, errors.New("unable to detect delimiter (expected comma or tab)")
}

func buildHeaderMap(header []string) (map[string]int, error) {
	headerMap := make(map[string]int, len(header))
	for idx, raw := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff")))
		if _, exists := headerMap[name]; exists {
			return nil, fmt.Errorf("duplicate header: %s", name)
		}
		headerMap[name] = idx
	}
	for _, required := range requiredCaptionHeaders {
		if _, ok := headerMap[required]; !ok {
			return nil, fmt.Errorf("missing required header: %s", required)
		}
	}
	return headerMap, nil
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
