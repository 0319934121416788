package settings

import (
	"encoding/csv"
	"strings"
)

// ParseSheet reads a two-column "key","value" export line by line.
// Lines that do not parse, have fewer than two fields or an empty key are skipped.
// When a key repeats, the last line wins.
func ParseSheet(body []byte) map[string]string {
	text := strings.TrimPrefix(string(body), "\ufeff")
	values := make(map[string]string)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		r := csv.NewReader(strings.NewReader(line))
		r.FieldsPerRecord = -1
		r.TrimLeadingSpace = true
		fields, err := r.Read()
		if err != nil || len(fields) < 2 {
			continue
		}

		key := strings.TrimSpace(fields[0])
		if key == "" {
			continue
		}
		values[key] = strings.TrimSpace(fields[1])
	}

	return values
}
