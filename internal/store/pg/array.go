package pg

import (
	"fmt"
	"strings"
)

// pgStringArray scans a Postgres text[] value in its wire form ("{a,b}").
// Worker identifiers are ULIDs and never need quoting, but quoted elements
// are handled for safety.
type pgStringArray []string

func (a *pgStringArray) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*a = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into text[]", src)
	}

	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") || !strings.HasSuffix(raw, "}") {
		return fmt.Errorf("malformed array literal: %q", raw)
	}
	raw = raw[1 : len(raw)-1]
	if raw == "" {
		*a = []string{}
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		part = strings.Trim(part, `"`)
		if part != "" && part != "NULL" {
			out = append(out, part)
		}
	}
	*a = out
	return nil
}
