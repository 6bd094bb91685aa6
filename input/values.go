package input

import (
	"fmt"
	"strconv"
	"strings"

	"dtc/content"
	"dtc/geom"
)

// attrValue converts an attribute string into the Go type of a schema
// field, with the field default as the type witness. Fields without a
// typed default (required string fields, open kind attributes) pass
// through as strings.
func attrValue(spec content.FieldSpec, raw string) (any, error) {
	switch spec.Default.(type) {
	case geom.Abs:
		return parseLength(raw)
	case geom.Ratio:
		return parseRatio(raw)
	case geom.Fr:
		return parseFraction(raw)
	case int:
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("want an integer, got %q", raw)
		}
		return v, nil
	case bool:
		return parseBool(raw)
	case string:
		return raw, nil
	case *content.Node:
		return nil, fmt.Errorf("field takes element content, not an attribute")
	case nil:
		return raw, nil
	}
	return nil, fmt.Errorf("field cannot be given as an attribute")
}

// parseLength accepts pt, mm, cm and in dimensions. A bare zero passes.
func parseLength(raw string) (any, error) {
	s := strings.TrimSpace(raw)
	units := []struct {
		suffix string
		conv   func(float64) geom.Abs
	}{
		{"pt", geom.Pt},
		{"mm", geom.Mm},
		{"cm", geom.Cm},
		{"in", geom.In},
	}
	for _, u := range units {
		num, found := strings.CutSuffix(s, u.suffix)
		if !found {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return nil, fmt.Errorf("want a length like 12pt, got %q", raw)
		}
		return u.conv(v), nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && v == 0 {
		return geom.Abs(0), nil
	}
	return nil, fmt.Errorf("want a length like 12pt, got %q", raw)
}

func parseRatio(raw string) (any, error) {
	s := strings.TrimSpace(raw)
	if num, found := strings.CutSuffix(s, "%"); found {
		if v, err := strconv.ParseFloat(strings.TrimSpace(num), 64); err == nil {
			return geom.Ratio(v / 100), nil
		}
	}
	return nil, fmt.Errorf("want a percentage, got %q", raw)
}

func parseFraction(raw string) (any, error) {
	s := strings.TrimSpace(raw)
	if num, found := strings.CutSuffix(s, "fr"); found {
		if v, err := strconv.ParseFloat(strings.TrimSpace(num), 64); err == nil {
			return geom.Fr(v), nil
		}
	}
	return nil, fmt.Errorf("want a fraction like 1fr, got %q", raw)
}

func parseBool(raw string) (bool, error) {
	switch strings.TrimSpace(raw) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("want true or false, got %q", raw)
}
