// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package filters implements the --filter expressions applied to list
// output.
package filters

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/apex/log"
	"github.com/tidwall/gjson"

	"github.com/staranto/assetcache/internal/attrs"
)

// DelimEnv overrides the "," between filter expressions.
const DelimEnv = "ASSETCACHE_FILTER_DELIM"

// filterRegex splits an expression into key, operator and target. Operators
// are one of = ^ ~ < > @ or /, optionally negated with a leading !.
var filterRegex = regexp.MustCompile(`^(.*?)(!?[=^~<>@/])(.*)$`)

// Filter is one parsed --filter expression.
type Filter struct {
	Key     string
	Negate  bool
	Operand string
	Target  string
}

// BuildFilters parses spec. Malformed expressions are logged and dropped.
func BuildFilters(spec string) []Filter {
	//nolint:prealloc
	var filters []Filter

	if spec == "" {
		return filters
	}

	delim := ","
	if d, ok := os.LookupEnv(DelimEnv); ok && d != "" {
		delim = d
	}

	for _, expr := range strings.Split(spec, delim) {
		parts := filterRegex.FindStringSubmatch(expr)
		if parts == nil || parts[1] == "" {
			log.Error("invalid filter: " + expr)
			continue
		}

		operand, negate := strings.CutPrefix(parts[2], "!")
		filters = append(filters, Filter{
			Key:     strings.TrimSpace(parts[1]),
			Negate:  negate,
			Operand: operand,
			Target:  parts[3],
		})
	}

	return filters
}

// FilterDataset keeps the rows of candidates (a JSON array) that pass every
// filter in spec and projects each onto al. Filter keys name an attr by its
// output key.
func FilterDataset(candidates gjson.Result, al attrs.AttrList, spec string) []map[string]interface{} {
	filters := BuildFilters(spec)
	results := make([]map[string]interface{}, 0)

	candidates.ForEach(func(_, candidate gjson.Result) bool {
		if !applyFilters(candidate, al, filters) {
			return true
		}

		row := make(map[string]interface{}, len(al))
		for _, attr := range al {
			if attr.Key == "*" {
				continue
			}
			row[attr.OutputKey] = candidate.Get(attr.Key).Value()
		}
		results = append(results, row)
		return true
	})

	return results
}

// applyFilters reports whether candidate passes every filter. A filter whose
// key matches no attr is reported and ignored.
func applyFilters(candidate gjson.Result, al attrs.AttrList, filters []Filter) bool {
	for _, filter := range filters {
		var key string
		for _, attr := range al {
			if attr.OutputKey == filter.Key {
				key = attr.Key
				break
			}
		}

		if key == "" {
			msg := fmt.Sprintf("filter key not found: %s", filter.Key)
			log.Error(msg)
			fmt.Fprintf(os.Stderr, "warning: %s\n", msg)
			continue
		}

		value := candidate.Get(key).Value()
		if value == nil {
			return false
		}

		var ok bool
		switch v := value.(type) {
		case string:
			ok = checkStringOperand(v, filter)
		case bool:
			ok = checkStringOperand(strconv.FormatBool(v), filter)
		case float64:
			ok = checkNumericOperand(v, filter)
		default:
			ok = filter.Operand == "@" && checkContainsOperand(value, filter)
		}

		if !ok {
			return false
		}
	}

	return true
}

// checkContainsOperand handles @ against list and object values.
func checkContainsOperand(value interface{}, filter Filter) bool {
	switch val := value.(type) {
	case []any:
		for _, item := range val {
			if fmt.Sprint(item) == filter.Target {
				return !filter.Negate
			}
		}
		return filter.Negate
	case map[string]any:
		_, found := val[filter.Target]
		return found != filter.Negate
	default:
		log.Error(fmt.Sprintf("unsupported type for contains filtering: %T", value))
		return false
	}
}

// checkNumericOperand compares numerically for = < >. Any other operand
// falls back to comparing the formatted number as a string.
func checkNumericOperand(value float64, filter Filter) bool {
	switch filter.Operand {
	case "=", ">", "<":
	default:
		return checkStringOperand(strconv.FormatFloat(value, 'f', -1, 64), filter)
	}

	tgt, err := strconv.ParseFloat(strings.TrimSpace(filter.Target), 64)
	if err != nil {
		log.Error("invalid numeric target: " + filter.Target)
		return false
	}

	switch filter.Operand {
	case ">":
		return (value > tgt) == !filter.Negate
	case "<":
		return (value < tgt) == !filter.Negate
	default:
		return (value == tgt) == !filter.Negate
	}
}

func checkStringOperand(value string, filter Filter) bool {
	switch filter.Operand {
	case "=":
		return value == filter.Target == !filter.Negate
	case "~":
		return strings.EqualFold(value, filter.Target) == !filter.Negate
	case "^":
		return strings.HasPrefix(value, filter.Target) == !filter.Negate
	case ">":
		return value > filter.Target == !filter.Negate
	case "<":
		return value < filter.Target == !filter.Negate
	case "@":
		return strings.Contains(value, filter.Target) == !filter.Negate
	case "/":
		matched, err := regexp.MatchString(filter.Target, value)
		if err != nil {
			log.Error("invalid regex: " + filter.Target)
			return false
		}
		return matched == !filter.Negate
	default:
		log.Error("unsupported filtering operand: " + filter.Operand)
		return false
	}
}
