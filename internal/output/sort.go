// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"sort"
	"strings"
)

// SortDataset sorts rows in place by spec, a comma separated list of output
// keys. A key prefixed with - sorts descending and one prefixed with ! sorts
// case sensitively. Numbers compare numerically. Ties keep their order.
func SortDataset(dataset []map[string]interface{}, spec string) {
	if spec == "" {
		return
	}

	type sortKey struct {
		name          string
		desc          bool
		caseSensitive bool
	}

	var keys []sortKey
	for _, s := range strings.Split(spec, ",") {
		s = strings.TrimSpace(s)
		k := sortKey{}
		for len(s) > 0 && (s[0] == '-' || s[0] == '!') {
			if s[0] == '-' {
				k.desc = true
			} else {
				k.caseSensitive = true
			}
			s = s[1:]
		}
		if s == "" {
			continue
		}
		k.name = s
		keys = append(keys, k)
	}

	sort.SliceStable(dataset, func(i, j int) bool {
		for _, k := range keys {
			c := compare(dataset[i][k.name], dataset[j][k.name], k.caseSensitive)
			if c == 0 {
				continue
			}
			if k.desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

// compare orders nil first, then numbers, then everything else as strings.
func compare(a, b interface{}, caseSensitive bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if x, ok := a.(float64); ok {
		if y, ok := b.(float64); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			default:
				return 0
			}
		}
	}

	x, y := InterfaceToString(a), InterfaceToString(b)
	if !caseSensitive {
		x, y = strings.ToLower(x), strings.ToLower(y)
	}
	return strings.Compare(x, y)
}
