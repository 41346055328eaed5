// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package attrs

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/dustin/go-humanize"
)

var lengthRegex = regexp.MustCompile(`-?\d+`)

// now is swapped out by tests.
var now = time.Now

// Attr is one column of list output. Key is a gjson path into each row.
type Attr struct {
	// The gjson path to extract from the row.
	Key string `yaml:"key"`
	// Should this Attr be included in output or is it just
	// intended for filtering and sorting?
	Include bool `yaml:"include"`
	// The key to use in the output. Also the column title when output=text.
	OutputKey string `yaml:"outputKey"`
	// Transformation spec to apply to the output value.
	TransformSpec string `yaml:"transformSpec"`
}

// Transform applies the attr's TransformSpec to value.
//
//	t  RFC3339 timestamp to local time (TZ must be set)
//	a  RFC3339 timestamp to a relative age ("3 hours ago")
//	h  number of bytes to a human size ("1.2 kB")
//	l  lower case, u upper case (the last one wins)
//	n  truncate to n runes, -n elide the middle
func (a *Attr) Transform(value interface{}) interface{} {
	if strings.Contains(a.TransformSpec, "h") {
		if n, ok := value.(float64); ok && n >= 0 {
			return humanize.Bytes(uint64(n))
		}
	}

	result, ok := value.(string)
	if !ok {
		return value
	}

	if strings.ContainsAny(a.TransformSpec, "aA") {
		if t, err := time.Parse(time.RFC3339Nano, result); err == nil {
			return humanize.RelTime(t, now(), "ago", "from now")
		}
		log.Debugf("not a timestamp: %s", result)
	}

	// Convert UTC time to local, but only when a zone has been named.
	if strings.ContainsAny(a.TransformSpec, "tT") {
		if tz := os.Getenv("TZ"); tz != "" {
			loc, err := time.LoadLocation(tz)
			if err == nil {
				t, err := time.Parse(time.RFC3339Nano, result)
				if err == nil {
					result = t.In(loc).Format("2006-01-02T15:04:05MST")
				} else {
					log.Error("failed to parse time: " + result)
				}
			}
		}
	}

	// The last case letter wins so an attr spec can override a global one.
	lastL := strings.LastIndexAny(a.TransformSpec, "lL")
	lastU := strings.LastIndexAny(a.TransformSpec, "uU")

	if lastL > lastU {
		result = strings.ToLower(result)
	} else if lastU > lastL {
		result = strings.ToUpper(result)
	}

	// Same rule for lengths: the last one wins.
	if match := lengthRegex.FindAllString(a.TransformSpec, -1); len(match) != 0 {
		l, _ := strconv.Atoi(match[len(match)-1])
		result = truncate(result, l)
	}

	return result
}

// truncate shortens s to abs(l) runes. A negative l keeps both ends and
// joins them with "..".
func truncate(s string, l int) string {
	runes := []rune(s)
	abs := int(math.Abs(float64(l)))
	if len(runes) <= abs {
		return s
	}
	if l >= 0 {
		return string(runes[:l])
	}
	side := max(abs/2-1, 1)
	return string(runes[:side]) + ".." + string(runes[len(runes)-side:])
}

type AttrList []Attr

// String renders the list back into --attrs form.
func (a *AttrList) String() string {
	result := make([]string, 0, len(*a))
	for _, attr := range *a {
		result = append(result, fmt.Sprintf("%s:%s:%s", attr.Key, attr.OutputKey, attr.TransformSpec))
	}
	return strings.Join(result, ",")
}

// Set parses an --attrs value and merges it into the list. Each comma
// separated spec is key[:output[:transform]]. A leading ! keeps the attr for
// filtering and sorting but hides it from output. * carries a transform
// applied to every attr.
func (a *AttrList) Set(value string) error {
	if value == "" || value == "*" {
		return nil
	}

	const (
		keyIdx = iota
		outputIdx
		transformIdx
	)

	specs := strings.Split(value, ",")
specloop:
	for _, spec := range specs {
		attr := Attr{
			Include: true,
		}

		fields := strings.Split(spec, ":")

		attr.Key = strings.TrimPrefix(strings.TrimSpace(fields[keyIdx]), ".")
		if strings.HasPrefix(attr.Key, "!") {
			attr.Include = false
			attr.Key = strings.TrimPrefix(attr.Key[1:], ".")
		}
		if attr.Key == "" {
			return fmt.Errorf("empty attribute in %q", value)
		}

		if attr.Key == "*" {
			attr.Include = false
		}

		// Without an explicit output key, use the last path segment.
		if len(fields) == 1 || strings.TrimSpace(fields[outputIdx]) == "" {
			segments := strings.Split(attr.Key, ".")
			attr.OutputKey = segments[len(segments)-1]
		} else {
			attr.OutputKey = strings.TrimSpace(fields[outputIdx])
		}

		if len(fields) > transformIdx {
			attr.TransformSpec = strings.TrimSpace(fields[transformIdx])
		}

		// An attr that is already present (a command default, or entered twice)
		// is updated in place.
		for i := range *a {
			if (*a)[i].Key == attr.Key || (*a)[i].OutputKey == attr.Key {
				(*a)[i].Include = attr.Include
				(*a)[i].OutputKey = attr.OutputKey
				(*a)[i].TransformSpec = attr.TransformSpec
				continue specloop
			}
		}

		*a = append(*a, attr)
	}

	return nil
}

// SetGlobalTransformSpec prepends the * attr's transform, if any, to every
// attr in the list.
func (a *AttrList) SetGlobalTransformSpec() {
	spec := ""
	for i := range *a {
		if (*a)[i].Key == "*" {
			spec = (*a)[i].TransformSpec
			break
		}
	}

	if spec == "" {
		return
	}

	for i := range *a {
		(*a)[i].TransformSpec = spec + "," + (*a)[i].TransformSpec
	}
}

func (a *AttrList) Type() string {
	return "list"
}
