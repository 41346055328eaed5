// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"

	"github.com/apex/log"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/charmbracelet/lipgloss/v2/table"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/staranto/assetcache/internal/attrs"
	"github.com/staranto/assetcache/internal/config"
	"github.com/staranto/assetcache/internal/filters"
)

// Formats accepted by --output.
var Formats = []string{"text", "json", "yaml"}

// SliceDiceSpit filters, transforms, sorts and renders raw, a JSON array of
// rows, according to the command's output flags.
func SliceDiceSpit(raw []byte, al attrs.AttrList, cmd *cli.Command, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}

	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("invalid result set")
	}

	// Filter first so the rest of the work is on a smaller dataset.
	dataset := filters.FilterDataset(gjson.ParseBytes(raw), al, cmd.String("filter"))

	// Sort on raw values, before ages and sizes become display strings.
	SortDataset(dataset, cmd.String("sort"))

	for _, row := range dataset {
		for i := range al {
			if al[i].TransformSpec != "" && al[i].Key != "*" {
				row[al[i].OutputKey] = al[i].Transform(row[al[i].OutputKey])
			}
		}
	}

	switch cmd.String("output") {
	case "json":
		return writeJSON(w, visible(dataset, al))
	case "yaml":
		return writeYAML(w, visible(dataset, al))
	default:
		TableWriter(dataset, al, cmd, w)
		return nil
	}
}

// Spit renders a single value. Text output is a two column field/value
// table of its top level JSON fields.
func Spit(v any, cmd *cli.Command, w io.Writer) error {
	if w == nil {
		w = os.Stdout
	}

	switch cmd.String("output") {
	case "json":
		return writeJSON(w, v)
	case "yaml":
		return writeYAML(w, v)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	var rows []map[string]interface{}
	gjson.ParseBytes(raw).ForEach(func(k, val gjson.Result) bool {
		rows = append(rows, map[string]interface{}{"field": k.String(), "value": val.Value()})
		return true
	})

	al := attrs.AttrList{
		{Key: "field", OutputKey: "field", Include: true},
		{Key: "value", OutputKey: "value", Include: true},
	}
	TableWriter(rows, al, cmd, w)
	return nil
}

// visible drops the columns that are only there for filtering and sorting.
func visible(dataset []map[string]interface{}, al attrs.AttrList) []map[string]interface{} {
	for _, row := range dataset {
		for _, attr := range al {
			if !attr.Include {
				delete(row, attr.OutputKey)
			}
		}
	}
	return dataset
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// TableWriter renders the result set in a tabular form honoring color,
// titles and padding options.
func TableWriter(
	resultSet []map[string]interface{},
	al attrs.AttrList,
	cmd *cli.Command,
	w io.Writer) {

	if len(resultSet) == 0 {
		return
	}

	var (
		headerStyle  = lipgloss.NewStyle().Align(lipgloss.Left)
		cellStyle    = lipgloss.NewStyle().Padding(0, 0).Align(lipgloss.Left)
		evenRowStyle = cellStyle
		oddRowStyle  = cellStyle
	)

	if cmd.Bool("color") {
		headerColor, evenColor, oddColor := getColors("colors")

		headerStyle = headerStyle.Foreground(lipgloss.Color(headerColor))
		evenRowStyle = evenRowStyle.Foreground(lipgloss.Color(evenColor))
		oddRowStyle = oddRowStyle.Foreground(lipgloss.Color(oddColor))
	}

	pad, _ := config.GetInt("padding", 1)
	log.Debugf("padding: %v", pad)

	var rows [][]string
	for _, result := range resultSet {
		row := make([]string, 0, len(al))
		for _, attr := range al {
			if !attr.Include {
				continue
			}
			row = append(row, InterfaceToString(result[attr.OutputKey], "-"))
		}
		rows = append(rows, row)
	}

	t := table.New().
		BorderBottom(false).
		BorderTop(false).
		BorderLeft(false).
		BorderRight(false).
		Border(lipgloss.HiddenBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			var style lipgloss.Style
			switch {
			case row == table.HeaderRow:
				style = headerStyle
			case row%2 == 0:
				style = evenRowStyle
			default:
				style = oddRowStyle
			}

			if col > 0 {
				style = style.PaddingLeft(pad)
			}

			return style
		}).
		Headers().
		Rows(rows...)

	if cmd.Bool("titles") {
		var headers []string
		for _, attr := range al {
			if attr.Include {
				headers = append(headers, attr.OutputKey)
			}
		}

		// https://github.com/charmbracelet/lipgloss/issues/261
		t = t.Headers(headers...).BorderHeader(false)
	}
	fmt.Fprintln(w, t)
}

// getColors returns configured color values for table rendering.
func getColors(key string) (header string, even string, odd string) {
	header, _ = config.GetString(fmt.Sprintf("%s.title", key), "#f6be00")
	even, _ = config.GetString(fmt.Sprintf("%s.even", key), "#ffffff")
	odd, _ = config.GetString(fmt.Sprintf("%s.odd", key), "#00c8f0")
	return
}

// InterfaceToString converts supported primitive or composite values to a
// string. A custom empty value may be provided.
func InterfaceToString(value interface{}, emptyValue ...string) string {
	if len(emptyValue) == 0 {
		emptyValue = []string{""}
	}

	if value == nil || reflect.ValueOf(value).IsZero() {
		return emptyValue[0]
	}

	switch value := value.(type) {
	case string:
		return value
	case int:
		return strconv.Itoa(value)
	case float64:
		// Counts, sizes and statuses are all whole numbers.
		return fmt.Sprintf("%.0f", value)
	case bool:
		return strconv.FormatBool(value)
	default:
		jsonBytes, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(jsonBytes)
	}
}
