// Electrode net CSV parsing. Structured the way the teacher's netlist
// scanner works (toy-spice/pkg/netlist/parser.go): a line-oriented
// bufio.Scanner pass with a small header-driven column map, rather than a
// general-purpose CSV object model, because the column set here is exactly
// two fixed shapes, not an open-ended grammar.
package subject

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Electrode is one named position in an EEG net.
type Electrode struct {
	Label string
	Pos   r3.Vec
}

// NetTable is an EEG net's electrode positions, keyed by label.
type NetTable struct {
	Name      string
	Electrodes map[string]Electrode
	// Order preserves the file's row order; leadfield rows must correspond
	// one-to-one with this order.
	Order []string
}

func (n NetTable) Lookup(label string) (Electrode, bool) {
	e, ok := n.Electrodes[label]
	return e, ok
}

type column int

const (
	colType column = iota
	colX
	colY
	colZ
	colName
	colExtra
	colLabel
)

// ParseNetCSV parses either recognized column layout (case-insensitive):
//
//	Type, X, Y, Z, Name, Extra
//	Label, X, Y, Z
func ParseNetCSV(netName string, content string) (NetTable, error) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	table := NetTable{Name: netName, Electrodes: map[string]Electrode{}}

	if !scanner.Scan() {
		return NetTable{}, fmt.Errorf("net %s: empty file", netName)
	}
	header := strings.Split(scanner.Text(), ",")
	colMap := map[column]int{}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "type":
			colMap[colType] = i
		case "x":
			colMap[colX] = i
		case "y":
			colMap[colY] = i
		case "z":
			colMap[colZ] = i
		case "name":
			colMap[colName] = i
		case "extra":
			colMap[colExtra] = i
		case "label":
			colMap[colLabel] = i
		}
	}

	_, hasName := colMap[colName]
	_, hasLabel := colMap[colLabel]
	xi, okX := colMap[colX]
	yi, okY := colMap[colY]
	zi, okZ := colMap[colZ]
	if !okX || !okY || !okZ {
		return NetTable{}, fmt.Errorf("net %s: header missing X/Y/Z columns", netName)
	}
	var labelCol int
	switch {
	case hasName:
		labelCol = colMap[colName]
	case hasLabel:
		labelCol = colMap[colLabel]
	default:
		return NetTable{}, fmt.Errorf("net %s: header must have either Name or Label column", netName)
	}

	lineNo := 1
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		maxNeeded := labelCol
		for _, c := range []int{xi, yi, zi} {
			if c > maxNeeded {
				maxNeeded = c
			}
		}
		if maxNeeded >= len(fields) {
			return NetTable{}, fmt.Errorf("net %s: line %d: expected at least %d columns, got %d", netName, lineNo, maxNeeded+1, len(fields))
		}

		label := strings.TrimSpace(fields[labelCol])
		x, err := strconv.ParseFloat(strings.TrimSpace(fields[xi]), 64)
		if err != nil {
			return NetTable{}, fmt.Errorf("net %s: line %d: invalid X: %v", netName, lineNo, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(fields[yi]), 64)
		if err != nil {
			return NetTable{}, fmt.Errorf("net %s: line %d: invalid Y: %v", netName, lineNo, err)
		}
		z, err := strconv.ParseFloat(strings.TrimSpace(fields[zi]), 64)
		if err != nil {
			return NetTable{}, fmt.Errorf("net %s: line %d: invalid Z: %v", netName, lineNo, err)
		}

		if _, exists := table.Electrodes[label]; exists {
			return NetTable{}, fmt.Errorf("net %s: line %d: duplicate electrode label %q", netName, lineNo, label)
		}
		table.Electrodes[label] = Electrode{Label: label, Pos: r3.Vec{X: x, Y: y, Z: z}}
		table.Order = append(table.Order, label)
	}

	if len(table.Order) == 0 {
		return NetTable{}, fmt.Errorf("net %s: no electrode rows found", netName)
	}
	return table, nil
}
