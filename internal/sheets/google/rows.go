package google

import (
	"fmt"
	"strings"
	"time"

	"loantracker/internal/core"
)

var columns = []string{"ID", "Name", "Total loaned", "Total paid", "Balance", "Status", "Created"}

// lastColumn is the letter of the final column in columns.
var lastColumn = string(rune('A' + len(columns) - 1))

func headerRow() []interface{} {
	row := make([]interface{}, len(columns))
	for i, c := range columns {
		row[i] = c
	}
	return row
}

func personRow(p core.Person) []interface{} {
	return []interface{}{
		p.ID,
		p.Name,
		p.TotalLoaned.String(),
		p.TotalPaid.String(),
		p.Balance.String(),
		string(p.Status),
		p.CreatedAt.UTC().Format(time.DateOnly),
	}
}

func peopleRows(people []core.Person) [][]interface{} {
	rows := make([][]interface{}, 0, len(people)+1)
	rows = append(rows, headerRow())
	for _, p := range people {
		rows = append(rows, personRow(p))
	}
	return rows
}

// rowOf returns the 1-based sheet row whose id cell equals id, skipping the
// header. Zero means absent.
func rowOf(ids []string, id string) int {
	for i := 1; i < len(ids); i++ {
		if ids[i] == id {
			return i + 1
		}
	}
	return 0
}

func firstCell(row []interface{}) string {
	if len(row) == 0 {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[0]))
}
