package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/mranv/agentARChecker/internal/arquery"
	"github.com/mranv/agentARChecker/internal/history"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

const maxCellWidth = 60

var titleCaser = cases.Title(language.English)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    maxCellWidth,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func stateLabel(state string) string {
	return titleCaser.String(state)
}

func renderSummaryTable(summary arquery.Summary) string {
	headers := []string{"Agent", "State", "Attempts", "Status", "Detail", "Took"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignRight}
	rows := make([][]string, 0, len(summary.Results)+1)
	for _, result := range summary.Results {
		detail := result.Response.Body
		if result.Err != nil {
			detail = result.Err.Error()
		}
		rows = append(rows, []string{
			result.Agent,
			stateLabel(result.State.String()),
			strconv.Itoa(result.Attempts),
			result.Response.Status,
			detail,
			result.Duration().Round(time.Millisecond).String(),
		})
	}
	out := renderTable(headers, rows, aligns)
	return out + "\n" + fmt.Sprintf("%d succeeded, %d failed", summary.Succeeded, summary.Failed)
}

func renderOutcomeTable(outcomes []history.Outcome) string {
	headers := []string{"Finished", "Agent", "State", "Attempts", "Status", "Detail"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft}
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		detail := o.Body
		if o.Error != "" {
			detail = o.Error
		}
		rows = append(rows, []string{
			formatTimestamp(o.FinishedAt),
			o.Agent,
			stateLabel(o.State),
			strconv.Itoa(o.Attempts),
			o.Status,
			detail,
		})
	}
	return renderTable(headers, rows, aligns)
}

func renderRunTable(runs []history.Run) string {
	headers := []string{"Run", "Started", "Endpoint", "Succeeded", "Failed"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.ID,
			formatTimestamp(r.StartedAt),
			r.Endpoint,
			strconv.Itoa(r.Succeeded),
			strconv.Itoa(r.Failed),
		})
	}
	return renderTable(headers, rows, aligns)
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Local().Format("2006-01-02 15:04:05")
}
