package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"marzban-manager/internal/domain/model"
	"marzban-manager/internal/infra/i18n"
	"marzban-manager/internal/usecase"

	"github.com/alexeyco/simpletable"
	"github.com/fatih/color"
)

type printer struct {
	out io.Writer
	tr  *i18n.Translator

	good *color.Color
	warn *color.Color
	bad  *color.Color
	info *color.Color
	bold *color.Color
}

func newPrinter(out io.Writer, tr *i18n.Translator, noColor bool) *printer {
	p := &printer{
		out:  out,
		tr:   tr,
		good: color.New(color.FgGreen),
		warn: color.New(color.FgYellow),
		bad:  color.New(color.FgRed, color.Bold),
		info: color.New(color.FgCyan),
		bold: color.New(color.Bold),
	}
	if noColor {
		for _, c := range []*color.Color{p.good, p.warn, p.bad, p.info, p.bold} {
			c.DisableColor()
		}
	}
	return p
}

// Event prints one per-user outcome line.
func (p *printer) Event(ev usecase.UserEvent) {
	switch ev.Kind {
	case usecase.EventUpdated:
		p.good.Fprintln(p.out, p.tr.T("result.updated", ev.Username))
	case usecase.EventDeleted:
		p.good.Fprintln(p.out, p.tr.T("result.deleted", ev.Username))
	case usecase.EventSkipped:
		p.warn.Fprintln(p.out, p.tr.T("result.skipped", ev.Username))
	case usecase.EventFailed:
		p.bad.Fprintln(p.out, p.tr.T("result.failed", ev.Username, ev.Err))
	case usecase.EventWouldUpdate:
		p.info.Fprintln(p.out, p.tr.T("result.would_update", ev.Username))
	case usecase.EventWouldDelete:
		p.info.Fprintln(p.out, p.tr.T("result.would_delete", ev.Username))
	}
}

func (p *printer) Summary(res *usecase.BulkResult) {
	c := p.good
	switch res.Status() {
	case "partial":
		c = p.warn
	case "error":
		c = p.bad
	}
	fmt.Fprintln(p.out)
	c.Fprintln(p.out, res.Summary(p.tr))
}

func (p *printer) Report(r *model.UsageReport) {
	fmt.Fprintln(p.out)
	p.info.Fprintln(p.out, usecase.RenderReport(p.tr, r))
}

func (p *printer) Title(s string) {
	fmt.Fprintln(p.out)
	p.bold.Fprintln(p.out, s)
}

func (p *printer) Note(s string) { fmt.Fprintln(p.out, s) }

func (p *printer) Error(err error) { p.bad.Fprintln(p.out, err.Error()) }

// Users renders users as a table.
func (p *printer) Users(users []*model.PanelUser, now time.Time) {
	table := simpletable.New()
	table.Header = &simpletable.Header{
		Cells: []*simpletable.Cell{
			{Align: simpletable.AlignCenter, Text: "Username"},
			{Align: simpletable.AlignCenter, Text: "Status"},
			{Align: simpletable.AlignCenter, Text: "Used (GB)"},
			{Align: simpletable.AlignCenter, Text: "Limit (GB)"},
			{Align: simpletable.AlignCenter, Text: "Expires"},
			{Align: simpletable.AlignCenter, Text: "Last online"},
		},
	}
	for _, u := range users {
		table.Body.Cells = append(table.Body.Cells, []*simpletable.Cell{
			{Text: u.Username},
			{Text: string(u.Status)},
			{Align: simpletable.AlignRight, Text: formatGB(u.UsedTraffic)},
			{Align: simpletable.AlignRight, Text: formatLimit(u)},
			{Text: formatExpire(u)},
			{Text: formatOnline(u, now)},
		})
	}
	table.SetStyle(simpletable.StyleCompactLite)
	fmt.Fprintln(p.out, table.String())
	fmt.Fprintf(p.out, "%d users\n", len(users))
}

func formatGB(b int64) string {
	return strconv.FormatFloat(float64(b)/float64(model.BytesPerGB), 'f', 3, 64)
}

func formatLimit(u *model.PanelUser) string {
	if !u.HasDataLimit() {
		return "unlimited"
	}
	return formatGB(*u.DataLimit)
}

func formatExpire(u *model.PanelUser) string {
	if !u.HasExpire() {
		return "-"
	}
	return time.Unix(*u.Expire, 0).UTC().Format("2006-01-02")
}

func formatOnline(u *model.PanelUser, now time.Time) string {
	idle, ok := u.IdleFor(now)
	if !ok {
		return "never"
	}
	return strconv.Itoa(int(idle.Hours()/24)) + "d ago"
}
