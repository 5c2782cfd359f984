package web

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/FormRelay/internal/core"
)

const pageStyle = `body{font-family:sans-serif;margin:2rem;color:#222}` +
	`table{border-collapse:collapse}th,td{border:1px solid #ccc;padding:.3rem .8rem;text-align:right}` +
	`th:first-child,td:first-child{text-align:left}.full{color:#b00}.alert{border:1px solid #b00;padding:1rem}`

// CapacityPage renders a slot report as an HTML table.
func CapacityPage(report CapacityResponse) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := fmt.Sprintf("Capacity of %s on %s", report.Channel, report.Date)
		if err := pageHeader(w, title); err != nil {
			return err
		}
		if report.Requester != "" {
			if _, err := fmt.Fprintf(w, "<p>As seen by requester %s</p>", templ.EscapeString(report.Requester)); err != nil {
				return err
			}
		}
		if len(report.Slots) == 0 {
			_, err := io.WriteString(w, "<p>No timeslots defined.</p></body></html>")
			return err
		}

		if _, err := io.WriteString(w, "<table><thead><tr><th>Timeslot</th><th>Ceiling</th><th>Reserved</th><th>Available</th></tr></thead><tbody>"); err != nil {
			return err
		}
		for _, slot := range report.Slots {
			if err := slotRow(w, slot); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</tbody></table></body></html>")
		return err
	})
}

func slotRow(w io.Writer, slot core.SlotStatus) error {
	ceiling, available := "unbounded", "unbounded"
	if slot.Ceiling != nil {
		ceiling = strconv.Itoa(*slot.Ceiling)
	}
	if !slot.Unbounded {
		available = strconv.Itoa(slot.Available)
	}
	class := ""
	if !slot.Unbounded && slot.Available == 0 {
		class = ` class="full"`
	}
	_, err := fmt.Fprintf(w, "<tr%s><td>%s</td><td>%s</td><td>%d</td><td>%s</td></tr>",
		class, templ.EscapeString(slot.Timeslot), ceiling, slot.Reserved, available)
	return err
}

// ErrorPage renders a user-facing error.
func ErrorPage(msg core.UserMessage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := pageHeader(w, "Error"); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, `<div class="alert"><p>%s</p><p>%s</p><p><small>Code: %s</small></p></div></body></html>`,
			templ.EscapeString(msg.Message), templ.EscapeString(msg.Action), templ.EscapeString(msg.Code))
		return err
	})
}

func pageHeader(w io.Writer, title string) error {
	t := templ.EscapeString(title)
	_, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title><style>%s</style></head><body><h1>%s</h1>`,
		t, pageStyle, t)
	return err
}
