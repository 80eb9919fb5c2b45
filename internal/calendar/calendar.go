// Package calendar exports meeting action items as an iCalendar to-do feed.
package calendar

import (
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/ethanbaker/minutes/internal/stores/meeting"
)

const productID = "-//ethanbaker//minutes//EN"

// status maps action item states onto VTODO STATUS values
func status(s meeting.ActionStatus) ics.ObjectStatus {
	switch s {
	case meeting.StatusDone:
		return ics.ObjectStatusCompleted
	case meeting.StatusOpen:
		return ics.ObjectStatusInProcess
	default:
		return ics.ObjectStatusNeedsAction
	}
}

// ActionItems renders a meeting's action items as a VTODO calendar
func ActionItems(m *meeting.Meeting, items []meeting.ActionItem, now time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetName(m.Title + " action items")

	for _, item := range items {
		todo := cal.AddTodo(fmt.Sprintf("%s-%d@minutes", m.ID, item.ID))
		todo.SetDtStampTime(now.UTC())
		todo.SetSummary(item.Task)
		todo.SetDescription("Owner: " + item.Owner)
		todo.SetStatus(status(item.Status))

		if item.DueDate != nil {
			todo.SetProperty(ics.ComponentPropertyDue, item.DueDate.Format("20060102"), ics.WithValue(string(ics.ValueDataTypeDate)))
		}
	}

	return cal.Serialize()
}
