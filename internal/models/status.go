package models

import "fmt"

// Status is the lifecycle state of a task.
type Status string

const (
	StatusBacklog    Status = "backlog"
	StatusNew        Status = "new"
	StatusInProgress Status = "inprogress"
	StatusFinished   Status = "finished"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusBacklog, StatusNew, StatusInProgress, StatusFinished}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	for _, s := range Statuses {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", Invalidf("unknown status %q", raw)
}

// Column returns the tasks table column holding the timestamp for s.
func (s Status) Column() string {
	return fmt.Sprintf("%s_date", s)
}
