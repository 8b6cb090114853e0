package entities

// ActionItem is a task named in the meeting. An empty Assignee means unassigned.
type ActionItem struct {
	Task     string `json:"task" bson:"task"`
	Assignee string `json:"assignee" bson:"assignee"`
}

// IsUnassigned reports whether nobody was named for the task
func (a ActionItem) IsUnassigned() bool {
	return a.Assignee == ""
}
