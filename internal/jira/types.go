package jira

// Issue is the tracker's issue representation as returned by its REST API.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// IssueFields carries the field subset the integration reads.
type IssueFields struct {
	Summary     string     `json:"summary"`
	Description string     `json:"description"`
	Status      *Named     `json:"status,omitempty"`
	Priority    *Named     `json:"priority,omitempty"`
	IssueType   *Named     `json:"issuetype,omitempty"`
	Assignee    *UserField `json:"assignee,omitempty"`
	Project     *Project   `json:"project,omitempty"`
}

// Named is the tracker's generic {name} wrapper.
type Named struct {
	Name string `json:"name"`
}

// UserField identifies a tracker user.
type UserField struct {
	AccountID   string `json:"accountId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Project identifies the issue's project.
type Project struct {
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
}

// Comment is a tracker issue comment.
type Comment struct {
	ID      string     `json:"id"`
	Body    string     `json:"body"`
	Author  *UserField `json:"author,omitempty"`
	Created string     `json:"created,omitempty"`
}

// StatusName returns the issue status, empty when unset.
func (i *Issue) StatusName() string {
	if i.Fields.Status == nil {
		return ""
	}
	return i.Fields.Status.Name
}
