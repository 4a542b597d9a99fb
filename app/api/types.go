package api

import (
	"github.com/lysyi3m/issue-comb/app/database"
	"github.com/lysyi3m/issue-comb/app/tasks"
)

type Handler struct {
	issueRepo database.IssueRepository
	scheduler tasks.SchedulerInterface
	version   string
}

type issueResponse struct {
	*database.Issue
	HasDirective bool   `json:"has_directive"`
	Feed         string `json:"feed,omitempty"`
}
