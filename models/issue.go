package models

import (
	"time"
)

// IssueCategory enum
type IssueCategory string

const (
	Water       IssueCategory = "water"
	Road        IssueCategory = "road"
	Electricity IssueCategory = "electricity"
	Garbage     IssueCategory = "garbage"
	Other       IssueCategory = "other"
)

// Categories lists every category in display order.
var Categories = []IssueCategory{Water, Road, Electricity, Garbage, Other}

// IssueStatus enum
type IssueStatus string

const (
	Pending    IssueStatus = "pending"
	InProgress IssueStatus = "in-progress"
	Resolved   IssueStatus = "resolved"
)

// Statuses lists every status in lifecycle order.
var Statuses = []IssueStatus{Pending, InProgress, Resolved}

// MatchAll is the filter value that matches any status or category.
const MatchAll = "all"

func (c IssueCategory) Valid() bool {
	switch c {
	case Water, Road, Electricity, Garbage, Other:
		return true
	}
	return false
}

func (s IssueStatus) Valid() bool {
	switch s {
	case Pending, InProgress, Resolved:
		return true
	}
	return false
}

// Issue represents a civic issue reported by a citizen
type Issue struct {
	ID             string        `bson:"_id,omitempty" json:"id"`
	Title          string        `bson:"title" json:"title"`
	Description    string        `bson:"description" json:"description"`
	Category       IssueCategory `bson:"category" json:"category"`
	Location       string        `bson:"location" json:"location"`
	Status         IssueStatus   `bson:"status" json:"status"`
	ReportedBy     string        `bson:"reportedBy" json:"reportedBy"`
	ReportedByUID  string        `bson:"reportedByUid" json:"reportedByUid"`
	ReportedAt     time.Time     `bson:"reportedAt" json:"reportedAt"`
	UpdatedAt      time.Time     `bson:"updatedAt" json:"updatedAt"`
	ImageURL       *string       `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	AISummary      string        `bson:"aiSummary,omitempty" json:"aiSummary,omitempty"`
	ResolutionNote *string       `bson:"resolutionNote,omitempty" json:"resolutionNote,omitempty"`
}

// IssueDraft is what a citizen submits. An empty Category asks for
// automatic classification.
type IssueDraft struct {
	Title       string
	Description string
	Category    IssueCategory
	Location    string
}

// StatusUpdate carries the fields rewritten by a status change.
type StatusUpdate struct {
	Status         IssueStatus
	ResolutionNote string
	UpdatedAt      time.Time
}
