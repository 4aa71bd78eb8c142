package model

import (
	"encoding/json"
	"fmt"
	"time"
)

const AnonymousAuthor = "anonymous"

type Question struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"content"`
	Tags        []string  `json:"tags"`
	Language    string    `json:"language"`
	Votes       int       `json:"votes"`
	AnswerCount int       `json:"answer_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type CodeExample struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

type Answer struct {
	ID           int64         `json:"id"`
	QuestionID   int64         `json:"question_id"`
	Body         string        `json:"content"`
	CodeExamples []CodeExample `json:"code_examples"`
	Author       string        `json:"author"`
	Votes        int           `json:"votes"`
	CreatedAt    time.Time     `json:"created_at"`
}

// TargetKind names the kind of content a vote applies to.
type TargetKind string

const (
	TargetQuestion TargetKind = "question"
	TargetAnswer   TargetKind = "answer"
)

func ParseTargetKind(s string) (TargetKind, error) {
	switch TargetKind(s) {
	case TargetQuestion, TargetAnswer:
		return TargetKind(s), nil
	}
	return "", fmt.Errorf("target_type must be %q or %q", TargetQuestion, TargetAnswer)
}

// Direction is the state of one voter's vote on one target.
// NoVote is the zero value.
type Direction int

const (
	NoVote    Direction = 0
	Upvoted   Direction = 1
	Downvoted Direction = -1
)

// ParseDirection accepts the wire names of a requested vote.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "upvote":
		return Upvoted, nil
	case "downvote":
		return Downvoted, nil
	}
	return NoVote, fmt.Errorf("vote_type must be %q or %q", "upvote", "downvote")
}

// Weight is the contribution of the direction to a vote total.
func (d Direction) Weight() int {
	return int(d)
}

func (d Direction) String() string {
	switch d {
	case Upvoted:
		return "upvote"
	case Downvoted:
		return "downvote"
	}
	return ""
}

// MarshalJSON renders NoVote as null.
func (d Direction) MarshalJSON() ([]byte, error) {
	if d == NoVote {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Direction) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = NoVote
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDirection(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type VoteRecord struct {
	Voter      string
	TargetKind TargetKind
	TargetID   int64
	Direction  Direction
	UpdatedAt  time.Time
}

// VoteOutcome is the result of casting one vote.
type VoteOutcome struct {
	TargetID   int64      `json:"target_id"`
	TargetKind TargetKind `json:"target_type"`
	Current    Direction  `json:"vote_type"`
	NewTotal   int        `json:"new_vote_total"`
	Previous   Direction  `json:"previous_vote"`
}

// SiteStats holds aggregate counts. Stores fill the counters; the derived
// averages and health fields are filled by the engine.
type SiteStats struct {
	Questions             int64     `json:"total_questions"`
	Answers               int64     `json:"total_answers"`
	Votes                 int64     `json:"total_votes"`
	UniqueTags            int64     `json:"unique_tags"`
	QuestionVoteSum       int64     `json:"-"`
	AvgVotesPerQuestion   float64   `json:"avg_votes_per_question"`
	AvgAnswersPerQuestion float64   `json:"avg_answers_per_question"`
	PlatformHealth        string    `json:"platform_health"`
	LastUpdated           time.Time `json:"last_updated"`
}

type Health struct {
	Message  string `json:"message"`
	Database string `json:"database"`
	Status   string `json:"status"`
}
