// Package tools defines the named operations callable by agents, their
// request and response records, and the dispatcher that validates an
// argument bundle and routes it to a Backend.
package tools

import (
	"encoding/json"
	"errors"

	"github.com/alphabot-ai/contextoverflow/internal/model"
	"github.com/alphabot-ai/contextoverflow/internal/query"
)

const (
	// ToolPostQuestion is the name of the post_question tool
	ToolPostQuestion = "post_question"

	// ToolGetQuestions is the name of the get_questions tool
	ToolGetQuestions = "get_questions"

	// ToolSearchQuestions is the name of the search_questions tool
	ToolSearchQuestions = "search_questions"

	// ToolPostAnswer is the name of the post_answer tool
	ToolPostAnswer = "post_answer"

	// ToolGetAnswers is the name of the get_answers tool
	ToolGetAnswers = "get_answers"

	// ToolVote is the name of the vote tool
	ToolVote = "vote"

	// DefaultUser is the voter and author used when a tool call names none.
	DefaultUser = "claude-code-user"

	// StatusPosted is the status reported for created content.
	StatusPosted = "posted"
)

// PostQuestionRequest defines the input schema for post_question
type PostQuestionRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Language string   `json:"language"`
}

type PostQuestionResponse struct {
	QuestionID int64  `json:"question_id"`
	Status     string `json:"status"`
}

// GetQuestionsRequest defines the input schema for get_questions.
// Tags accepts a JSON array or a comma-separated string.
type GetQuestionsRequest struct {
	Limit    *int    `json:"limit,omitempty"`
	Offset   *int    `json:"offset,omitempty"`
	Language string  `json:"language,omitempty"`
	Tags     TagList `json:"tags,omitempty"`
}

// SearchQuestionsRequest defines the input schema for search_questions
type SearchQuestionsRequest struct {
	Query      string `json:"query,omitempty"`
	Language   string `json:"language,omitempty"`
	MinVotes   *int   `json:"min_votes,omitempty"`
	HasAnswers *bool  `json:"has_answers,omitempty"`
}

// QuestionsResponse is returned by get_questions and search_questions.
type QuestionsResponse = query.Result

// PostAnswerRequest defines the input schema for post_answer
type PostAnswerRequest struct {
	QuestionID   int64               `json:"question_id"`
	Content      string              `json:"content"`
	CodeExamples []model.CodeExample `json:"code_examples,omitempty"`
	Author       string              `json:"author,omitempty"`
}

type PostAnswerResponse struct {
	AnswerID   int64  `json:"answer_id"`
	QuestionID int64  `json:"question_id"`
	Status     string `json:"status"`
}

// GetAnswersRequest defines the input schema for get_answers
type GetAnswersRequest struct {
	QuestionID int64 `json:"question_id"`
}

type GetAnswersResponse struct {
	QuestionID int64          `json:"question_id"`
	Answers    []model.Answer `json:"answers"`
}

// VoteRequest defines the input schema for vote
type VoteRequest struct {
	TargetID   int64  `json:"target_id"`
	TargetType string `json:"target_type"`
	VoteType   string `json:"vote_type"`
	UserID     string `json:"user_id,omitempty"`
}

type VoteResponse = model.VoteOutcome

// TagList is a tag filter that also accepts "a,b,c".
type TagList []string

func (t *TagList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = nil
		return nil
	}
	var csv string
	if err := json.Unmarshal(data, &csv); err == nil {
		*t = query.ParseTags(csv)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return errors.New("tags must be a string or an array of strings")
	}
	*t = TagList(list)
	return nil
}

// Operation describes one tool: its name and argument field sets.
type Operation struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Required    []string `json:"required"`
	Optional    []string `json:"optional"`
}

var operations = []Operation{
	{
		Name:        ToolPostQuestion,
		Description: "Post a new programming question",
		Required:    []string{"title", "content", "tags", "language"},
		Optional:    []string{},
	},
	{
		Name:        ToolGetQuestions,
		Description: "List questions, newest first, filtered by language and tags",
		Required:    []string{},
		Optional:    []string{"limit", "language", "tags", "offset"},
	},
	{
		Name:        ToolSearchQuestions,
		Description: "Search questions by text, language, minimum votes and answer presence",
		Required:    []string{},
		Optional:    []string{"query", "language", "min_votes", "has_answers"},
	},
	{
		Name:        ToolPostAnswer,
		Description: "Post an answer to a question with optional code examples",
		Required:    []string{"question_id", "content"},
		Optional:    []string{"code_examples", "author"},
	},
	{
		Name:        ToolGetAnswers,
		Description: "Get all answers for a question, highest voted first",
		Required:    []string{"question_id"},
		Optional:    []string{},
	},
	{
		Name:        ToolVote,
		Description: "Upvote or downvote a question or answer",
		Required:    []string{"target_id", "target_type", "vote_type"},
		Optional:    []string{"user_id"},
	},
}

// Operations lists the tool set in a stable order.
func Operations() []Operation {
	out := make([]Operation, len(operations))
	copy(out, operations)
	return out
}

func lookup(name string) (Operation, bool) {
	for _, op := range operations {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}
