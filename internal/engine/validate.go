package engine

import (
	"strings"
	"unicode/utf8"

	"github.com/alphabot-ai/contextoverflow/internal/errortypes"
	"github.com/alphabot-ai/contextoverflow/internal/model"
	"github.com/alphabot-ai/contextoverflow/internal/query"
)

const (
	minTitleLen     = 10
	maxTitleLen     = 200
	minQuestionLen  = 20
	maxQuestionLen  = 5000
	maxTags         = 10
	maxTagLen       = 30
	minLanguageLen  = 2
	maxLanguageLen  = 50
	minAnswerLen    = 20
	maxAnswerLen    = 10000
	maxCodeExamples = 10
	maxCodeLen      = 10000
	maxAuthorLen    = 100
	maxVoterLen     = 100
)

func validateQuestion(in QuestionInput) (model.Question, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return model.Question{}, errortypes.Validationf("title is required")
	}
	if err := checkLength("title", title, minTitleLen, maxTitleLen); err != nil {
		return model.Question{}, err
	}

	content := strings.TrimSpace(in.Content)
	if content == "" {
		return model.Question{}, errortypes.Validationf("content is required")
	}
	if err := checkLength("content", content, minQuestionLen, maxQuestionLen); err != nil {
		return model.Question{}, err
	}

	tags, err := validateTags(in.Tags)
	if err != nil {
		return model.Question{}, err
	}

	language := strings.ToLower(strings.TrimSpace(in.Language))
	if language == "" {
		return model.Question{}, errortypes.Validationf("language is required")
	}
	if err := checkLength("language", language, minLanguageLen, maxLanguageLen); err != nil {
		return model.Question{}, err
	}

	return model.Question{
		Title:    title,
		Body:     content,
		Tags:     tags,
		Language: language,
	}, nil
}

func validateTags(raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, errortypes.Validationf("at least one tag is required")
	}
	if len(raw) > maxTags {
		return nil, errortypes.Validationf("at most %d tags are allowed", maxTags)
	}
	for _, tag := range raw {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return nil, errortypes.Validationf("tags cannot be empty")
		}
		if utf8.RuneCountInString(tag) > maxTagLen {
			return nil, errortypes.Validationf("each tag must be %d characters or less", maxTagLen)
		}
	}
	return query.NormalizeTags(raw), nil
}

func validateAnswer(in AnswerInput) (model.Answer, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return model.Answer{}, errortypes.Validationf("content is required")
	}
	if err := checkLength("content", content, minAnswerLen, maxAnswerLen); err != nil {
		return model.Answer{}, err
	}

	if len(in.CodeExamples) > maxCodeExamples {
		return model.Answer{}, errortypes.Validationf("at most %d code examples are allowed", maxCodeExamples)
	}
	examples := make([]model.CodeExample, 0, len(in.CodeExamples))
	for i, ex := range in.CodeExamples {
		lang := strings.ToLower(strings.TrimSpace(ex.Language))
		if err := checkLength("code_examples language", lang, minLanguageLen, maxLanguageLen); err != nil {
			return model.Answer{}, err.WithField("index", i)
		}
		code := strings.TrimSpace(ex.Code)
		if code == "" {
			return model.Answer{}, errortypes.Validationf("code_examples[%d] code cannot be empty", i)
		}
		if err := checkLength("code_examples code", code, 1, maxCodeLen); err != nil {
			return model.Answer{}, err.WithField("index", i)
		}
		examples = append(examples, model.CodeExample{Language: lang, Code: code})
	}

	author := strings.TrimSpace(in.Author)
	if author == "" {
		author = model.AnonymousAuthor
	}
	if utf8.RuneCountInString(author) > maxAuthorLen {
		return model.Answer{}, errortypes.Validationf("author must be %d characters or less", maxAuthorLen)
	}

	return model.Answer{
		QuestionID:   in.QuestionID,
		Body:         content,
		CodeExamples: examples,
		Author:       author,
	}, nil
}

func validateVote(in VoteInput) (string, model.TargetKind, model.Direction, error) {
	voter := strings.TrimSpace(in.Voter)
	if voter == "" {
		return "", "", model.NoVote, errortypes.Validationf("user_id is required")
	}
	if utf8.RuneCountInString(voter) > maxVoterLen {
		return "", "", model.NoVote, errortypes.Validationf("user_id must be %d characters or less", maxVoterLen)
	}
	kind, err := model.ParseTargetKind(strings.ToLower(strings.TrimSpace(in.TargetType)))
	if err != nil {
		return "", "", model.NoVote, errortypes.ValidationError(err, err.Error())
	}
	dir, err := model.ParseDirection(strings.ToLower(strings.TrimSpace(in.VoteType)))
	if err != nil {
		return "", "", model.NoVote, errortypes.ValidationError(err, err.Error())
	}
	return voter, kind, dir, nil
}

func checkLength(field, value string, min, max int) *errortypes.AppError {
	n := utf8.RuneCountInString(value)
	if n < min || n > max {
		return errortypes.Validationf("%s must be between %d and %d characters", field, min, max)
	}
	return nil
}
