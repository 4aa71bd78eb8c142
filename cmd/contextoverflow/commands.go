package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/alphabot-ai/contextoverflow/internal/client"
	"github.com/alphabot-ai/contextoverflow/internal/errortypes"
	"github.com/alphabot-ai/contextoverflow/internal/model"
	"github.com/alphabot-ai/contextoverflow/internal/query"
	"github.com/alphabot-ai/contextoverflow/internal/tools"
)

func newClient(c *cli.Context) *client.Client {
	return client.New(c.String("url"))
}

func askCommand() *cli.Command {
	return &cli.Command{
		Name:  "ask",
		Usage: "Post a question",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Question title (10-200 chars)", Required: true},
			&cli.StringFlag{Name: "content", Usage: "Question body (20-5000 chars)", Required: true},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags (1-10)", Required: true},
			&cli.StringFlag{Name: "language", Aliases: []string{"lang"}, Usage: "Programming language", Required: true},
		},
		Action: func(c *cli.Context) error {
			out, err := newClient(c).PostQuestion(c.Context, tools.PostQuestionRequest{
				Title:    c.String("title"),
				Content:  c.String("content"),
				Tags:     query.ParseTags(c.String("tags")),
				Language: c.String("language"),
			})
			if err != nil {
				return err
			}
			return render(c, out, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Posted question %d\n", out.QuestionID)
			})
		},
	}
}

func answerCommand() *cli.Command {
	return &cli.Command{
		Name:  "answer",
		Usage: "Answer a question",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "question", Aliases: []string{"q"}, Usage: "Question ID", Required: true},
			&cli.StringFlag{Name: "content", Usage: "Answer body (20-10000 chars)", Required: true},
			&cli.StringFlag{Name: "author", Usage: "Author name (default anonymous)"},
			&cli.StringSliceFlag{Name: "example", Usage: "Code example as language:path, repeatable"},
		},
		Action: func(c *cli.Context) error {
			examples, err := readExamples(c.StringSlice("example"))
			if err != nil {
				return err
			}
			out, err := newClient(c).PostAnswer(c.Context, tools.PostAnswerRequest{
				QuestionID:   c.Int64("question"),
				Content:      c.String("content"),
				CodeExamples: examples,
				Author:       c.String("author"),
			})
			if err != nil {
				return err
			}
			return render(c, out, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Posted answer %d on question %d\n", out.AnswerID, out.QuestionID)
			})
		},
	}
}

// readExamples loads language:path pairs from disk.
func readExamples(specs []string) ([]model.CodeExample, error) {
	var out []model.CodeExample
	for _, spec := range specs {
		lang, path, ok := strings.Cut(spec, ":")
		if !ok || lang == "" || path == "" {
			return nil, errortypes.Validationf("example %q must be language:path", spec)
		}
		code, err := os.ReadFile(path)
		if err != nil {
			return nil, errortypes.ValidationError(err, "cannot read example "+path)
		}
		out = append(out, model.CodeExample{Language: lang, Code: string(code)})
	}
	return out, nil
}

func showCommand() *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a question with its answers",
		ArgsUsage: "<question-id>",
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return err
			}
			cl := newClient(c)
			q, err := cl.GetQuestion(c.Context, id)
			if err != nil {
				return err
			}
			answers, err := cl.GetAnswers(c.Context, id)
			if err != nil {
				return err
			}
			view := struct {
				Question model.Question `json:"question"`
				Answers  []model.Answer `json:"answers"`
			}{q, answers.Answers}
			return render(c, view, func(w io.Writer) {
				printQuestion(w, q)
				fmt.Fprintf(w, "\n  %s\n", q.Body)
				printAnswers(w, answers.Answers)
			})
		},
	}
}

func answersCommand() *cli.Command {
	return &cli.Command{
		Name:      "answers",
		Usage:     "List answers for a question, best first",
		ArgsUsage: "<question-id>",
		Action: func(c *cli.Context) error {
			id, err := idArg(c)
			if err != nil {
				return err
			}
			out, err := newClient(c).GetAnswers(c.Context, id)
			if err != nil {
				return err
			}
			return render(c, out, func(w io.Writer) {
				printAnswers(w, out.Answers)
			})
		},
	}
}

var filterFlags = []cli.Flag{
	&cli.IntFlag{Name: "limit", Usage: "Page size"},
	&cli.IntFlag{Name: "offset", Usage: "Items to skip"},
	&cli.StringFlag{Name: "language", Aliases: []string{"lang"}, Usage: "Exact language"},
	&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags, any may match"},
	&cli.IntFlag{Name: "min-votes", Usage: "Minimum vote total"},
	&cli.BoolFlag{Name: "has-answers", Usage: "Only answered questions (--has-answers=false for unanswered)"},
	&cli.StringFlag{Name: "sort", Usage: "new or votes"},
}

func listOptions(c *cli.Context) client.ListOptions {
	opts := client.ListOptions{
		Limit:    c.Int("limit"),
		Offset:   c.Int("offset"),
		Language: c.String("language"),
		Tags:     query.ParseTags(c.String("tags")),
		Sort:     c.String("sort"),
	}
	if c.IsSet("min-votes") {
		n := c.Int("min-votes")
		opts.MinVotes = &n
	}
	if c.IsSet("has-answers") {
		b := c.Bool("has-answers")
		opts.HasAnswers = &b
	}
	return opts
}

func questionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "questions",
		Usage: "List questions, newest first",
		Flags: filterFlags,
		Action: func(c *cli.Context) error {
			out, err := newClient(c).ListQuestions(c.Context, listOptions(c))
			if err != nil {
				return err
			}
			return render(c, out, func(w io.Writer) { printResult(w, out) })
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search question titles and bodies",
		ArgsUsage: "<text>",
		Flags:     filterFlags,
		Action: func(c *cli.Context) error {
			opts := listOptions(c)
			opts.Query = strings.Join(c.Args().Slice(), " ")
			if opts.Limit == 0 {
				opts.Limit = query.DefaultSearchLimit
			}
			out, err := newClient(c).ListQuestions(c.Context, opts)
			if err != nil {
				return err
			}
			return render(c, out, func(w io.Writer) { printResult(w, out) })
		},
	}
}

func voteCommand() *cli.Command {
	return &cli.Command{
		Name:  "vote",
		Usage: "Vote on a question or answer",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "question", Usage: "Question ID"},
			&cli.Int64Flag{Name: "answer", Usage: "Answer ID"},
			&cli.BoolFlag{Name: "up", Usage: "Upvote"},
			&cli.BoolFlag{Name: "down", Usage: "Downvote"},
			&cli.StringFlag{Name: "user", Usage: "Voter id (default: derived from your address)", EnvVars: []string{"CONTEXTOVERFLOW_USER"}},
		},
		Action: func(c *cli.Context) error {
			qid, aid := c.Int64("question"), c.Int64("answer")
			if (qid == 0) == (aid == 0) {
				return errortypes.Validationf("provide exactly one of --question or --answer")
			}
			up, down := c.Bool("up"), c.Bool("down")
			if up == down {
				return errortypes.Validationf("provide exactly one of --up or --down")
			}

			req := tools.VoteRequest{TargetType: string(model.TargetQuestion), TargetID: qid, VoteType: model.Upvoted.String(), UserID: c.String("user")}
			if aid != 0 {
				req.TargetType, req.TargetID = string(model.TargetAnswer), aid
			}
			if down {
				req.VoteType = model.Downvoted.String()
			}

			out, err := newClient(c).Vote(c.Context, req)
			if err != nil {
				return err
			}
			return render(c, out, func(w io.Writer) {
				if out.Current == model.NoVote {
					fmt.Fprintf(w, "✓ Retracted vote on %s %d (total %d)\n", out.TargetKind, out.TargetID, out.NewTotal)
					return
				}
				action := "Upvoted"
				if out.Current == model.Downvoted {
					action = "Downvoted"
				}
				fmt.Fprintf(w, "✓ %s %s %d (total %d)\n", action, out.TargetKind, out.TargetID, out.NewTotal)
			})
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show site statistics",
		Action: func(c *cli.Context) error {
			out, err := newClient(c).Stats(c.Context)
			if err != nil {
				return err
			}
			return render(c, out, func(w io.Writer) {
				fmt.Fprintf(w, "Questions:  %d\n", out.Questions)
				fmt.Fprintf(w, "Answers:    %d\n", out.Answers)
				fmt.Fprintf(w, "Votes:      %d\n", out.Votes)
				fmt.Fprintf(w, "Tags:       %d\n", out.UniqueTags)
				fmt.Fprintf(w, "Avg votes:  %.2f per question\n", out.AvgVotesPerQuestion)
				fmt.Fprintf(w, "Avg answers %.2f per question\n", out.AvgAnswersPerQuestion)
			})
		},
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check the server",
		Action: func(c *cli.Context) error {
			out, err := newClient(c).Health(c.Context)
			if err != nil {
				return err
			}
			return render(c, out, func(w io.Writer) {
				fmt.Fprintf(w, "%s (database %s, status %s)\n", out.Message, out.Database, out.Status)
			})
		},
	}
}

func toolsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tools",
		Usage: "List the agent tool operations the server exposes",
		Action: func(c *cli.Context) error {
			ops, err := newClient(c).Operations(c.Context)
			if err != nil {
				return err
			}
			return render(c, ops, func(w io.Writer) {
				for _, op := range ops {
					fmt.Fprintf(w, "%-17s %s\n", op.Name, op.Description)
					fmt.Fprintf(w, "%-17s required: %s  optional: %s\n", "", strings.Join(op.Required, ", "), strings.Join(op.Optional, ", "))
				}
			})
		},
	}
}

func idArg(c *cli.Context) (int64, error) {
	raw := c.Args().First()
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errortypes.Validationf("expected a positive question id, got %q", raw)
	}
	return id, nil
}

func printResult(w io.Writer, res query.Result) {
	if len(res.Questions) == 0 {
		fmt.Fprintln(w, "No questions found")
		return
	}
	for _, q := range res.Questions {
		printQuestion(w, q)
	}
	fmt.Fprintf(w, "\nShowing %d-%d of %d\n", res.Offset+1, res.Offset+len(res.Questions), res.Total)
}

func printQuestion(w io.Writer, q model.Question) {
	fmt.Fprintf(w, "#%d %s\n", q.ID, q.Title)
	fmt.Fprintf(w, "   %d votes | %d answers | %s | %s\n", q.Votes, q.AnswerCount, q.Language, strings.Join(q.Tags, ", "))
}

func printAnswers(w io.Writer, answers []model.Answer) {
	fmt.Fprintf(w, "\n--- Answers (%d) ---\n", len(answers))
	for _, a := range answers {
		fmt.Fprintf(w, "[%d] %d votes | %s\n  %s\n", a.ID, a.Votes, a.Author, a.Body)
		for _, ex := range a.CodeExamples {
			fmt.Fprintf(w, "  ```%s\n%s\n  ```\n", ex.Language, ex.Code)
		}
	}
}
