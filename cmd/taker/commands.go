package main

import (
	"errors"
	"strconv"
	"strings"

	"github.com/stemsi/exstem-taker/internal/client"
	"github.com/stemsi/exstem-taker/internal/model"
	"github.com/stemsi/exstem-taker/internal/response"
	"github.com/stemsi/exstem-taker/internal/session"
)

type commandKind int

const (
	cmdAnswer commandKind = iota + 1
	cmdSubmit
	cmdStatus
	cmdQuestions
	cmdHost
	cmdQuit
	cmdHelp
)

type command struct {
	kind     commandKind
	question string
	option   string
	host     model.HostState
}

var errUnknownCommand = errors.New("unknown command, type 'help'")

const helpText = `Commands:
  answer <question id|number> <option>   pick an option, e.g. "answer 3 B"
  submit                                 submit the exam
  status                                 show progress and remaining time
  questions                              show the questions again
  background | inactive | foreground     simulate leaving or returning to the app
  quit                                   leave the exam without submitting
`

func parseCommand(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, errUnknownCommand
	}

	switch strings.ToLower(fields[0]) {
	case "answer", "a":
		if len(fields) != 3 {
			return command{}, errors.New("usage: answer <question id|number> <option>")
		}
		return command{kind: cmdAnswer, question: fields[1], option: strings.ToUpper(fields[2])}, nil
	case "submit", "s":
		return command{kind: cmdSubmit}, nil
	case "status":
		return command{kind: cmdStatus}, nil
	case "questions", "q":
		return command{kind: cmdQuestions}, nil
	case "background", "bg":
		return command{kind: cmdHost, host: model.HostBackground}, nil
	case "inactive":
		return command{kind: cmdHost, host: model.HostInactive}, nil
	case "foreground", "fg":
		return command{kind: cmdHost, host: model.HostActive}, nil
	case "quit", "exit":
		return command{kind: cmdQuit}, nil
	case "help", "?":
		return command{kind: cmdHelp}, nil
	}
	return command{}, errUnknownCommand
}

// resolveQuestion accepts a question id or its display number.
func resolveQuestion(ref string, questions []model.Question) (model.Question, bool) {
	for _, q := range questions {
		if q.ID == ref {
			return q, true
		}
	}
	if n, err := strconv.Atoi(ref); err == nil {
		for _, q := range questions {
			if q.Number == n {
				return q, true
			}
		}
	}
	return model.Question{}, false
}

// alreadySubmitted reports whether the backend refused a submit because it
// already recorded one for this instance.
func alreadySubmitted(err error) bool {
	return client.IsCode(err, response.ErrAlreadySubmitted)
}

// canContinue reports whether the session can still move forward. Without
// input a failed submission can never be retried, so the taker has to leave.
func canContinue(v session.View, haveInput bool) bool {
	switch v.State {
	case model.SubmissionSubmitted:
		return false
	case model.SubmissionFailed:
		if v.Failure != nil && alreadySubmitted(v.Failure.Err) {
			return false
		}
		return haveInput
	}
	return true
}
