package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-taker/internal/client"
	"github.com/stemsi/exstem-taker/internal/config"
	"github.com/stemsi/exstem-taker/internal/logger"
	"github.com/stemsi/exstem-taker/internal/model"
	"github.com/stemsi/exstem-taker/internal/session"
	"golang.org/x/term"
)

// taker is the terminal exam client: it runs one timed exam session against
// the backend and reads answers from stdin.
func main() {
	os.Exit(run())
}

func run() int {
	examID := flag.String("exam", "", "Exam ID")
	instanceID := flag.String("instance", "", "Exam instance ID")
	token := flag.String("token", "", "Student JWT (defaults to STUDENT_TOKEN)")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	log := logger.SetupTo(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if *token != "" {
		cfg.StudentToken = *token
	}
	if *examID == "" || *instanceID == "" {
		fmt.Fprintln(os.Stderr, "Usage: taker -exam <exam id> -instance <instance id> [-token <jwt>]")
		return 2
	}
	if cfg.StudentToken == "" {
		log.Error().Msg("STUDENT_TOKEN is not set, mint one with issue-token")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── Wire Session ──────────────────────────────────────────────────
	scr := newScreen(os.Stdout, term.IsTerminal(int(os.Stdout.Fd())))
	api := client.New(cfg.BackendURL, cfg.StudentToken, cfg.HTTPTimeout, log)

	opts := session.Options{
		DurationSeconds:  cfg.ExamDurationSeconds,
		LowTimeThreshold: cfg.LowTimeThreshold,
		SubmitTimeout:    cfg.SubmitTimeout,
		Presenter:        scr,
	}

	if cfg.AutosaveEnabled {
		saver, err := client.DialAutosaver(ctx, cfg.WSURL(), cfg.StudentToken, *examID, *instanceID, log)
		if err != nil {
			log.Warn().Err(err).Msg("Autosave unavailable, answers are kept locally until submit")
		} else {
			defer func() {
				log.Debug().Int64("saved", saver.Saved()).Msg("Closing autosave stream")
				_ = saver.Close()
			}()
			opts.AnswerSink = saver
		}
	}

	ctrl := session.NewController(api, api, log, opts)

	// ─── Enter Exam ────────────────────────────────────────────────────
	if err := ctrl.Enter(ctx, *examID, *instanceID); err != nil {
		fmt.Fprintf(os.Stderr, "Could not load the exam: %v\n", err)
		return 1
	}
	questions, _ := ctrl.Questions()
	scr.showQuestions("Exam "+*examID, questions, nil)
	fmt.Fprint(os.Stdout, helpText)

	hostEvents := make(chan model.HostState, 4)
	go func() {
		if err := ctrl.Run(ctx, hostEvents); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Session loop stopped")
		}
	}()

	lines := readLines(os.Stdin)

	// ─── Event Loop ────────────────────────────────────────────────────
loop:
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stdout, "\nLeaving the exam.")
			ctrl.Exit()
			break loop
		case <-scr.Done():
			break loop
		case <-scr.Failures():
			if !sessionAlive(ctrl, scr, lines != nil) {
				break loop
			}
		case line, ok := <-lines:
			if !ok {
				// stdin closed: keep the clock running until the session ends.
				lines = nil
				if !sessionAlive(ctrl, scr, false) {
					break loop
				}
				continue
			}
			if handle(ctrl, scr, hostEvents, line) {
				break loop
			}
		}
	}

	waitSubmission(ctrl, cfg.SubmitTimeout, log)
	return 0
}

func sessionAlive(ctrl *session.Controller, scr *screen, haveInput bool) bool {
	v, err := ctrl.View()
	if err != nil {
		return false
	}
	if canContinue(v, haveInput) {
		return true
	}
	if v.State == model.SubmissionFailed && !haveInput && (v.Failure == nil || !alreadySubmitted(v.Failure.Err)) {
		scr.printf("No more input, leaving the exam without a recorded submission.\n")
	}
	return false
}

// handle runs one user command and reports whether the taker should quit.
func handle(ctrl *session.Controller, scr *screen, hostEvents chan<- model.HostState, line string) bool {
	cmd, err := parseCommand(line)
	if err != nil {
		scr.printf("%v\n", err)
		return false
	}

	switch cmd.kind {
	case cmdAnswer:
		questions, err := ctrl.Questions()
		if err != nil {
			scr.printf("%v\n", err)
			return false
		}
		q, ok := resolveQuestion(cmd.question, questions)
		if !ok {
			scr.printf("No question %q in this exam.\n", cmd.question)
			return false
		}
		if !q.HasOption(cmd.option) {
			scr.printf("Question %d has no option %q.\n", q.Number, cmd.option)
			return false
		}
		switch err := ctrl.SetAnswer(q.ID, cmd.option); {
		case errors.Is(err, session.ErrSessionClosed):
			scr.printf("Answers can no longer be changed.\n")
		case err != nil:
			scr.printf("%v\n", err)
		}

	case cmdSubmit:
		started, err := ctrl.Submit()
		var incomplete *session.IncompleteAnswersError
		switch {
		case errors.As(err, &incomplete):
			// Already shown by the screen.
		case err != nil:
			scr.printf("%v\n", err)
		case !started:
			scr.printf("The exam is already being submitted.\n")
		}

	case cmdStatus:
		if v, err := ctrl.View(); err == nil {
			scr.showStatus(v)
		}

	case cmdQuestions:
		v, err := ctrl.View()
		if err != nil {
			return false
		}
		questions, _ := ctrl.Questions()
		scr.showQuestions("", questions, v.Answers)

	case cmdHost:
		select {
		case hostEvents <- cmd.host:
		default:
			ctrl.HostStateChanged(cmd.host)
		}

	case cmdQuit:
		scr.printf("Leaving the exam without submitting.\n")
		ctrl.Exit()
		return true

	case cmdHelp:
		scr.printf("%s", helpText)
	}
	return false
}

func readLines(f *os.File) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			out <- sc.Text()
		}
	}()
	return out
}

// waitSubmission lets an in-flight submission finish before the process exits.
func waitSubmission(ctrl *session.Controller, timeout time.Duration, log zerolog.Logger) {
	done := make(chan struct{})
	go func() {
		ctrl.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout + time.Second):
		log.Warn().Msg("Submission still running at exit")
	}
}
