//go:build e2e
// +build e2e

package e2e

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-taker/internal/client"
	"github.com/stemsi/exstem-taker/internal/config"
	"github.com/stemsi/exstem-taker/internal/model"
	"github.com/stemsi/exstem-taker/internal/repository"
	"github.com/stemsi/exstem-taker/internal/response"
	"github.com/stemsi/exstem-taker/internal/service"
	"github.com/stemsi/exstem-taker/internal/session"
)

const (
	defaultBaseURL  = "http://localhost:8080"
	questionBankRel = "../../testdata/exams.json"
)

var (
	baseURL      string
	dbURL        string
	studentID    int
	studentToken string
	exam         model.Exam
)

// The suite runs against a live development backend started with the same
// JWT_SECRET and question bank, e.g. `go run ./cmd/server`.
func TestMain(m *testing.M) {
	// Load .env if present (ignore error)
	_ = godotenv.Load("../../.env")

	baseURL = strings.TrimRight(os.Getenv("BASE_URL"), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	dbURL = os.Getenv("DATABASE_URL")

	exams, err := repository.LoadExamFile(questionBankRel)
	if err != nil || len(exams) == 0 {
		fmt.Printf("Setup failed: load question bank: %v\n", err)
		os.Exit(1)
	}
	exam = exams[0]

	// A fresh student per run keeps the server-side duplicate guard out of the way.
	studentID = int(time.Now().Unix()%1_000_000) + 1000
	cfg := config.Load()
	studentToken, err = service.NewAuthService(cfg).GenerateStudentToken(studentID)
	if err != nil {
		fmt.Printf("Setup failed: issue token: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func TestE2EFlow(t *testing.T) {
	log := zerolog.Nop()
	api := client.New(baseURL, studentToken, 10*time.Second, log)

	t.Run("Health", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/health")
		if err != nil {
			t.Fatalf("Health request failed: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}
	})

	t.Run("QuestionsHideAnswerKey", func(t *testing.T) {
		paper, err := api.GetExamPaper(context.Background(), exam.ID, uuid.NewString())
		if err != nil {
			t.Fatalf("Get paper failed: %v", err)
		}
		if len(paper.Questions) != len(exam.Questions) {
			t.Fatalf("Expected %d questions, got %d", len(exam.Questions), len(paper.Questions))
		}
	})

	instanceID := uuid.NewString()

	t.Run("ManualSubmitAllCorrect", func(t *testing.T) {
		p := newWaitPresenter()
		ctrl := session.NewController(api, api, log, session.Options{Presenter: p})

		if err := ctrl.Enter(context.Background(), exam.ID, instanceID); err != nil {
			t.Fatalf("Enter failed: %v", err)
		}
		for qid, opt := range exam.AnswerKey() {
			if err := ctrl.SetAnswer(qid, opt); err != nil {
				t.Fatalf("SetAnswer %s failed: %v", qid, err)
			}
		}

		started, err := ctrl.Submit()
		if err != nil || !started {
			t.Fatalf("Submit not started: started=%v err=%v", started, err)
		}

		result := p.wait(t)
		if result.Score != 100 || result.CorrectAnswers != len(exam.Questions) {
			t.Errorf("Expected full score, got %+v", result)
		}
		if result.Reason != model.ReasonManual {
			t.Errorf("Expected reason manual, got %s", result.Reason)
		}
		ctrl.Wait()
	})

	t.Run("DuplicateSubmitRejected", func(t *testing.T) {
		_, err := api.SubmitExam(context.Background(), model.SubmitRequest{
			ExamID:     exam.ID,
			InstanceID: instanceID,
			Answers:    exam.AnswerKey(),
			Reason:     model.ReasonManual,
		})
		if !client.IsCode(err, response.ErrAlreadySubmitted) {
			t.Fatalf("Expected ALREADY_SUBMITTED, got %v", err)
		}
	})

	t.Run("TabSwitchSubmitsPartialAnswers", func(t *testing.T) {
		p := newWaitPresenter()
		ctrl := session.NewController(api, api, log, session.Options{Presenter: p})

		if err := ctrl.Enter(context.Background(), exam.ID, uuid.NewString()); err != nil {
			t.Fatalf("Enter failed: %v", err)
		}
		first := exam.Questions[0]
		if err := ctrl.SetAnswer(first.ID, first.CorrectOption); err != nil {
			t.Fatalf("SetAnswer failed: %v", err)
		}

		ctrl.HostStateChanged(model.HostActive)
		ctrl.HostStateChanged(model.HostBackground)

		result := p.wait(t)
		if result.Reason != model.ReasonTabSwitch {
			t.Errorf("Expected reason tab_switch, got %s", result.Reason)
		}
		if result.CorrectAnswers != 1 {
			t.Errorf("Expected 1 correct answer, got %d", result.CorrectAnswers)
		}
		ctrl.Wait()
	})

	t.Run("Autosave", func(t *testing.T) {
		ctx := context.Background()
		wsURL := "ws" + strings.TrimPrefix(baseURL, "http")
		saver, err := client.DialAutosaver(ctx, wsURL, studentToken, exam.ID, uuid.NewString(), log)
		if err != nil {
			t.Fatalf("Dial autosave failed: %v", err)
		}
		defer saver.Close()

		q := exam.Questions[0]
		saver.SaveAnswer(q.ID, q.Options[0].Label)

		deadline := time.Now().Add(5 * time.Second)
		for saver.Saved() < 1 && time.Now().Before(deadline) {
			time.Sleep(50 * time.Millisecond)
		}
		if saver.Saved() < 1 {
			t.Fatalf("Autosave was not acknowledged")
		}
	})

	t.Run("ResultPersisted", func(t *testing.T) {
		if dbURL == "" {
			t.Skip("DATABASE_URL not set")
		}
		ctx := context.Background()
		conn, err := pgx.Connect(ctx, dbURL)
		if err != nil {
			t.Fatalf("DB connect failed: %v", err)
		}
		defer conn.Close(ctx)

		// The result worker persists in batches, so poll for a while.
		var count int
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			err = conn.QueryRow(ctx,
				`SELECT COUNT(*) FROM exam_submissions WHERE student_id = $1`, studentID,
			).Scan(&count)
			if err != nil {
				t.Fatalf("Count submissions failed: %v", err)
			}
			if count >= 2 {
				break
			}
			time.Sleep(250 * time.Millisecond)
		}
		if count != 2 {
			t.Fatalf("Expected 2 persisted submissions, got %d", count)
		}
	})
}

func TestUnknownExam(t *testing.T) {
	api := client.New(baseURL, studentToken, 10*time.Second, zerolog.Nop())
	ctrl := session.NewController(api, api, zerolog.Nop(), session.Options{})

	err := ctrl.Enter(context.Background(), uuid.NewString(), uuid.NewString())
	if !session.IsLoadError(err) {
		t.Fatalf("Expected load error, got %v", err)
	}
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Fatalf("Expected 404 from backend, got %v", err)
	}
}

// waitPresenter hands the first result or failure to the test.
type waitPresenter struct {
	results  chan session.ResultView
	failures chan session.FailureView
}

func newWaitPresenter() *waitPresenter {
	return &waitPresenter{
		results:  make(chan session.ResultView, 1),
		failures: make(chan session.FailureView, 1),
	}
}

func (p *waitPresenter) Tick(int)                                   {}
func (p *waitPresenter) LowTime(int)                                {}
func (p *waitPresenter) Incomplete(*session.IncompleteAnswersError) {}
func (p *waitPresenter) Submitting(model.Reason)                    {}

func (p *waitPresenter) Submitted(view session.ResultView) {
	select {
	case p.results <- view:
	default:
	}
}

func (p *waitPresenter) Failed(view session.FailureView) {
	select {
	case p.failures <- view:
	default:
	}
}

func (p *waitPresenter) wait(t *testing.T) session.ResultView {
	t.Helper()
	select {
	case r := <-p.results:
		return r
	case f := <-p.failures:
		t.Fatalf("Submission failed: %v", f.Err)
	case <-time.After(15 * time.Second):
		t.Fatalf("Timed out waiting for submission")
	}
	return session.ResultView{}
}
