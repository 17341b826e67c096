package inform

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/airenas/revu/internal/pkg/messages"
	"github.com/airenas/revu/internal/pkg/persistence"
	"github.com/airenas/revu/internal/pkg/utils"
	"github.com/airenas/revu/internal/pkg/utils/handler"
	"github.com/jordan-wright/email"
	"github.com/vgarvardt/gue/v5"
)

// Sender sends emails
type Sender interface {
	Send(email *email.Email) error
}

// EmailMaker prepares the email for one review
type EmailMaker interface {
	Make(r *persistence.Review) (*email.Email, error)
}

// DB tracks email sending process.
// It is used to guarantee not to send the emails twice
type DB interface {
	LockEmailTable(context.Context, string, string) error
	UnLockEmailTable(context.Context, string, string, *int) error
	LoadReview(ctx context.Context, id string) (*persistence.Review, error)
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient   *gue.Client
	WorkerCount int
	EmailSender Sender
	EmailMaker  EmailMaker
	DB          DB
	Testing     bool
}

// StartWorkerService starts the event queue listener to send notification emails.
// Returns channel closed when all the jobs are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Msg("Starting listen for messages")
	if data.Testing {
		goapp.Log.Warn().Msg("SERVICE IN TEST MODE")
	}

	wm := gue.WorkMap{
		messages.Notify: handler.Create(data, handleNotify,
			handler.DefaultOpts[messages.NotifyMessage]().WithTimeout(time.Minute).
				WithBackoff(handler.DefaultBackoffOrTest(data.Testing))),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Notify),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("revu-inform"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting workers")
		if err := pool.Run(ctx); err != nil {
			goapp.Log.Error().Err(err).Msg("pool error")
		}
		goapp.Log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

func handleNotify(ctx context.Context, m *messages.NotifyMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Msg("handling")

	rev, err := data.DB.LoadReview(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("can't load review: %w", err)
	}
	if rev == nil {
		goapp.Log.Warn().Str("ID", m.ID).Msg("no review, skip")
		return nil
	}

	email, err := data.EmailMaker.Make(rev)
	if err != nil {
		return fmt.Errorf("can't prepare email: %w", err)
	}

	if err := data.DB.LockEmailTable(ctx, m.ID, messages.Notify); err != nil {
		return fmt.Errorf("can't lock mail table: %w", err)
	}
	var unlockValue = 0
	defer data.DB.UnLockEmailTable(ctx, m.ID, messages.Notify, &unlockValue)

	if err := data.EmailSender.Send(email); err != nil {
		return fmt.Errorf("can't send email: %w", err)
	}
	unlockValue = 2
	return nil
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.EmailMaker == nil {
		return fmt.Errorf("no EmailMaker")
	}
	if data.EmailSender == nil {
		return fmt.Errorf("no EmailSender")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	return nil
}
