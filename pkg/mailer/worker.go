package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	mailtpl "github.com/oksasatya/go-auth-facade/pkg/mailer/templates"
)

// ErrMalformedJob marks a job that can never be delivered and must not be retried.
var ErrMalformedJob = errors.New("mailer: malformed email job")

// Worker renders queued email jobs and hands them to a Sender.
type Worker struct {
	Sender Sender
	Logger *logrus.Logger
}

// Process handles one queue message body. Errors wrapping ErrMalformedJob
// should be dropped, any other error requeued.
func (w *Worker) Process(ctx context.Context, body []byte) error {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	if job.To == "" {
		return fmt.Errorf("%w: no recipient", ErrMalformedJob)
	}

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		s, t, h, err := mailtpl.Render(job.Template, job.Data)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedJob, err)
		}
		subject, text, html = s, t, h
	}

	if err := w.Sender.Send(ctx, job.To, subject, text, html); err != nil {
		return fmt.Errorf("send to %s: %w", job.To, err)
	}
	if w.Logger != nil {
		w.Logger.WithFields(logrus.Fields{"to": job.To, "template": job.Template}).Info("email sent")
	}
	return nil
}
