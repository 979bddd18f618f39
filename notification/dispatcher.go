// Package notification sends the transactional emails that accompany issue
// submission, status changes and account verification. Every send is best
// effort: failures are logged and counted, never returned to the caller.
package notification

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"gramaalert-be/metrics"
	"gramaalert-be/models"

	"go.uber.org/zap"
)

// ErrTemplateNotConfigured means no email went out because the operation has
// no template id.
var ErrTemplateNotConfigured = errors.New("email template not configured")

const (
	dateLayout     = "01/02/2006"
	dateTimeLayout = "01/02/2006, 3:04:05 PM"
)

// Sender delivers one templated email.
type Sender interface {
	Send(ctx context.Context, templateID string, params map[string]string) error
}

// Templates maps each operation to its email template id.
type Templates struct {
	Submission   string
	StatusChange string
	Verification string
}

type Dispatcher struct {
	sender    Sender
	templates Templates
	timeout   time.Duration
	log       *zap.Logger
	now       func() time.Time
	wg        sync.WaitGroup
}

func NewDispatcher(sender Sender, templates Templates, timeout time.Duration, log *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{
		sender:    sender,
		templates: templates,
		timeout:   timeout,
		log:       log,
		now:       time.Now,
	}
}

// NotifySubmission confirms a new issue to its reporter.
func (d *Dispatcher) NotifySubmission(email string, issue models.Issue, id string) {
	params := map[string]string{
		"to_email":          email,
		"user_name":         Username(email),
		"issue_title":       issue.Title,
		"issue_id":          id,
		"issue_description": issue.Description,
		"issue_location":    issue.Location,
		"issue_category":    string(issue.Category),
		"submit_date":       d.now().Format(dateLayout),
	}
	d.dispatch("submission", d.templates.Submission, params)
}

// NotifyStatusChange tells the reporter an official moved the issue.
func (d *Dispatcher) NotifyStatusChange(email string, issue models.Issue, id string, oldStatus, newStatus models.IssueStatus) {
	note := ""
	if issue.ResolutionNote != nil {
		note = *issue.ResolutionNote
	}
	params := map[string]string{
		"to_email":        orDefault(email, "default@example.com"),
		"user_name":       orDefault(Username(email), "User"),
		"issue_title":     orDefault(issue.Title, "No title provided"),
		"issue_id":        orDefault(id, "N/A"),
		"old_status":      orDefault(string(oldStatus), "N/A"),
		"new_status":      orDefault(string(newStatus), "N/A"),
		"update_date":     d.now().Format(dateTimeLayout),
		"resolution_note": orDefault(note, "No notes provided"),
	}
	d.dispatch("status_change", d.templates.StatusChange, params)
}

// NotifyVerification sends the email-ownership link after registration.
// Unlike the issue emails it reports a missing template, since without the
// link the account can never be verified.
func (d *Dispatcher) NotifyVerification(email, link string) error {
	if d.templates.Verification == "" {
		d.log.Error("verification email template not configured", zap.String("to", email))
		metrics.Notifications.WithLabelValues("verification", "skipped").Inc()
		return ErrTemplateNotConfigured
	}
	params := map[string]string{
		"to_email":          email,
		"user_name":         Username(email),
		"verification_link": link,
	}
	d.dispatch("verification", d.templates.Verification, params)
	return nil
}

// Wait blocks until every in-flight send has settled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(kind, templateID string, params map[string]string) {
	if templateID == "" {
		d.log.Debug("email template not configured, skipping", zap.String("kind", kind))
		metrics.Notifications.WithLabelValues(kind, "skipped").Inc()
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sender.Send(ctx, templateID, params); err != nil {
			d.log.Warn("Email sending failed",
				zap.String("kind", kind),
				zap.String("issue_id", params["issue_id"]),
				zap.Error(err),
			)
			metrics.Notifications.WithLabelValues(kind, "failed").Inc()
			return
		}
		metrics.Notifications.WithLabelValues(kind, "sent").Inc()
	}()
}

// Username is the local part of an email address.
func Username(email string) string {
	name, _, _ := strings.Cut(email, "@")
	return name
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
