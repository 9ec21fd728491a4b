package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sandeepkv93/streakly/pkg/log"
)

var (
	ErrRateLimited = errors.New("notify: rate limited")
	ErrUnsupported = errors.New("notify: no desktop notifier on this platform")
)

type Notification struct {
	Title string
	Body  string
	Level string
	At    time.Time
}

type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

type Noop struct{}

func (Noop) Send(context.Context, Notification) error { return nil }

// Exec shows desktop notifications through notify-send on Linux and osascript on
// macOS.
type Exec struct{}

func (Exec) Send(ctx context.Context, n Notification) error {
	switch runtime.GOOS {
	case "linux":
		return exec.CommandContext(ctx, "notify-send", n.Title, n.Body).Run()
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		return exec.CommandContext(ctx, "osascript", "-e", script).Run()
	default:
		return ErrUnsupported
	}
}

// Binary returns the helper Exec would run on this platform.
func (Exec) Binary() string {
	switch runtime.GOOS {
	case "linux":
		return "notify-send"
	case "darwin":
		return "osascript"
	default:
		return ""
	}
}

// Available reports whether the platform helper is on PATH.
func (e Exec) Available() bool {
	bin := e.Binary()
	if bin == "" {
		return false
	}
	_, err := exec.LookPath(bin)
	return err == nil
}

func escapeAppleScript(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `"`, `\"`)
}

type Log struct {
	Logger log.Logger
}

func (l Log) Send(ctx context.Context, n Notification) error {
	l.Logger.Infof(ctx, "notification [%s] %s: %s", n.Level, n.Title, n.Body)
	return nil
}

// PartialError reports a notification that reached some sinks but not all.
type PartialError struct {
	Delivered int
	Failed    int
	Err       error
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("delivered to %d of %d notifiers: %v", e.Delivered, e.Delivered+e.Failed, e.Err)
}

func (e *PartialError) Unwrap() error { return e.Err }

// Delivered reports whether err still means the notification was shown
// somewhere.
func Delivered(err error) bool {
	if err == nil {
		return true
	}
	var partial *PartialError
	return errors.As(err, &partial) && partial.Delivered > 0
}

// Multi sends to every notifier. When only some fail the error is a
// *PartialError.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, next := range m {
		if err := next.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	err := errors.Join(errs...)
	if delivered := len(m) - len(errs); delivered > 0 {
		return &PartialError{Delivered: delivered, Failed: len(errs), Err: err}
	}
	return err
}

// RateLimited drops notifications beyond perMinute with ErrRateLimited. A
// device that comes back after a long sleep can otherwise flush dozens of
// past-due alarms at once.
type RateLimited struct {
	next    Notifier
	limiter *rate.Limiter
}

func NewRateLimited(next Notifier, perMinute int) *RateLimited {
	if perMinute <= 0 {
		perMinute = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}
}

func (r *RateLimited) Send(ctx context.Context, n Notification) error {
	if !r.limiter.Allow() {
		return fmt.Errorf("%w: %q", ErrRateLimited, n.Title)
	}
	return r.next.Send(ctx, n)
}
