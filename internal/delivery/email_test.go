package delivery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/taskhive/go-reminder-service/internal/domain"
	"github.com/taskhive/go-reminder-service/internal/shared/config"
	"github.com/taskhive/go-reminder-service/internal/shared/logger"
)

func TestSendSkipsWhenUnconfigured(t *testing.T) {
	channel := NewEmailChannel(config.SMTPConfig{}, logger.NewLogger())

	record := &domain.NotificationRecord{
		TaskID:    "t1",
		UserEmail: "user@example.org",
		Type:      domain.NotificationTypeReminder,
	}

	outcome, err := channel.Send(context.Background(), record)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if outcome != OutcomeSkipped {
		t.Errorf("Send() outcome = %s, want %s", outcome, OutcomeSkipped)
	}
}

func TestFormatMessage(t *testing.T) {
	channel := NewEmailChannel(config.SMTPConfig{}, logger.NewLogger())
	due := time.Date(2026, time.March, 2, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name        string
		record      *domain.NotificationRecord
		wantSubject string
		wantInBody  []string
	}{
		{
			name: "reminder",
			record: &domain.NotificationRecord{
				TaskTitle: "Water the plants",
				UserName:  "Sam",
				DueDate:   due,
				Type:      domain.NotificationTypeReminder,
			},
			wantSubject: "Reminder: Water the plants",
			wantInBody:  []string{"Hi Sam", "Mon, Mar 2 at 3:30 PM"},
		},
		{
			name: "overdue",
			record: &domain.NotificationRecord{
				TaskTitle: "Water the plants",
				UserName:  "Sam",
				DueDate:   due,
				Type:      domain.NotificationTypeOverdue,
			},
			wantSubject: "Overdue: Water the plants",
			wantInBody:  []string{"still open"},
		},
		{
			name: "missing name falls back to a generic greeting",
			record: &domain.NotificationRecord{
				TaskTitle: "Water the plants",
				DueDate:   due,
				Type:      domain.NotificationTypeReminder,
			},
			wantSubject: "Reminder: Water the plants",
			wantInBody:  []string{"Hi there"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body := channel.formatMessage(tt.record)
			if subject != tt.wantSubject {
				t.Errorf("subject = %q, want %q", subject, tt.wantSubject)
			}
			for _, want := range tt.wantInBody {
				if !strings.Contains(body, want) {
					t.Errorf("body %q does not contain %q", body, want)
				}
			}
		})
	}
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "smtp 535 reply", err: errors.New("535 5.7.8 Error: authentication failed"), want: true},
		{name: "gmail wording", err: errors.New("Username and Password not accepted"), want: true},
		{name: "invalid credentials", err: errors.New("Invalid credentials supplied"), want: true},
		{name: "network error", err: errors.New("dial tcp: connection refused"), want: false},
		{name: "mailbox error", err: errors.New("550 no such user"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isAuthError(tt.err); got != tt.want {
				t.Errorf("isAuthError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
