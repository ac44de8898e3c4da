package notification

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/storyflow/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/storyflow/internal/lib/sl"
	"github.com/magabrotheeeer/storyflow/internal/lib/smtp"
)

type MockTransport struct{ mock.Mock }

func (m *MockTransport) Connect() (smtp.Client, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) Sender() string {
	return m.Called().String(0)
}

type MockSMTPClient struct{ mock.Mock }

func (m *MockSMTPClient) Mail(from string) error { return m.Called(from).Error(0) }
func (m *MockSMTPClient) Rcpt(to string) error   { return m.Called(to).Error(0) }
func (m *MockSMTPClient) Quit() error            { return m.Called().Error(0) }
func (m *MockSMTPClient) Close() error           { return m.Called().Error(0) }
func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

type bufferWriter struct{ bytes.Buffer }

func (w *bufferWriter) Close() error { return nil }

func expectDelivery(tr *MockTransport, to string) (*MockSMTPClient, *bufferWriter) {
	client := new(MockSMTPClient)
	w := new(bufferWriter)
	tr.On("Sender").Return("noreply@storyflow.dev")
	tr.On("Connect").Return(client, nil).Once()
	client.On("Mail", "noreply@storyflow.dev").Return(nil).Once()
	client.On("Rcpt", to).Return(nil).Once()
	client.On("Data").Return(w, nil).Once()
	client.On("Quit").Return(nil).Once()
	client.On("Close").Return(nil).Once()
	return client, w
}

func TestHandle(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantSubject string
		wantText    []string
	}{
		{
			name:        "approved",
			body:        `{"type":"article.status","email":"a@x.io","articleId":"1","title":"Go tips","status":"approved"}`,
			wantSubject: "Subject: Ваша статья опубликована",
			wantText:    []string{"Go tips"},
		},
		{
			name:        "declined with reason",
			body:        `{"type":"article.status","email":"a@x.io","title":"Go tips","status":"declined","reason":"off-topic"}`,
			wantSubject: "Subject: Ваша статья отклонена",
			wantText:    []string{"Причина: off-topic"},
		},
		{
			name:        "premium expired",
			body:        `{"type":"premium.expired","email":"a@x.io"}`,
			wantSubject: "Subject: Премиум-доступ закончился",
			wantText:    []string{"истёк"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := new(MockTransport)
			client, w := expectDelivery(tr, "a@x.io")

			err := NewService(tr, sl.Discard()).Handle([]byte(tt.body))

			assert.NoError(t, err)
			assert.Contains(t, w.String(), tt.wantSubject)
			assert.Contains(t, w.String(), "To: a@x.io")
			for _, s := range tt.wantText {
				assert.Contains(t, w.String(), s)
			}
			tr.AssertExpectations(t)
			client.AssertExpectations(t)
		})
	}
}

func TestHandle_DeclinedWithoutReason(t *testing.T) {
	tr := new(MockTransport)
	_, w := expectDelivery(tr, "a@x.io")

	err := NewService(tr, sl.Discard()).
		Handle([]byte(`{"type":"article.status","email":"a@x.io","title":"T","status":"declined"}`))

	assert.NoError(t, err)
	assert.NotContains(t, w.String(), "Причина")
}

func TestHandle_Unprocessable(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `invalid json`},
		{"no recipient", `{"type":"premium.expired"}`},
		{"unknown type", `{"type":"article.deleted","email":"a@x.io"}`},
		{"unknown status", `{"type":"article.status","email":"a@x.io","status":"archived"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := new(MockTransport)

			err := NewService(tr, sl.Discard()).Handle([]byte(tt.body))

			assert.ErrorIs(t, err, rabbitmq.ErrUnprocessable)
			tr.AssertNotCalled(t, "Connect")
		})
	}
}

func TestHandle_ConnectErrorIsRetryable(t *testing.T) {
	tr := new(MockTransport)
	tr.On("Sender").Return("noreply@storyflow.dev")
	tr.On("Connect").Return(nil, errors.New("connection refused")).Once()

	err := NewService(tr, sl.Discard()).Handle([]byte(`{"type":"premium.expired","email":"a@x.io"}`))

	assert.ErrorContains(t, err, "connection refused")
	assert.NotErrorIs(t, err, rabbitmq.ErrUnprocessable)
}
