package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const testChannelSecret = "test-channel-secret"

func signBody(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func newWebhookRequest(body, signature string) *http.Request {
	request := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("X-Line-Signature", signature)
	return request
}

const followEventJSON = `{
	"type": "follow",
	"mode": "active",
	"timestamp": 1700000000000,
	"webhookEventId": "01HXXXXXXXXXXXXXXXXXXXXXXX",
	"deliveryContext": {"isRedelivery": false},
	"source": {"type": "user", "userId": "U1"},
	"replyToken": "reply-token-1"
}`

func TestWebhookAcceptsSignedEmptyBatch(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	handler := newTestHandler(t, &fakeReservations{}, dispatcher)

	body := `{"destination":"U0000","events":[]}`
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, newWebhookRequest(body, signBody(testChannelSecret, body)))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", recorder.Code)
	}
	if dispatcher.handled != 0 {
		t.Fatalf("expected no dispatched events, got %d", dispatcher.handled)
	}
}

func TestWebhookDispatchesEveryEvent(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	handler := newTestHandler(t, &fakeReservations{}, dispatcher)

	body := `{"destination":"U0000","events":[` + followEventJSON + `,` + followEventJSON + `]}`
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, newWebhookRequest(body, signBody(testChannelSecret, body)))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if dispatcher.handled != 2 {
		t.Fatalf("expected both events dispatched, got %d", dispatcher.handled)
	}
}

func TestWebhookRejectsInvalidSignature(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	handler := newTestHandler(t, &fakeReservations{}, dispatcher)

	body := `{"destination":"U0000","events":[` + followEventJSON + `]}`
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, newWebhookRequest(body, signBody("wrong-secret", body)))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", recorder.Code)
	}
	if dispatcher.handled != 0 {
		t.Fatalf("expected no events dispatched, got %d", dispatcher.handled)
	}
}

func TestWebhookReportsServerErrorAfterDispatchingWholeBatch(t *testing.T) {
	dispatcher := &fakeDispatcher{err: errors.New("reply failed")}
	handler := newTestHandler(t, &fakeReservations{}, dispatcher)

	body := `{"destination":"U0000","events":[` + followEventJSON + `,` + followEventJSON + `]}`
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, newWebhookRequest(body, signBody(testChannelSecret, body)))

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", recorder.Code)
	}
	if dispatcher.handled != 2 {
		t.Fatalf("expected every event to be attempted, got %d", dispatcher.handled)
	}
}
