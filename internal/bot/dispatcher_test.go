package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

type replyCall struct {
	token    string
	messages []messaging_api.MessageInterface
}

type fakeReplier struct {
	calls []replyCall
	err   error
}

func (f *fakeReplier) Reply(_ context.Context, token string, messages []messaging_api.MessageInterface) error {
	f.calls = append(f.calls, replyCall{token: token, messages: messages})
	return f.err
}

func newTestDispatcher(t *testing.T, replier *fakeReplier, clock func() time.Time) *Dispatcher {
	t.Helper()
	dispatcher, err := NewDispatcher(DispatcherConfig{
		Replier:        replier,
		BookingPageURL: "https://booking.example.com/seats",
		Clock:          clock,
	})
	if err != nil {
		t.Fatalf("unexpected constructor error: %v", err)
	}
	return dispatcher
}

func TestNewDispatcherRequiresReplier(t *testing.T) {
	_, err := NewDispatcher(DispatcherConfig{})
	if !errors.Is(err, ErrInvalidDispatcherConfig) {
		t.Fatalf("expected invalid config error, got %v", err)
	}
}

func TestWelcomeCooldownSuppressesSecondJoin(t *testing.T) {
	current := time.UnixMilli(1_700_000_000_000)
	replier := &fakeReplier{}
	dispatcher := newTestDispatcher(t, replier, func() time.Time { return current })

	first := webhook.MemberJoinedEvent{ReplyToken: "token-1"}
	if err := dispatcher.HandleEvent(context.Background(), first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	current = current.Add(3 * time.Second)
	second := webhook.MemberJoinedEvent{ReplyToken: "token-2"}
	if err := dispatcher.HandleEvent(context.Background(), second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(replier.calls) != 1 {
		t.Fatalf("expected exactly one welcome reply, got %d", len(replier.calls))
	}
	if replier.calls[0].token != "token-1" {
		t.Fatalf("expected reply to the first event, got token %q", replier.calls[0].token)
	}
}

func TestWelcomeSentAgainAfterCooldownElapses(t *testing.T) {
	current := time.UnixMilli(1_700_000_000_000)
	replier := &fakeReplier{}
	dispatcher := newTestDispatcher(t, replier, func() time.Time { return current })

	if err := dispatcher.HandleEvent(context.Background(), webhook.MemberJoinedEvent{ReplyToken: "token-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	current = current.Add(6 * time.Second)
	if err := dispatcher.HandleEvent(context.Background(), webhook.MemberJoinedEvent{ReplyToken: "token-2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(replier.calls) != 2 {
		t.Fatalf("expected two welcome replies, got %d", len(replier.calls))
	}
}

func TestWelcomeSequenceContainsGreetingFormAndImage(t *testing.T) {
	replier := &fakeReplier{}
	dispatcher := newTestDispatcher(t, replier, time.Now)

	if err := dispatcher.HandleEvent(context.Background(), webhook.MemberJoinedEvent{ReplyToken: "token-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(replier.calls) != 1 {
		t.Fatalf("expected one reply call, got %d", len(replier.calls))
	}
	messages := replier.calls[0].messages
	if len(messages) != 3 {
		t.Fatalf("expected three welcome messages, got %d", len(messages))
	}
	if _, ok := messages[0].(messaging_api.TextMessage); !ok {
		t.Fatalf("expected first message to be text, got %T", messages[0])
	}
	if _, ok := messages[2].(messaging_api.ImageMessage); !ok {
		t.Fatalf("expected last message to be an image, got %T", messages[2])
	}
}

func TestSentinelReplyTokenNeverTriggersReply(t *testing.T) {
	sentinels := []string{
		"",
		"00000000000000000000000000000000",
		"ffffffffffffffffffffffffffffffff",
	}

	for _, token := range sentinels {
		replier := &fakeReplier{}
		dispatcher := newTestDispatcher(t, replier, time.Now)

		events := []webhook.EventInterface{
			webhook.MemberJoinedEvent{ReplyToken: token},
			webhook.FollowEvent{ReplyToken: token},
			webhook.MessageEvent{
				ReplyToken: token,
				Message:    webhook.TextMessageContent{Text: "เรสมาลาพี่ๆ"},
			},
		}
		for _, event := range events {
			if err := dispatcher.HandleEvent(context.Background(), event); err != nil {
				t.Fatalf("token %q: unexpected error: %v", token, err)
			}
		}
		if len(replier.calls) != 0 {
			t.Fatalf("token %q: expected no replies, got %d", token, len(replier.calls))
		}
	}
}

func TestFarewellTriggerMatchesSubstringCaseInsensitive(t *testing.T) {
	replier := &fakeReplier{}
	dispatcher := newTestDispatcher(t, replier, time.Now)

	event := webhook.MessageEvent{
		ReplyToken: "token-1",
		Message:    webhook.TextMessageContent{Text: "OK เรสมาลาพี่ๆ BYE"},
	}
	if err := dispatcher.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(replier.calls) != 1 {
		t.Fatalf("expected one farewell reply, got %d", len(replier.calls))
	}
	if len(replier.calls[0].messages) != 2 {
		t.Fatalf("expected two farewell messages, got %d", len(replier.calls[0].messages))
	}
}

func TestTextWithoutTriggerPhraseIsIgnored(t *testing.T) {
	replier := &fakeReplier{}
	dispatcher := newTestDispatcher(t, replier, time.Now)

	event := webhook.MessageEvent{
		ReplyToken: "token-1",
		Message:    webhook.TextMessageContent{Text: "สวัสดีครับ"},
	}
	if err := dispatcher.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(replier.calls) != 0 {
		t.Fatalf("expected no reply, got %d", len(replier.calls))
	}
}

func TestReserveTriggerLinksToBookingPageWithGroupID(t *testing.T) {
	cases := []struct {
		name     string
		source   webhook.SourceInterface
		expected string
	}{
		{name: "group source", source: webhook.GroupSource{GroupId: "G9"}, expected: "?groupId=G9"},
		{name: "room fallback", source: webhook.RoomSource{RoomId: "R7"}, expected: "?groupId=R7"},
		{name: "no source", source: nil, expected: "?groupId=unknown"},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			replier := &fakeReplier{}
			dispatcher := newTestDispatcher(t, replier, time.Now)

			event := webhook.MessageEvent{
				ReplyToken: "token-1",
				Source:     testCase.source,
				Message:    webhook.TextMessageContent{Text: "ขอจองที่นั่งหน่อยครับ"},
			}
			if err := dispatcher.HandleEvent(context.Background(), event); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(replier.calls) != 1 {
				t.Fatalf("expected one reply, got %d", len(replier.calls))
			}
			text, ok := replier.calls[0].messages[0].(messaging_api.TextMessage)
			if !ok {
				t.Fatalf("expected a text message, got %T", replier.calls[0].messages[0])
			}
			if !strings.Contains(text.Text, "https://booking.example.com/seats") {
				t.Fatalf("expected booking page link, got %q", text.Text)
			}
			if !strings.Contains(text.Text, testCase.expected) {
				t.Fatalf("expected link to carry %q, got %q", testCase.expected, text.Text)
			}
		})
	}
}

func TestFollowEventRepliesWithoutCooldown(t *testing.T) {
	replier := &fakeReplier{}
	dispatcher := newTestDispatcher(t, replier, time.Now)

	for _, token := range []string{"token-1", "token-2"} {
		if err := dispatcher.HandleEvent(context.Background(), webhook.FollowEvent{ReplyToken: token}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if len(replier.calls) != 2 {
		t.Fatalf("expected follow replies for both events, got %d", len(replier.calls))
	}
}

func TestUnhandledEventTypesAreIgnored(t *testing.T) {
	replier := &fakeReplier{}
	dispatcher := newTestDispatcher(t, replier, time.Now)

	if err := dispatcher.HandleEvent(context.Background(), webhook.UnfollowEvent{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(replier.calls) != 0 {
		t.Fatalf("expected no reply, got %d", len(replier.calls))
	}
}

func TestReplyFailurePropagates(t *testing.T) {
	replier := &fakeReplier{err: errors.New("upstream down")}
	dispatcher := newTestDispatcher(t, replier, time.Now)

	event := webhook.FollowEvent{ReplyToken: "token-1"}
	if err := dispatcher.HandleEvent(context.Background(), event); err == nil {
		t.Fatalf("expected reply failure to propagate")
	}
}
