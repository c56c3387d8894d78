package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"go.uber.org/zap"
)

const (
	defaultWelcomeCooldown = 5 * time.Second

	// unknownContextID stands in when an event carries neither a group nor a
	// room identifier.
	unknownContextID = "unknown"
)

var (
	errMissingReplier = errors.New("replier dependency required")

	// ErrInvalidDispatcherConfig reports unusable dispatcher configuration.
	ErrInvalidDispatcherConfig = errors.New("bot: invalid dispatcher config")
)

// Replier sends an ordered sequence of reply messages for a webhook event.
type Replier interface {
	Reply(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error
}

// DispatcherConfig describes the dependencies of the event dispatcher.
type DispatcherConfig struct {
	Replier         Replier
	BookingPageURL  string
	WelcomeCooldown time.Duration
	Clock           func() time.Time
	Logger          *zap.Logger
}

// Dispatcher routes inbound webhook events to reply actions. The welcome
// cooldown is process-wide across all groups, held as an atomic unix-millis
// timestamp that lives only for the lifetime of the process.
type Dispatcher struct {
	replier        Replier
	bookingPageURL string
	cooldown       time.Duration
	now            func() time.Time
	logger         *zap.Logger

	lastWelcomeMillis atomic.Int64
}

// NewDispatcher constructs a dispatcher with validated configuration.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Replier == nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDispatcherConfig, errMissingReplier)
	}

	cooldown := cfg.WelcomeCooldown
	if cooldown <= 0 {
		cooldown = defaultWelcomeCooldown
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		replier:        cfg.Replier,
		bookingPageURL: strings.TrimRight(cfg.BookingPageURL, "?&"),
		cooldown:       cooldown,
		now:            clock,
		logger:         logger,
	}, nil
}

// HandleEvent decides whether and how to reply to a single webhook event.
// Events that cannot be replied to, and event types outside the bot's
// repertoire, are a defined no-op.
func (d *Dispatcher) HandleEvent(ctx context.Context, event webhook.EventInterface) error {
	switch typed := event.(type) {
	case webhook.MemberJoinedEvent:
		if !repliable(typed.ReplyToken) {
			return nil
		}
		return d.welcomeJoinedMembers(ctx, typed.ReplyToken)

	case webhook.MessageEvent:
		if !repliable(typed.ReplyToken) {
			return nil
		}
		text, ok := typed.Message.(webhook.TextMessageContent)
		if !ok {
			return nil
		}
		return d.handleText(ctx, typed.ReplyToken, text.Text, contextID(typed.Source))

	case webhook.FollowEvent:
		if !repliable(typed.ReplyToken) {
			return nil
		}
		return d.replier.Reply(ctx, typed.ReplyToken, followMessages())

	default:
		return nil
	}
}

// welcomeJoinedMembers sends the welcome sequence unless another welcome went
// out within the cooldown window. The load/store pair is deliberately not a
// compare-and-swap: under concurrent joins an extra or a suppressed welcome
// is acceptable.
func (d *Dispatcher) welcomeJoinedMembers(ctx context.Context, replyToken string) error {
	nowMillis := d.now().UnixMilli()
	if nowMillis-d.lastWelcomeMillis.Load() < d.cooldown.Milliseconds() {
		d.logger.Debug("welcome suppressed by cooldown")
		return nil
	}
	d.lastWelcomeMillis.Store(nowMillis)

	return d.replier.Reply(ctx, replyToken, welcomeMessages())
}

func (d *Dispatcher) handleText(ctx context.Context, replyToken, text, contextID string) error {
	lowered := strings.ToLower(text)

	switch {
	case strings.Contains(lowered, farewellTrigger):
		return d.replier.Reply(ctx, replyToken, farewellMessages())

	case strings.Contains(lowered, reserveTrigger):
		if d.bookingPageURL == "" {
			d.logger.Warn("reserve trigger matched but no booking page url is configured")
			return nil
		}
		return d.replier.Reply(ctx, replyToken, bookingLinkMessages(d.bookingPageURL, contextID))
	}

	return nil
}

// contextID extracts the chat context identifier the booking link is scoped
// to: group id first, then room id, then a literal placeholder.
func contextID(source webhook.SourceInterface) string {
	switch typed := source.(type) {
	case webhook.GroupSource:
		if typed.GroupId != "" {
			return typed.GroupId
		}
	case webhook.RoomSource:
		if typed.RoomId != "" {
			return typed.RoomId
		}
	}
	return unknownContextID
}

// repliable reports whether the token can be used to reply. The platform
// sends all-zero and all-f placeholder tokens on verification and redelivered
// events; replying to those always fails.
func repliable(token string) bool {
	if token == "" {
		return false
	}
	allZero, allEff := true, true
	for _, r := range token {
		if r != '0' {
			allZero = false
		}
		if r != 'f' && r != 'F' {
			allEff = false
		}
	}
	return !allZero && !allEff
}
