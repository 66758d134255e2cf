// Package assistant turns free-text chat messages into replies about the
// household's energy, using a fixed decision table of intent rules.
package assistant

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xaenox/watt-guardian/internal/classifier"
	"github.com/xaenox/watt-guardian/internal/models"
	"github.com/xaenox/watt-guardian/internal/random"
)

type Intent string

const (
	IntentGreeting        Intent = "greeting"
	IntentUsage           Intent = "usage"
	IntentBudget          Intent = "budget"
	IntentDeviceStatus    Intent = "device_status"
	IntentHighestConsumer Intent = "highest_consumer"
	IntentTips            Intent = "tips"
	IntentApplianceStatus Intent = "appliance_status"
	IntentToggle          Intent = "toggle"
	IntentComparison      Intent = "comparison"
	IntentWeather         Intent = "weather"
	IntentScheduleOffer   Intent = "schedule_offer"
	IntentHelp            Intent = "help"
	IntentThanks          Intent = "thanks"
	IntentJoke            Intent = "joke"
	IntentSchedule        Intent = "schedule"
	IntentFallback        Intent = "fallback"
	IntentError           Intent = "error"
)

const (
	welcomeText = "Hello! I'm WattGuardian, your smart home energy assistant. How can I help you today?"
	apologyText = "I apologize, but I'm having trouble processing your request. Please try again."

	suggestionThreshold = 0.3
)

// Toggler switches appliances on or off on behalf of a chat command.
type Toggler interface {
	ToggleApplianceState(id int, isOn bool)
}

// Fallback answers inputs that no rule recognises.
type Fallback interface {
	Answer(ctx context.Context, question string, snap models.Snapshot) (string, error)
}

type Request struct {
	Text     string
	Snapshot models.Snapshot
	State    models.DialogueState
}

type Response struct {
	Reply  models.Reply
	Intent Intent
	// Next is the dialogue state to carry into the following request.
	Next models.DialogueState
}

type Option func(*Responder)

func WithRandom(src random.Source) Option {
	return func(r *Responder) { r.rnd = src }
}

func WithClassifier(c classifier.Classifier) Option {
	return func(r *Responder) { r.topics = c }
}

func WithFallback(f Fallback) Option {
	return func(r *Responder) { r.fallback = f }
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Responder) { r.logger = logger }
}

// Responder evaluates the rule table. It holds no per-conversation state;
// callers pass the dialogue state in and store the returned one.
type Responder struct {
	rnd      random.Source
	topics   classifier.Classifier
	fallback Fallback
	logger   *zap.Logger
	rules    []rule
}

func NewResponder(opts ...Option) *Responder {
	r := &Responder{
		rnd:    random.NewTimeSeeded(),
		topics: classifier.NewKeywordClassifier(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.rules = r.newRules()
	return r
}

// turn is the evaluation context of one request.
type turn struct {
	ctx     context.Context
	input   string
	lower   string
	snap    models.Snapshot
	state   models.DialogueState
	toggle  Toggler
	command *toggleCommand
}

// Respond produces the reply for one user message. The first matching rule
// wins. It never panics: internal faults become a generic error reply.
func (r *Responder) Respond(ctx context.Context, req Request, toggle Toggler) (resp Response) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("Responder failed",
				zap.Any("panic", v),
				zap.String("input", req.Text),
				zap.Stack("stack"))
			resp = Response{
				Reply:  models.Reply{Text: apologyText, Kind: models.KindError},
				Intent: IntentError,
				Next:   models.DialogueIdle,
			}
		}
	}()

	input := strings.TrimSpace(req.Text)
	t := &turn{
		ctx:     ctx,
		input:   input,
		lower:   strings.ToLower(input),
		snap:    req.Snapshot,
		state:   req.State,
		toggle:  toggle,
		command: parseToggleCommand(input),
	}

	for _, rl := range r.rules {
		if !rl.match(t) {
			continue
		}
		resp.Intent = rl.intent
		resp.Reply = rl.reply(t)
		break
	}
	if resp.Reply.Kind == "" {
		resp.Reply.Kind = models.KindText
	}
	if resp.Intent == IntentScheduleOffer {
		resp.Next = models.DialogueAwaitingScheduleConfirmation
	}

	if r.rnd.Float64() > suggestionThreshold {
		resp.Reply.Suggestions = classifier.Suggestions(r.topics.Classify(input))
	}
	return resp
}

// Welcome is the greeting that opens a conversation.
func Welcome() models.Reply {
	return models.Reply{
		Text:        welcomeText,
		Kind:        models.KindText,
		Suggestions: classifier.StarterSuggestions(),
	}
}
