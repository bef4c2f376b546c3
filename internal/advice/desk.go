// Package advice forwards free-text questions about the truck to a hosted language model.
package advice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/platform43/firerig/pkg/core"
)

var (
	ErrBusy          = errors.New("advice request already in flight")
	ErrEmptyQuestion = errors.New("question is empty")
)

const (
	FallbackReply  = "Technical difficulty connecting to the Fire Engine Database. Please try again."
	EmptyReply     = "I'm sorry, I couldn't process that advice right now."
	WelcomeMessage = "Welcome, Captain. I'm your Fire Engineering Consultant. Ask me anything about ladder configurations, hydraulic systems, or firehouse history for your yellow aerial unit."
)

// Generator produces a model reply for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Message is one entry of the chat transcript.
type Message struct {
	Role string    `json:"role" msgpack:"role"`
	Text string    `json:"text" msgpack:"text"`
	Time time.Time `json:"time" msgpack:"time"`
}

// Reply is the outcome of one question.
type Reply struct {
	Question string        `json:"question" msgpack:"question"`
	Text     string        `json:"reply" msgpack:"reply"`
	Fallback bool          `json:"fallback" msgpack:"fallback"`
	Duration time.Duration `json:"duration" msgpack:"duration"`
}

// Desk serializes a session's questions: at most one call is outstanding at a time.
type Desk struct {
	gen    Generator
	logger *slog.Logger

	busy atomic.Bool

	mu         sync.Mutex
	transcript []Message
}

// NewDesk creates a desk whose transcript starts with the welcome message.
func NewDesk(gen Generator, logger *slog.Logger) *Desk {
	if logger == nil {
		logger = slog.Default()
	}
	return &Desk{
		gen:        gen,
		logger:     logger,
		transcript: []Message{{Role: "model", Text: WelcomeMessage, Time: time.Now()}},
	}
}

// Busy reports whether a call is in flight.
func (d *Desk) Busy() bool {
	return d.busy.Load()
}

// Advise asks the model about question given the current configuration.
// Model failures never surface as errors; they are logged and answered with FallbackReply.
func (d *Desk) Advise(ctx context.Context, question string, snapshot core.Configuration) (Reply, error) {
	call, err := d.Reserve(question)
	if err != nil {
		return Reply{}, err
	}
	return call.Run(ctx, snapshot), nil
}

// Reserve claims the desk for question without calling the model yet, so callers can
// refuse a second question synchronously and run the call elsewhere. The returned Call
// must be run exactly once.
func (d *Desk) Reserve(question string) (*Call, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}
	if !d.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	d.append("user", question)
	return &Call{desk: d, question: question}, nil
}

// Call is a reserved question. Running it frees the desk.
type Call struct {
	desk     *Desk
	question string
	once     sync.Once
	reply    Reply
}

// Question is the trimmed question text.
func (c *Call) Question() string {
	return c.question
}

// Run calls the model and records the reply. Later calls return the first reply.
func (c *Call) Run(ctx context.Context, snapshot core.Configuration) Reply {
	c.once.Do(func() {
		d := c.desk
		defer d.busy.Store(false)

		start := time.Now()
		reply := Reply{Question: c.question}

		text, err := d.generate(ctx, c.question, snapshot)
		switch {
		case err != nil:
			d.logger.Warn("advice request failed", "error", err)
			reply.Text = FallbackReply
			reply.Fallback = true
		case strings.TrimSpace(text) == "":
			d.logger.Warn("advice reply was empty")
			reply.Text = EmptyReply
			reply.Fallback = true
		default:
			reply.Text = text
		}
		reply.Duration = time.Since(start)

		d.append("model", reply.Text)
		c.reply = reply
	})
	return c.reply
}

func (d *Desk) generate(ctx context.Context, question string, snapshot core.Configuration) (string, error) {
	prompt, err := BuildPrompt(question, snapshot)
	if err != nil {
		return "", err
	}
	return d.gen.Generate(ctx, prompt)
}

// Transcript returns a copy of the chat so far.
func (d *Desk) Transcript() []Message {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Message, len(d.transcript))
	copy(out, d.transcript)
	return out
}

func (d *Desk) append(role, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transcript = append(d.transcript, Message{Role: role, Text: text, Time: time.Now()})
}

// BuildPrompt frames the question for the model together with the current configuration.
func BuildPrompt(question string, snapshot core.Configuration) (string, error) {
	specs, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("failed to encode configuration: %w", err)
	}
	return fmt.Sprintf(`You are a world-class fire engine design expert.
The user is currently configuring a 3D model of a yellow ladder truck.
Current Specs: %s.

User Question: %s

Provide professional, technical, and encouraging advice about fire engine mechanics, history, or 3D modeling tips. Keep it concise.`, specs, question), nil
}
