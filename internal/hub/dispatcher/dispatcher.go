// Package dispatcher owns the agent registry. It routes a request to the agent
// registered for its type, supplies the session context and records the exchange
// in conversation memory.
package dispatcher

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fialabdata/agenthub/internal/common/uuid"
	"github.com/fialabdata/agenthub/internal/hub/agent"
	"github.com/fialabdata/agenthub/internal/hub/memory"
	"github.com/fialabdata/agenthub/internal/hub/metrics"
)

// CredentialSource answers whether a credential key is configured.
type CredentialSource interface {
	Has(key string) bool
}

// AgentInfo is a descriptor with its availability, computed at registration.
type AgentInfo struct {
	agent.Descriptor
	Available bool     `json:"available"`
	Missing   []string `json:"-"`
}

type entry struct {
	info  AgentInfo
	agent agent.Agent
}

// Dispatcher routes requests to registered agents. Registration happens at
// startup; afterwards the registry is only read.
type Dispatcher struct {
	store *memory.Store
	creds CredentialSource

	mu      sync.RWMutex
	entries map[agent.Type]*entry
	order   []agent.Type
}

// New creates a dispatcher over the given memory store and credentials.
func New(store *memory.Store, creds CredentialSource) *Dispatcher {
	return &Dispatcher{
		store:   store,
		creds:   creds,
		entries: make(map[agent.Type]*entry),
	}
}

// Memory returns the conversation store used by the dispatcher.
func (d *Dispatcher) Memory() *memory.Store {
	return d.store
}

// Register adds an agent under desc.Type. Availability is decided here, once,
// from the credentials the descriptor requires.
func (d *Dispatcher) Register(desc agent.Descriptor, a agent.Agent) error {
	if err := desc.Validate(); err != nil {
		return err
	}
	if a == nil {
		return agent.ErrInvalidInput.New(fmt.Sprintf("agent '%s' has no implementation", desc.Type))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[desc.Type]; ok {
		return agent.ErrDuplicateAgent.New(fmt.Sprintf("agent type '%s' already registered", desc.Type))
	}

	var missing []string
	for _, key := range desc.RequiredCredentials {
		if d.creds == nil || !d.creds.Has(key) {
			missing = append(missing, key)
		}
	}
	d.entries[desc.Type] = &entry{
		info: AgentInfo{
			Descriptor: desc,
			Available:  len(missing) == 0,
			Missing:    missing,
		},
		agent: a,
	}
	d.order = append(d.order, desc.Type)

	log.Info().
		Str("agent_type", string(desc.Type)).
		Bool("available", len(missing) == 0).
		Strs("missing_credentials", missing).
		Msg("agent registered")
	return nil
}

// ListAgents returns every registered agent in registration order.
func (d *Dispatcher) ListAgents() []AgentInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]AgentInfo, 0, len(d.order))
	for _, t := range d.order {
		out = append(out, d.entries[t].info)
	}
	return out
}

func (d *Dispatcher) entry(t agent.Type) *entry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.entries[t]
}

// Lookup returns the agent registered for t, failing with ErrUnknownAgent or
// ErrAgentUnavailable.
func (d *Dispatcher) Lookup(t agent.Type) (agent.Agent, error) {
	e := d.entry(t)
	if e == nil {
		return nil, unknownAgent(t)
	}
	if !e.info.Available {
		return nil, unavailableAgent(e.info)
	}
	return e.agent, nil
}

func unknownAgent(t agent.Type) error {
	return agent.ErrUnknownAgent.New(fmt.Sprintf("agent type '%s' is not registered", t))
}

func unavailableAgent(info AgentInfo) error {
	return agent.ErrAgentUnavailable.New(fmt.Sprintf("agent '%s' is not available: missing %s",
		info.Type, strings.Join(info.Missing, ", ")))
}

// Dispatch runs message through the agent registered for agentType. It never
// fails: every problem is reported as an error Result. A successful exchange is
// appended to the session's memory for that agent type as a user turn followed
// by an assistant turn. An empty sessionID starts a new session; the session is
// only stored once an exchange succeeds.
func (d *Dispatcher) Dispatch(ctx context.Context, agentType agent.Type, message, sessionID string, opts agent.Options) agent.Result {
	start := time.Now()
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	logger := log.Ctx(ctx).With().
		Str("agent_type", string(agentType)).
		Str("session_id", sessionID).
		Logger()

	res := d.dispatch(logger.WithContext(ctx), agentType, message, sessionID, opts)
	res.AgentType = agentType
	res.SessionID = sessionID

	metrics.ObserveDispatch(string(agentType), string(res.Status), time.Since(start))
	ev := logger.Info()
	if !res.IsSuccess() {
		ev = logger.Warn().Str("error_code", res.ErrorCode).Str("error", res.Error)
	}
	ev.Str("status", string(res.Status)).
		Str("duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds())).
		Msg("request dispatched")
	return res
}

func (d *Dispatcher) dispatch(ctx context.Context, t agent.Type, message, sessionID string, opts agent.Options) agent.Result {
	e := d.entry(t)
	if e == nil {
		return agent.Failure(t, unknownAgent(t))
	}
	if !e.info.Available {
		return agent.Failure(t, unavailableAgent(e.info))
	}
	if err := agent.ValidateMessage(message); err != nil {
		return agent.Failure(t, err)
	}
	if opts == nil {
		opts = agent.Options{}
	}

	req := agent.Request{
		Message:        message,
		History:        d.store.Context(sessionID, string(t)),
		Options:        opts,
		SessionID:      sessionID,
		ConversationID: fmt.Sprintf("%s.%d", sessionID, d.store.Epoch(sessionID, string(t))),
	}
	res := invoke(ctx, e.agent, t, req)
	if res.IsSuccess() {
		d.store.Append(sessionID, string(t),
			memory.UserTurn(message),
			memory.AssistantTurn(res.Response, res.Payload),
		)
	}
	return res
}

// invoke calls the agent and turns a panic into an error result.
func invoke(ctx context.Context, a agent.Agent, t agent.Type, req agent.Request) (res agent.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Ctx(ctx).Error().
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack_trace", string(debug.Stack())).
				Msg("agent panicked")
			res = agent.Failure(t, agent.ErrAgent.New("internal agent failure"))
		}
	}()
	return a.Handle(ctx, req)
}
