package core

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/valter-silva-au/limbguide/pkg/models"
)

// SendOptions carries the formatting and keyboard of an outbound message.
type SendOptions struct {
	ParseMode      models.ParseMode
	Buttons        [][]models.Button
	DisablePreview bool
}

// Handler processes one inbound event. Gateways call it serially.
type Handler func(ctx context.Context, in models.Inbound)

// Gateway is the messaging transport the bot talks through.
type Gateway interface {
	// Name returns the gateway's unique name.
	Name() string

	SendText(ctx context.Context, chatID int64, text string, opts SendOptions) error
	SendPhoto(ctx context.Context, chatID int64, photo models.Media, caption string, opts SendOptions) error
	SendVideo(ctx context.Context, chatID int64, video models.Media, caption string, opts SendOptions) error

	// AnswerInteraction acknowledges a button press, optionally with a short notice.
	AnswerInteraction(ctx context.Context, interactionID, text string) error

	// RegisterCommands advertises the bot commands to the chat client.
	RegisterCommands(ctx context.Context, commands []models.BotCommand) error

	// Listen delivers inbound events to handler until ctx is cancelled.
	Listen(ctx context.Context, handler Handler) error
}

// GatewayFactory builds a gateway from configuration. Construction is
// deferred because some gateways dial out when created.
type GatewayFactory func(cfg *models.GlobalConfig) (Gateway, error)

// GatewayRegistry maps gateway kinds to their factories.
type GatewayRegistry interface {
	Register(kind models.GatewayKind, factory GatewayFactory) error
	Open(kind models.GatewayKind, cfg *models.GlobalConfig) (Gateway, error)
	Kinds() []models.GatewayKind
}

type gatewayRegistry struct {
	mu        sync.RWMutex
	factories map[models.GatewayKind]GatewayFactory
}

// NewGatewayRegistry creates an empty GatewayRegistry.
func NewGatewayRegistry() GatewayRegistry {
	return &gatewayRegistry{factories: make(map[models.GatewayKind]GatewayFactory)}
}

func (r *gatewayRegistry) Register(kind models.GatewayKind, factory GatewayFactory) error {
	if factory == nil {
		return fmt.Errorf("registering gateway: factory is nil")
	}
	if kind == "" {
		return fmt.Errorf("registering gateway: kind is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return fmt.Errorf("registering gateway: %q already registered", kind)
	}
	r.factories[kind] = factory
	return nil
}

func (r *gatewayRegistry) Open(kind models.GatewayKind, cfg *models.GlobalConfig) (Gateway, error) {
	r.mu.RLock()
	factory, ok := r.factories[kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("opening gateway: %q not registered", kind)
	}
	gw, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening gateway %q: %w", kind, err)
	}
	return gw, nil
}

func (r *gatewayRegistry) Kinds() []models.GatewayKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]models.GatewayKind, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
