// Package bot implements the conversation state machine: it interprets a
// normalized user utterance against the per-user session, transitions the
// session, drives the cart and order engine, and produces the outbound
// replies.
package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"freres-bot/internal/models"
	"freres-bot/internal/session"
	"freres-bot/internal/util"

	"go.uber.org/zap"
)

// Engine routes inbound messages. One Engine serves all users; per-user
// serialization lives in the session store.
type Engine struct {
	sessions session.Store
	catalog  Catalog
	profiles ProfileStore
	orders   OrderEngine
	logger   *zap.Logger
}

// NewEngine creates a conversation engine.
func NewEngine(sessions session.Store, catalog Catalog, profiles ProfileStore, orders OrderEngine) *Engine {
	return &Engine{
		sessions: sessions,
		catalog:  catalog,
		profiles: profiles,
		orders:   orders,
		logger:   util.GetLogger(),
	}
}

// HandleMessage processes one inbound message and returns the replies to
// deliver. A backing-store failure discards the session mutation and yields
// a generic technical-difficulty reply, so a retry starts from clean state.
func (e *Engine) HandleMessage(ctx context.Context, userID, rawText string) []models.Reply {
	ctx, span := util.StartSpan(ctx, "Engine.HandleMessage")
	defer span.End()

	util.MessagesReceivedTotal.Inc()
	start := time.Now()
	defer func() {
		util.SessionUpdateLatency.Observe(time.Since(start).Seconds())
	}()

	var replies []models.Reply
	err := e.sessions.Update(ctx, userID, func(s *models.Session) error {
		var err error
		replies, err = e.route(ctx, s, rawText)
		return err
	})
	if err != nil {
		e.logger.Error("Message handling failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return []models.Reply{models.TextReply(replyStoreTrouble)}
	}

	return replies
}

// route applies the priority cascade: universal finalize override, global
// informational intents, order lookup, flow entry commands, state-scoped
// handling, fallback. First match wins.
func (e *Engine) route(ctx context.Context, s *models.Session, rawText string) ([]models.Reply, error) {
	msg := Normalize(rawText)
	raw := strings.TrimSpace(rawText)
	s.LastMessage = msg

	// 1. Universal finalize override, only in catalog/cart states.
	if finalizeStates[s.State] && containsAny(msg, finalizeWords) {
		return e.finalize(ctx, s)
	}

	// 2. Global informational intents, independent of state.
	if containsAny(msg, greetingWords) {
		return textReplies(replyGreeting), nil
	}
	if containsAny(msg, contactWords) {
		return textReplies(replyContact), nil
	}
	if containsAny(msg, hoursWords) {
		return textReplies(replyHours), nil
	}

	// 3. Order lookup by id, read-only.
	if hasAnyPrefix(msg, lookupPrefixes) {
		return e.lookupOrder(ctx, msg, raw)
	}

	// 4. Flow entry commands restart their flow from any state.
	if equalsAny(msg, registerCommands) {
		*s = models.Session{UserID: s.UserID, State: models.StateRegistrationName, LastMessage: msg}
		return textReplies(replyAskName), nil
	}
	if strings.HasPrefix(msg, loginPrefix) || msg == loginCommand {
		*s = models.Session{UserID: s.UserID, State: models.StateLoginPhone, LastMessage: msg}
		return textReplies(replyAskLoginPhone), nil
	}

	// 5. State-scoped flows.
	switch s.State {
	case models.StateRegistrationName:
		s.Name = raw
		s.State = models.StateRegistrationPhone
		return textReplies(replyAskPhone), nil

	case models.StateRegistrationPhone:
		if !isValidPhone(msg) {
			return textReplies(replyInvalidPhone), nil
		}
		s.Phone = msg
		s.State = models.StateRegistrationAddress
		return textReplies(replyAskAddress), nil

	case models.StateRegistrationAddress:
		return e.completeRegistration(ctx, s, raw)

	case models.StateLoginPhone:
		return e.login(ctx, s, msg)

	case models.StateLoggedIn:
		if containsAny(msg, catalogWords) {
			listing, err := e.buildCategories(ctx, s)
			if err != nil {
				return nil, err
			}
			s.State = models.StateChoosingCategory
			return textReplies(listing), nil
		}
		// A category listing was just shown after registration/login; accept
		// a selection directly.
		if len(s.PendingCategories) > 0 {
			if cat := resolveCategory(msg, s.PendingCategories); cat != "" {
				return e.enterCategory(ctx, s, cat)
			}
		}

	case models.StateChoosingCategory:
		cat := resolveCategory(msg, s.PendingCategories)
		if cat == "" {
			return textReplies(replyInvalidCategory), nil
		}
		return e.enterCategory(ctx, s, cat)

	case models.StateBrowsingProduct:
		return e.handleBrowsing(ctx, s, msg)

	case models.StateChoosingDelivery:
		return e.handleDelivery(ctx, s, msg)
	}

	// 6. Fallback menu.
	return textReplies(replyFallback), nil
}

// finalize converts the cart into an order and asks the delivery question.
func (e *Engine) finalize(ctx context.Context, s *models.Session) ([]models.Reply, error) {
	orderID, err := e.orders.Finalize(ctx, s)
	if errors.Is(err, models.ErrEmptyCart) {
		return textReplies(replyEmptyCart), nil
	}
	if err != nil {
		return nil, err
	}

	s.State = models.StateChoosingDelivery
	return textReplies(replyOrderRegistered(orderID)), nil
}

// lookupOrder renders an order snapshot. The id token is taken from the raw
// text because normalization strips the dash inside generated order ids.
func (e *Engine) lookupOrder(ctx context.Context, msg, raw string) ([]models.Reply, error) {
	var prefix string
	for _, p := range lookupPrefixes {
		if strings.HasPrefix(msg, p) {
			prefix = p
			break
		}
	}

	fields := strings.Fields(raw)
	if len(fields) < len(strings.Fields(prefix))+1 {
		return textReplies(replyLookupUsage), nil
	}

	orderID := strings.Trim(fields[len(fields)-1], ".,!?¿¡")

	order, err := e.orders.Lookup(ctx, orderID)
	if errors.Is(err, models.ErrOrderNotFound) {
		return textReplies(replyOrderNotFound), nil
	}
	if err != nil {
		return nil, err
	}

	return textReplies(replyOrderDetail(order)), nil
}

func (e *Engine) completeRegistration(ctx context.Context, s *models.Session, address string) ([]models.Reply, error) {
	s.Address = address

	profile := &models.Profile{
		Phone:   s.Phone,
		Name:    s.Name,
		Address: s.Address,
	}
	if err := e.profiles.UpsertProfile(ctx, profile); err != nil {
		return nil, err
	}

	e.logger.Info("Customer registered", zap.String("phone", s.Phone))

	s.State = models.StateLoggedIn
	listing, err := e.buildCategories(ctx, s)
	if err != nil {
		return nil, err
	}

	return textReplies(replyRegistered(s.Name) + "\n\n" + listing), nil
}

func (e *Engine) login(ctx context.Context, s *models.Session, phone string) ([]models.Reply, error) {
	profile, err := e.profiles.GetProfile(ctx, phone)
	if errors.Is(err, models.ErrProfileNotFound) {
		s.State = models.StateIdle
		return textReplies(replyNotRegistered), nil
	}
	if err != nil {
		return nil, err
	}

	s.Name = profile.Name
	s.Phone = profile.Phone
	s.Address = profile.Address
	s.State = models.StateLoggedIn

	listing, err := e.buildCategories(ctx, s)
	if err != nil {
		return nil, err
	}

	return textReplies(replyWelcomeBack(s.Name) + "\n\n" + listing), nil
}

func (e *Engine) handleDelivery(ctx context.Context, s *models.Session, msg string) ([]models.Reply, error) {
	orderID := s.LastOrderID
	if orderID == "" {
		s.State = models.StateLoggedIn
		return textReplies(replyFallback), nil
	}

	switch {
	case containsAny(msg, homeDeliveryWords):
		if err := e.orders.SetDeliveryMethod(ctx, orderID, models.DeliveryHome, s.Address); err != nil {
			return nil, err
		}
		s.State = models.StateLoggedIn
		return textReplies(replyHomeDelivery(orderID)), nil

	case containsAny(msg, pickupWords):
		if err := e.orders.SetDeliveryMethod(ctx, orderID, models.DeliveryPickup, ""); err != nil {
			return nil, err
		}
		s.State = models.StateLoggedIn
		return textReplies(replyPickup(orderID)), nil
	}

	return textReplies(replyInvalidDelivery), nil
}

func textReplies(texts ...string) []models.Reply {
	out := make([]models.Reply, 0, len(texts))
	for _, t := range texts {
		out = append(out, models.TextReply(t))
	}
	return out
}
