package realtime

import (
	"encoding/json"
	"sync"

	"rentdirect/pkg/types"
)

// JoinConversation asks the server to deliver events for conversationID.
func (m *Manager) JoinConversation(conversationID string) {
	m.emitRoom(types.EventJoinConversation, conversationID)
}

// LeaveConversation is the counterpart of JoinConversation. Nothing is
// tracked locally, so leaving a room never joined is harmless.
func (m *Manager) LeaveConversation(conversationID string) {
	m.emitRoom(types.EventLeaveConversation, conversationID)
}

// SendMessage emits a message. Delivery shows up as a message:new echo.
func (m *Manager) SendMessage(conversationID, content string) {
	if !types.IsValidConversationID(conversationID) {
		m.logger.Warn("ignoring message without conversation id")
		return
	}
	m.emit(types.EventMessageSend, types.SendMessagePayload{
		ConversationID: conversationID,
		Content:        content,
	})
}

// MarkAsRead marks the whole conversation as read.
func (m *Manager) MarkAsRead(conversationID string) {
	m.emitRoom(types.EventMessageRead, conversationID)
}

func (m *Manager) StartTyping(conversationID string) {
	m.emitRoom(types.EventTypingStart, conversationID)
}

func (m *Manager) StopTyping(conversationID string) {
	m.emitRoom(types.EventTypingStop, conversationID)
}

func (m *Manager) emitRoom(event, conversationID string) {
	if !types.IsValidConversationID(conversationID) {
		m.logger.Warn("ignoring event without conversation id", "event", event)
		return
	}
	m.emit(event, conversationID)
}

func (m *Manager) emit(event string, payload any) {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return
	}
	if err := conn.Emit(event, payload); err != nil {
		m.logger.Warn("realtime emit failed", "event", event, "error", err)
		return
	}
	m.metrics.EventEmitted(event)
}

// OnNewMessage subscribes to message:new.
func (m *Manager) OnNewMessage(fn func(types.Message)) Unsubscribe {
	return subscribe(m, types.EventMessageNew, fn)
}

// OnMessageRead subscribes to message:read receipts.
func (m *Manager) OnMessageRead(fn func(types.ReadReceipt)) Unsubscribe {
	return subscribe(m, types.EventMessageRead, fn)
}

func (m *Manager) OnTypingStart(fn func(types.TypingEvent)) Unsubscribe {
	return subscribe(m, types.EventTypingStart, fn)
}

func (m *Manager) OnTypingStop(fn func(types.TypingEvent)) Unsubscribe {
	return subscribe(m, types.EventTypingStop, fn)
}

func subscribe[T any](m *Manager, event string, fn func(T)) Unsubscribe {
	noop := func() {}
	if fn == nil {
		return noop
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.disposed {
		return noop
	}
	if m.policy == SubscriptionsDropWhileDisconnected && m.conn == nil {
		m.logger.Debug("subscription dropped, no connection", "event", event)
		return noop
	}

	id, err := m.hub.Subscribe(event, func(data json.RawMessage) {
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			m.logger.Warn("malformed realtime payload", "event", event, "error", err)
			return
		}
		fn(v)
	})
	if err != nil {
		m.logger.Warn("subscribe failed", "event", event, "error", err)
		return noop
	}

	var once sync.Once
	return func() {
		once.Do(func() { m.hub.Unsubscribe(id) })
	}
}
