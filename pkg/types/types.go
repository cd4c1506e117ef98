package types

import (
	"encoding/json"
	"time"
)

// Role is the account role assigned by the server.
type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleTenant Role = "TENANT"
	RoleAdmin  Role = "ADMIN"
)

// Realtime event names. Outbound events are emitted by the client,
// inbound events are pushed by the server.
const (
	EventJoinConversation  = "join:conversation"
	EventLeaveConversation = "leave:conversation"
	EventMessageSend       = "message:send"
	EventMessageRead       = "message:read"
	EventTypingStart       = "typing:start"
	EventTypingStop        = "typing:stop"
	EventMessageNew        = "message:new"
)

// User is the authenticated identity record returned by the server.
type User struct {
	ID         string `json:"id" yaml:"id"`
	Email      string `json:"email" yaml:"email"`
	FirstName  string `json:"firstName" yaml:"firstName"`
	LastName   string `json:"lastName" yaml:"lastName"`
	Phone      string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Role       Role   `json:"role" yaml:"role"`
	Avatar     string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	IsVerified bool   `json:"isVerified" yaml:"isVerified"`
	Status     string `json:"status,omitempty" yaml:"status,omitempty"`
}

// FullName joins first and last name for display.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// AuthPayload is the data carried by a successful login or register.
type AuthPayload struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// LoginRequest is the body of the login call.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of the register call.
type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
	Role      Role   `json:"role"`
}

// Envelope is the tagged response shape every REST endpoint returns.
// Data is nil when the server omitted it. StatusCode is filled in by the
// client from the HTTP response and is not part of the body.
type Envelope[T any] struct {
	Success    bool   `json:"success"`
	Data       *T     `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
	StatusCode int    `json:"-"`
}

// Pagination is the page metadata attached to list responses.
type Pagination struct {
	Total      int  `json:"total" yaml:"total"`
	Page       int  `json:"page" yaml:"page"`
	Limit      int  `json:"limit" yaml:"limit"`
	TotalPages int  `json:"totalPages" yaml:"totalPages"`
	HasMore    bool `json:"hasMore" yaml:"hasMore"`
}

// Page is the data payload of a paginated list response.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// Message is a chat message delivered over the realtime channel.
type Message struct {
	ID             string    `json:"id" yaml:"id"`
	ConversationID string    `json:"conversationId" yaml:"conversationId"`
	SenderID       string    `json:"senderId" yaml:"senderId"`
	Content        string    `json:"content" yaml:"content"`
	IsRead         bool      `json:"isRead" yaml:"isRead"`
	CreatedAt      time.Time `json:"createdAt" yaml:"createdAt"`
	Sender         *User     `json:"sender,omitempty" yaml:"sender,omitempty"`
}

// ReadReceipt is pushed when a participant marks a conversation as read.
type ReadReceipt struct {
	ConversationID string `json:"conversationId"`
	ReadBy         string `json:"readBy"`
}

// TypingEvent is pushed when a participant starts or stops typing.
type TypingEvent struct {
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

// SendMessagePayload is the body of an outbound message:send event.
type SendMessagePayload struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

// Conversation is a chat thread between a tenant and an owner.
type Conversation struct {
	ID           string          `json:"id" yaml:"id"`
	PropertyID   string          `json:"propertyId,omitempty" yaml:"propertyId,omitempty"`
	Participants []User          `json:"participants,omitempty" yaml:"participants,omitempty"`
	LastMessage  *Message        `json:"lastMessage,omitempty" yaml:"lastMessage,omitempty"`
	UnreadCount  int             `json:"unreadCount" yaml:"unreadCount"`
	UpdatedAt    time.Time       `json:"updatedAt" yaml:"updatedAt"`
	Property     json.RawMessage `json:"property,omitempty" yaml:"-"`
}

// Property is a rental listing.
type Property struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	Type        string    `json:"type,omitempty" yaml:"type,omitempty"`
	Status      string    `json:"status,omitempty" yaml:"status,omitempty"`
	Price       float64   `json:"price" yaml:"price"`
	City        string    `json:"city,omitempty" yaml:"city,omitempty"`
	Address     string    `json:"address,omitempty" yaml:"address,omitempty"`
	Bedrooms    int       `json:"bedrooms,omitempty" yaml:"bedrooms,omitempty"`
	Bathrooms   int       `json:"bathrooms,omitempty" yaml:"bathrooms,omitempty"`
	Images      []string  `json:"images,omitempty" yaml:"images,omitempty"`
	OwnerID     string    `json:"ownerId,omitempty" yaml:"ownerId,omitempty"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
}

// Deal is an agreement between a tenant and an owner on a property.
type Deal struct {
	ID         string    `json:"id" yaml:"id"`
	PropertyID string    `json:"propertyId" yaml:"propertyId"`
	TenantID   string    `json:"tenantId" yaml:"tenantId"`
	OwnerID    string    `json:"ownerId" yaml:"ownerId"`
	Status     string    `json:"status" yaml:"status"`
	Amount     float64   `json:"amount,omitempty" yaml:"amount,omitempty"`
	CreatedAt  time.Time `json:"createdAt" yaml:"createdAt"`
}

// OwnerStats summarizes an owner's listings.
type OwnerStats struct {
	TotalProperties  int     `json:"totalProperties" yaml:"totalProperties"`
	ActiveProperties int     `json:"activeProperties" yaml:"activeProperties"`
	TotalViews       int     `json:"totalViews" yaml:"totalViews"`
	TotalDeals       int     `json:"totalDeals" yaml:"totalDeals"`
	Revenue          float64 `json:"revenue" yaml:"revenue"`
}

// AdminOverview is the platform summary shown to administrators.
type AdminOverview struct {
	TotalUsers      int `json:"totalUsers" yaml:"totalUsers"`
	TotalProperties int `json:"totalProperties" yaml:"totalProperties"`
	TotalDeals      int `json:"totalDeals" yaml:"totalDeals"`
	PendingReviews  int `json:"pendingReviews" yaml:"pendingReviews"`
}
