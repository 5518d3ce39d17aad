package services

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-redis/redis/v8"

	"github.com/gamehive/backend/internal/config"
)

// NotificationService hands notifications to the delivery worker through
// a Redis queue. Every method is fire-and-forget: failures are logged and
// swallowed so notification trouble never fails a primary operation.
type NotificationService struct {
	redis *redis.Client
	queue string
}

type FollowingNotification struct {
	Action   string `json:"action"`
	Target   string `json:"target"`
	TargetID int    `json:"targetId"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	URL      string `json:"url"`
}

type ReactionNotification struct {
	Action   string `json:"action"`
	UserID   int    `json:"userId"`
	Target   string `json:"target"`
	TargetID int    `json:"targetId"`
	Content  string `json:"content"`
	URL      string `json:"url"`
}

type SystemNotification struct {
	UserID  int    `json:"userId"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

func NewNotificationService(redisClient *redis.Client, cfg *config.EconomyConfig) *NotificationService {
	return &NotificationService{
		redis: redisClient,
		queue: cfg.NotificationQueue,
	}
}

func (s *NotificationService) AddFollowingNotification(n FollowingNotification) {
	s.enqueue("following", n)
}

func (s *NotificationService) AddReactionNotification(n ReactionNotification) {
	s.enqueue("reaction", n)
}

func (s *NotificationService) AddSystemNotification(n SystemNotification) {
	s.enqueue("system", n)
}

func (s *NotificationService) enqueue(kind string, payload any) {
	if s.redis == nil {
		log.Printf("[NOTIFY] Redis unavailable, dropping %s notification", kind)
		return
	}

	envelope := map[string]any{"kind": kind, "payload": payload}
	data, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("[NOTIFY] Failed to marshal %s notification: %v", kind, err)
		return
	}

	if err := s.redis.RPush(context.Background(), s.queue, data).Err(); err != nil {
		log.Printf("[NOTIFY] Failed to queue %s notification: %v", kind, err)
	}
}
