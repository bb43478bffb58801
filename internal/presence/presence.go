// Package presence mirrors rider online/offline state to Redis so the REST
// API and push pipeline can read presence without reaching into this
// process. The in-memory session registry stays authoritative; this mirror
// is best-effort.
package presence

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kylerivers/motorev-sub004/internal/models"
)

const (
	onlineSetKey  = "online_riders"
	statusChannel = "rider_status"

	// Online keys expire so a crashed process does not strand riders
	// online forever; offline keys keep a short tail to avoid flicker.
	onlineTTL  = 5 * time.Minute
	offlineTTL = 1 * time.Minute
)

type Mirror struct {
	client *redis.Client
}

func NewMirror(client *redis.Client) *Mirror {
	return &Mirror{client: client}
}

func presenceKey(userID uint) string {
	return "presence:" + strconv.FormatUint(uint64(userID), 10)
}

func (m *Mirror) SetOnline(ctx context.Context, userID uint) error {
	pipe := m.client.Pipeline()
	pipe.SAdd(ctx, onlineSetKey, userID)
	pipe.Set(ctx, presenceKey(userID), "online", onlineTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	return m.publishStatus(ctx, userID, "online")
}

func (m *Mirror) SetOffline(ctx context.Context, userID uint) error {
	pipe := m.client.Pipeline()
	pipe.SRem(ctx, onlineSetKey, userID)
	pipe.Set(ctx, presenceKey(userID), "offline", offlineTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	return m.publishStatus(ctx, userID, "offline")
}

func (m *Mirror) IsOnline(ctx context.Context, userID uint) (bool, error) {
	return m.client.SIsMember(ctx, onlineSetKey, userID).Result()
}

func (m *Mirror) OnlineCount(ctx context.Context) (int64, error) {
	return m.client.SCard(ctx, onlineSetKey).Result()
}

func (m *Mirror) publishStatus(ctx context.Context, userID uint, status string) error {
	update := models.StatusUpdate{
		UserID:    userID,
		Status:    status,
		Timestamp: time.Now(),
	}
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	return m.client.Publish(ctx, statusChannel, data).Err()
}
