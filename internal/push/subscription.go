// Package push holds the server-side half of reminders: the stored
// push subscriptions and the dispatch decision that runs over all of
// them, independent of any open client.
package push

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/ourday-app/ourday/internal/model"
	"github.com/ourday-app/ourday/internal/normalize"
	"github.com/ourday-app/ourday/internal/store"
)

var alertKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}:`)

// Keys are the client's web push crypto material.
type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// Subscription is one stored push target. TaskAlerts tracks alerts
// already sent, keyed date:taskId:reminderTime; LastMorningKey is the
// date:time compound for the morning reminder.
type Subscription struct {
	ID                  string            `json:"id"`
	Endpoint            string            `json:"endpoint"`
	Keys                Keys              `json:"keys"`
	UserID              model.UserID      `json:"userId"`
	MorningReminderTime string            `json:"morningReminderTime"`
	TimeZone            string            `json:"timeZone"`
	CreatedAt           string            `json:"createdAt"`
	UpdatedAt           string            `json:"updatedAt"`
	LastMorningKey      string            `json:"lastMorningKey,omitempty"`
	TaskAlerts          map[string]string `json:"taskAlerts"`

	expired bool
}

// Summary is the serialized view returned to subscribers.
type Summary struct {
	UserID              model.UserID `json:"userId"`
	MorningReminderTime string       `json:"morningReminderTime"`
	TimeZone            string       `json:"timeZone"`
	UpdatedAt           string       `json:"updatedAt"`
}

// Summary returns the subscriber-facing view of s.
func (s *Subscription) Summary() Summary {
	return Summary{
		UserID:              s.UserID,
		MorningReminderTime: s.MorningReminderTime,
		TimeZone:            s.TimeZone,
		UpdatedAt:           s.UpdatedAt,
	}
}

// Fingerprint is the stable id for an endpoint URL.
func Fingerprint(endpoint string) string {
	sum := sha1.Sum([]byte(endpoint))
	return hex.EncodeToString(sum[:])
}

// NormalizeEndpoint extracts endpoint and keys from a decoded
// subscription payload, rejecting anything incomplete.
func NormalizeEndpoint(raw any) (string, Keys, bool) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return "", Keys{}, false
	}

	endpoint, _ := obj["endpoint"].(string)
	keysObj, _ := obj["keys"].(map[string]any)
	p256dh, _ := keysObj["p256dh"].(string)
	auth, _ := keysObj["auth"].(string)

	if endpoint == "" || p256dh == "" || auth == "" {
		return "", Keys{}, false
	}
	return endpoint, Keys{P256dh: p256dh, Auth: auth}, true
}

// NormalizeUserID coerces to a known identity, defaulting to me.
func NormalizeUserID(raw any) model.UserID {
	s, _ := raw.(string)
	if id := model.UserID(s); id.Valid() {
		return id
	}
	return model.UserMe
}

// NormalizeTimeZone validates an IANA zone name, falling back to UTC.
func NormalizeTimeZone(raw any) string {
	s, _ := raw.(string)
	if s == "" {
		return "UTC"
	}
	if _, err := time.LoadLocation(s); err != nil {
		return "UTC"
	}
	return s
}

// NormalizeTaskAlerts keeps only well-keyed alert entries.
func NormalizeTaskAlerts(raw any) map[string]string {
	normalized := map[string]string{}

	obj, ok := raw.(map[string]any)
	if !ok {
		return normalized
	}

	for key, value := range obj {
		stamp, ok := value.(string)
		if ok && alertKeyPattern.MatchString(key) {
			normalized[key] = stamp
		}
	}
	return normalized
}

// NormalizeStored coerces a stored entry, or nil when unsalvageable.
func NormalizeStored(raw any) *Subscription {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil
	}

	endpoint, keys, ok := NormalizeEndpoint(raw)
	if !ok {
		return nil
	}

	nowIso := model.Timestamp(time.Now())
	sub := &Subscription{
		Endpoint:            endpoint,
		Keys:                keys,
		UserID:              NormalizeUserID(obj["userId"]),
		MorningReminderTime: model.DefaultMorningReminderTime,
		TimeZone:            NormalizeTimeZone(obj["timeZone"]),
		CreatedAt:           nowIso,
		UpdatedAt:           nowIso,
		TaskAlerts:          NormalizeTaskAlerts(obj["taskAlerts"]),
	}

	if id, _ := obj["id"].(string); id != "" {
		sub.ID = id
	} else {
		sub.ID = Fingerprint(endpoint)
	}
	if t := normalize.ReminderTime(obj["morningReminderTime"]); t != "" {
		sub.MorningReminderTime = t
	}
	if createdAt, _ := obj["createdAt"].(string); createdAt != "" {
		sub.CreatedAt = createdAt
	}
	if updatedAt, _ := obj["updatedAt"].(string); updatedAt != "" {
		sub.UpdatedAt = updatedAt
	}
	sub.LastMorningKey, _ = obj["lastMorningKey"].(string)

	return sub
}

// UpsertParams describe one subscribe call.
type UpsertParams struct {
	Subscription        any
	UserID              any
	MorningReminderTime any
	TimeZone            any
}

// Upsert inserts or updates by endpoint and returns the list and the
// affected entry; a nil entry means the payload was invalid.
func Upsert(list []*Subscription, params UpsertParams, now time.Time) ([]*Subscription, *Subscription) {
	endpoint, keys, ok := NormalizeEndpoint(params.Subscription)
	if !ok {
		return list, nil
	}

	nowIso := model.Timestamp(now)
	userID := NormalizeUserID(params.UserID)
	morningTime := normalize.ReminderTime(params.MorningReminderTime)
	if morningTime == "" {
		morningTime = model.DefaultMorningReminderTime
	}
	timeZone := NormalizeTimeZone(params.TimeZone)

	for _, existing := range list {
		if existing.Endpoint == endpoint {
			existing.Keys = keys
			existing.UserID = userID
			existing.MorningReminderTime = morningTime
			existing.TimeZone = timeZone
			existing.UpdatedAt = nowIso
			return list, existing
		}
	}

	created := &Subscription{
		ID:                  Fingerprint(endpoint),
		Endpoint:            endpoint,
		Keys:                keys,
		UserID:              userID,
		MorningReminderTime: morningTime,
		TimeZone:            timeZone,
		CreatedAt:           nowIso,
		UpdatedAt:           nowIso,
		TaskAlerts:          map[string]string{},
	}
	return append(list, created), created
}

// PruneTaskAlerts drops alert history older than two days, bounding
// growth of the subscriptions document.
func PruneTaskAlerts(alerts map[string]string, dateKey string) map[string]string {
	pruned := map[string]string{}
	floor := model.ShiftDateKey(dateKey, -2)
	for key, stamp := range alerts {
		if len(key) >= 10 && key[:10] >= floor {
			pruned[key] = stamp
		}
	}
	return pruned
}

// Registry loads and saves the subscriptions document.
type Registry struct {
	store store.Store
}

// NewRegistry wraps the blob store.
func NewRegistry(s store.Store) *Registry {
	return &Registry{store: s}
}

// Load returns the normalized subscription list; entries that fail
// normalization are dropped.
func (r *Registry) Load(ctx context.Context) ([]*Subscription, error) {
	data, err := r.store.Get(ctx, store.SubscriptionsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil
	}
	entries, ok := raw.([]any)
	if !ok {
		return nil, nil
	}

	var list []*Subscription
	for _, entry := range entries {
		if sub := NormalizeStored(entry); sub != nil {
			list = append(list, sub)
		}
	}
	return list, nil
}

// Save stores the full subscription list wholesale.
func (r *Registry) Save(ctx context.Context, list []*Subscription) error {
	if list == nil {
		list = []*Subscription{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("failed to marshal subscriptions: %w", err)
	}
	if err := r.store.Set(ctx, store.SubscriptionsKey, data); err != nil {
		return fmt.Errorf("failed to save subscriptions: %w", err)
	}
	return nil
}
