package checklist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bher20/tariffcompare/internal/logging"
	"github.com/bher20/tariffcompare/internal/metrics"
	"github.com/bher20/tariffcompare/internal/storage"
)

var (
	ErrNameRequired  = errors.New("checklist: name is required")
	ErrLabelRequired = errors.New("checklist: checkbox label is required")
)

// DefaultItems are the signup document checks, in display order.
var DefaultItems = []string{
	"Check Name",
	"Check ABN",
	"Check Phone",
	"Check DOB",
	"Check NMI",
	"Check Supply Address",
}

// Notifier is told when a subject's checklist becomes complete.
type Notifier interface {
	ChecklistComplete(ctx context.Context, name string, at time.Time) error
}

// Toggle is one checkbox change.
type Toggle struct {
	Name      string         `json:"name"`
	Label     string         `json:"checkboxLabel"`
	Checked   bool           `json:"isChecked"`
	Timestamp time.Time      `json:"timestamp"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// ItemState is the replayed state of one checklist item.
type ItemState struct {
	Label     string     `json:"label"`
	Checked   bool       `json:"checked"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// State is the replayed checklist of one subject.
type State struct {
	Name     string      `json:"name"`
	Items    []ItemState `json:"items"`
	Complete bool        `json:"complete"`
}

type Service struct {
	store    storage.Storage
	notifier Notifier
	now      func() time.Time
}

// NewService returns a checklist service writing to st. notifier may be nil.
func NewService(st storage.Storage, notifier Notifier) *Service {
	return &Service{store: st, notifier: notifier, now: time.Now}
}

// Toggle appends t to the audit log and returns the stored event.
func (s *Service) Toggle(ctx context.Context, t Toggle) (storage.AuditEvent, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return storage.AuditEvent{}, ErrNameRequired
	}
	label := strings.TrimSpace(t.Label)
	if label == "" {
		return storage.AuditEvent{}, ErrLabelRequired
	}
	ts := t.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	ev := storage.AuditEvent{
		ID:        uuid.New().String(),
		Name:      name,
		Label:     label,
		Checked:   t.Checked,
		Timestamp: ts.UTC(),
		Meta:      t.Meta,
	}

	var wasComplete bool
	if t.Checked && s.notifier != nil {
		if st, err := s.State(ctx, name); err == nil {
			wasComplete = st.Complete
		}
	}

	if err := s.store.AppendAuditEvent(ctx, ev); err != nil {
		return storage.AuditEvent{}, fmt.Errorf("append audit event: %w", err)
	}
	metrics.ChecklistEventsTotal.WithLabelValues(fmt.Sprintf("%t", ev.Checked)).Inc()
	logging.Info("checklist toggled",
		zap.String("name", ev.Name),
		zap.String("label", ev.Label),
		zap.Bool("checked", ev.Checked),
	)

	if t.Checked && s.notifier != nil && !wasComplete {
		s.notifyIfComplete(ctx, name, ev.Timestamp)
	}
	return ev, nil
}

func (s *Service) notifyIfComplete(ctx context.Context, name string, at time.Time) {
	st, err := s.State(ctx, name)
	if err != nil || !st.Complete {
		return
	}
	if err := s.notifier.ChecklistComplete(ctx, name, at); err != nil {
		logging.Warn("checklist completion notification failed", zap.String("name", name), zap.Error(err))
	}
}

// State replays every event for name in time order. Labels outside the
// default list are appended after it in first-seen order.
func (s *Service) State(ctx context.Context, name string) (State, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return State{}, ErrNameRequired
	}
	events, err := s.store.ListAuditEvents(ctx, storage.AuditFilter{Name: name})
	if err != nil {
		return State{}, fmt.Errorf("list audit events: %w", err)
	}
	// Storage lists newest first; reverse so ties keep insertion order, then
	// replay oldest first.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	idx := make(map[string]int, len(DefaultItems))
	items := make([]ItemState, 0, len(DefaultItems))
	for _, label := range DefaultItems {
		idx[label] = len(items)
		items = append(items, ItemState{Label: label})
	}
	for _, ev := range events {
		i, ok := idx[ev.Label]
		if !ok {
			i = len(items)
			idx[ev.Label] = i
			items = append(items, ItemState{Label: ev.Label})
		}
		at := ev.Timestamp
		items[i].Checked = ev.Checked
		items[i].UpdatedAt = &at
	}

	complete := true
	for _, label := range DefaultItems {
		if !items[idx[label]].Checked {
			complete = false
			break
		}
	}
	return State{Name: name, Items: items, Complete: complete}, nil
}

// Events lists audit events newest first.
func (s *Service) Events(ctx context.Context, filter storage.AuditFilter) ([]storage.AuditEvent, error) {
	events, err := s.store.ListAuditEvents(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	if events == nil {
		events = []storage.AuditEvent{}
	}
	return events, nil
}
