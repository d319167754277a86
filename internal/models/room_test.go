package models

import (
	"errors"
	"testing"
	"time"
)

func TestRoomLifecycleGuards(t *testing.T) {
	tests := []struct {
		name   string
		status RoomStatus
		check  func(r *Room) error
		want   error
	}{
		{"start from waiting", StatusWaiting, (*Room).CanStart, nil},
		{"start from live", StatusLive, (*Room).CanStart, ErrInvalidTransition},
		{"start from ended", StatusEnded, (*Room).CanStart, ErrInvalidTransition},
		{"end from waiting", StatusWaiting, (*Room).CanEnd, nil},
		{"end from live", StatusLive, (*Room).CanEnd, nil},
		{"end from ended", StatusEnded, (*Room).CanEnd, ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Room{Status: tt.status}
			if err := tt.check(r); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRoomCanExtend(t *testing.T) {
	tests := []struct {
		name    string
		status  RoomStatus
		minutes int
		want    error
	}{
		{"live positive", StatusLive, 30, nil},
		{"live zero", StatusLive, 0, ErrValidation},
		{"live negative", StatusLive, -10, ErrValidation},
		{"waiting", StatusWaiting, 30, ErrInvalidTransition},
		{"ended", StatusEnded, 30, ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Room{Status: tt.status}
			if err := r.CanExtend(tt.minutes); !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRoomExpiryOrthogonalToStatus(t *testing.T) {
	now := time.Now()
	r := &Room{Status: StatusLive, ExpiresAt: now.Add(-time.Minute)}

	if !r.Expired(now) {
		t.Error("room past expires_at should be expired")
	}
	if r.Open(now) {
		t.Error("expired room must not be open even while live")
	}
	if !r.Expired(r.ExpiresAt) {
		t.Error("expiry boundary is inclusive: now == expires_at is expired")
	}

	r.ExpiresAt = now.Add(time.Hour)
	if !r.Open(now) {
		t.Error("live unexpired room should be open")
	}
	r.Status = StatusEnded
	if r.Open(now) {
		t.Error("ended room must not be open even before expires_at")
	}
	r.Status = StatusWaiting
	if !r.Open(now) {
		t.Error("waiting unexpired room should be open for queue-building")
	}
}
