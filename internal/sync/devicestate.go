package sync

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// DeviceState is the client-side persisted identity for one device: the
// anonymous voter id plus, per room, the set of question ids this device has
// voted on and the set it authored. None of it is authoritative (the server
// ledger is the correctness boundary) and all of it is clearable. Storage is
// best effort: a failed save degrades the UX guards, nothing else.
type DeviceState struct {
	mu   sync.Mutex
	path string

	VoterID string                     `json:"voter_id"`
	Voted   map[string]map[string]bool `json:"voted"` // room id -> question id
	Mine    map[string]map[string]bool `json:"mine"`  // room id -> question id
}

// LoadDeviceState reads the state file under the user config dir, creating a
// fresh identity (new voter id) if none exists or the file is unreadable.
func LoadDeviceState(appName string) *DeviceState {
	st := &DeviceState{
		Voted: make(map[string]map[string]bool),
		Mine:  make(map[string]map[string]bool),
	}
	if dir, err := os.UserConfigDir(); err == nil {
		st.path = filepath.Join(dir, appName, "device.json")
		if data, err := os.ReadFile(st.path); err == nil {
			_ = json.Unmarshal(data, st)
		}
	}
	if st.Voted == nil {
		st.Voted = make(map[string]map[string]bool)
	}
	if st.Mine == nil {
		st.Mine = make(map[string]map[string]bool)
	}
	if st.VoterID == "" {
		st.VoterID = uuid.NewString()
		st.save()
	}
	return st
}

// HasVoted reports whether this device already voted on the question.
func (s *DeviceState) HasVoted(roomID, questionID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Voted[roomID.String()][questionID.String()]
}

// MarkVoted records a confirmed vote.
func (s *DeviceState) MarkVoted(roomID, questionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Voted[roomID.String()] == nil {
		s.Voted[roomID.String()] = make(map[string]bool)
	}
	s.Voted[roomID.String()][questionID.String()] = true
	s.save()
}

// IsMine reports whether this device authored the question.
func (s *DeviceState) IsMine(roomID, questionID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Mine[roomID.String()][questionID.String()]
}

// MarkMine records a question this device submitted.
func (s *DeviceState) MarkMine(roomID, questionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Mine[roomID.String()] == nil {
		s.Mine[roomID.String()] = make(map[string]bool)
	}
	s.Mine[roomID.String()][questionID.String()] = true
	s.save()
}

func (s *DeviceState) save() {
	if s.path == "" {
		return
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return
	}
	_ = os.WriteFile(s.path, data, 0o600)
}
