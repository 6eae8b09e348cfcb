package handlers

import "sync"

// Stage identifies which screen the user is on; it routes free-form text.
type Stage string

const (
	StageMenu        Stage = "menu"
	StageChat        Stage = "chat"
	StageCountryInfo Stage = "country_info"
)

// ChatMode selects whether chat answers use the stored profile.
type ChatMode string

const (
	ChatModeFree    ChatMode = "free"
	ChatModeProfile ChatMode = "profile"
)

type session struct {
	stage       Stage
	mode        ChatMode
	wizardField string
}

// Sessions holds in-memory per-user UI state: current stage, chat mode, and
// the active profile-wizard question. Only the handler currently processing
// a user's update mutates that user's entry.
type Sessions struct {
	mu       sync.Mutex
	sessions map[int64]*session
}

// NewSessions creates an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[int64]*session)}
}

func (s *Sessions) get(userID int64) *session {
	if entry, ok := s.sessions[userID]; ok {
		return entry
	}
	entry := &session{stage: StageMenu, mode: ChatModeProfile}
	s.sessions[userID] = entry
	return entry
}

// Stage returns the user's current stage.
func (s *Sessions) Stage(userID int64) Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(userID).stage
}

// SetStage moves the user to a stage.
func (s *Sessions) SetStage(userID int64, stage Stage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(userID).stage = stage
}

// Mode returns the user's chat mode.
func (s *Sessions) Mode(userID int64) ChatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(userID).mode
}

// SetMode switches the user's chat mode.
func (s *Sessions) SetMode(userID int64, mode ChatMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(userID).mode = mode
}

// WizardField returns the profile field the user is currently answering,
// or "" when the wizard is inactive.
func (s *Sessions) WizardField(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(userID).wizardField
}

// SetWizardField sets the active profile-wizard question; "" ends the wizard.
func (s *Sessions) SetWizardField(userID int64, field string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.get(userID).wizardField = field
}
