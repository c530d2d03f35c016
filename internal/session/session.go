package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SubjectInfo is the verified demographic record held for the session.
// Set once after identity verification, immutable for the session.
type SubjectInfo struct {
	Name   string `json:"name"`
	DOB    string `json:"dob"`
	Gender string `json:"gender"`
	Region string `json:"region"`
	Phone  string `json:"phone"`
}

// Session is the in-progress test attempt: selected test type and kit,
// the verified subject, captured image buffers and the retake budget.
// Sessions are owned by the Manager and referenced by an opaque cookie ID.
type Session struct {
	ID string

	mu            sync.Mutex
	subject       *SubjectInfo
	testType      string
	kitID         int
	frontImage    []byte
	backImage     []byte
	governor      *Governor
	attempt       int
	ledgerWritten bool
}

func newSession(retakeBudget int) *Session {
	return &Session{
		ID:       uuid.NewString(),
		governor: NewGovernor(retakeBudget),
	}
}

func (s *Session) SetUserInfo(subject SubjectInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subject = &subject
}

func (s *Session) Subject() (SubjectInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subject == nil {
		return SubjectInfo{}, false
	}
	return *s.subject, true
}

func (s *Session) SetTestType(testType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.testType = testType
}

func (s *Session) TestType() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.testType
}

func (s *Session) SetKit(kitID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kitID = kitID
}

func (s *Session) Kit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kitID
}

func (s *Session) SetFrontImage(buf []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frontImage = buf
}

func (s *Session) SetBackImage(buf []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backImage = buf
}

func (s *Session) Images() (front, back []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frontImage, s.backImage
}

// CanRetake reports whether the retake budget permits another attempt.
func (s *Session) CanRetake() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.governor.CanRetake()
}

// RetakesRemaining returns the unused retake budget.
func (s *Session) RetakesRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.governor.Remaining()
}

// ConsumeRetake spends one retake and discards the prior attempt's capture
// state. Subject, test type and kit selection survive a retake.
func (s *Session) ConsumeRetake() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.governor.ConsumeRetake(); err != nil {
		return err
	}
	s.frontImage = nil
	s.backImage = nil
	s.ledgerWritten = false
	s.attempt++
	return nil
}

// Attempt is the current attempt stamp. An interpretation completing with a
// stale stamp is discarded (last-state-wins; there is no in-flight
// cancellation).
func (s *Session) Attempt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt
}

// MarkLedgerWritten records that this attempt's outcome was persisted so a
// second write for the same logical attempt is refused.
func (s *Session) MarkLedgerWritten(attempt int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if attempt != s.attempt || s.ledgerWritten {
		return false
	}
	s.ledgerWritten = true
	return true
}

func (s *Session) LedgerWritten() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledgerWritten
}

// Reset restores every field to its initial value, including the retake
// budget. Equivalent to abandoning the subject and kit selection entirely.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subject = nil
	s.testType = ""
	s.kitID = 0
	s.frontImage = nil
	s.backImage = nil
	s.ledgerWritten = false
	s.attempt = 0
	s.governor.reset()
}

// Manager owns the live sessions, keyed by an opaque ID carried in the
// browser cookie. Sessions idle past the TTL are evicted lazily on lookup,
// so abandoned sessions cannot accumulate.
type Manager struct {
	mu           sync.Mutex
	sessions     map[string]*Session
	lastSeen     map[string]time.Time
	retakeBudget int
	ttl          time.Duration
	now          func() time.Time
}

// NewManager creates a session manager with the configured retake budget and
// idle TTL. A zero TTL disables expiry.
func NewManager(retakeBudget int, ttl time.Duration) *Manager {
	return &Manager{
		sessions:     make(map[string]*Session),
		lastSeen:     make(map[string]time.Time),
		retakeBudget: retakeBudget,
		ttl:          ttl,
		now:          time.Now,
	}
}

// Create opens a fresh session.
func (m *Manager) Create() *Session {
	s := newSession(m.retakeBudget)
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.lastSeen[s.ID] = m.now()
	m.mu.Unlock()
	return s
}

// Get looks up a live session by ID. An expired session is evicted and
// reported as missing; any hit refreshes the idle clock.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	if m.ttl > 0 && m.now().Sub(m.lastSeen[id]) > m.ttl {
		delete(m.sessions, id)
		delete(m.lastSeen, id)
		return nil, false
	}
	m.lastSeen[id] = m.now()
	return s, true
}

// Destroy removes a session. Called on exit-to-home and after the user
// acknowledges retake exhaustion.
func (m *Manager) Destroy(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	delete(m.lastSeen, id)
	m.mu.Unlock()
}
