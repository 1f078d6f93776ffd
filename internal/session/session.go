// Package session holds the ORCID identity and GitHub linkage for the
// active user. The session is an explicit object with a defined lifecycle:
// created on ORCID code exchange, touched on activity, expired after a
// fixed inactivity window, and torn down on logout. The GitHub linkage is
// deliberately decoupled: it survives an ORCID logout.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/konsulin-care/pubcraft-editor-sub000/internal/kvstore"
)

const (
	// InactivityWindow is how long a session stays valid without activity.
	InactivityWindow = time.Hour
	// SweepInterval is how often Watch re-checks expiry.
	SweepInterval = time.Minute

	orcidSlotKey  = "orcid_session"
	githubSlotKey = "github_session"
)

// User is the ORCID-authenticated identity.
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ORCID       string `json:"orcid"`
	Email       string `json:"email,omitempty"`
	AccessToken string `json:"accessToken"`
}

// GitHubLink is the GitHub account linked to the user.
type GitHubLink struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Session is the active auth session.
type Session struct {
	User         User        `json:"user"`
	GitHub       *GitHubLink `json:"github,omitempty"`
	LoginTime    time.Time   `json:"loginTime"`
	LastActivity time.Time   `json:"lastActivity"`
}

// Manager owns session persistence and expiry.
type Manager struct {
	kv         *kvstore.Store
	now        func() time.Time
	inactivity time.Duration
}

// NewManager creates a session manager over the workspace slot store.
func NewManager(kv *kvstore.Store) *Manager {
	return &Manager{kv: kv, now: time.Now, inactivity: InactivityWindow}
}

// Login creates a session for a freshly exchanged ORCID identity and
// attaches any previously stored GitHub link.
func (m *Manager) Login(user User) (*Session, error) {
	now := m.now()
	s := &Session{User: user, LoginTime: now, LastActivity: now}

	if link, err := m.GitHub(); err == nil && link != nil {
		s.GitHub = link
	}

	if err := m.saveSession(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Current returns the active session, or nil when there is none or the
// inactivity window has elapsed. An expired session is removed.
func (m *Manager) Current() (*Session, error) {
	raw, ok, err := m.kv.Get(kvstore.Persistent, orcidSlotKey)
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("parsing session: %w", err)
	}

	if m.now().Sub(s.LastActivity) > m.inactivity {
		if err := m.Logout(); err != nil {
			return nil, err
		}
		return nil, nil
	}

	if link, err := m.GitHub(); err == nil {
		s.GitHub = link
	}
	return &s, nil
}

// Touch refreshes the activity timestamp on the current session.
func (m *Manager) Touch() error {
	s, err := m.Current()
	if err != nil || s == nil {
		return err
	}
	s.LastActivity = m.now()
	return m.saveSession(s)
}

// Logout removes the ORCID session. The GitHub link is intentionally left
// in place; re-linking on every login would be needless friction.
func (m *Manager) Logout() error {
	return m.kv.Delete(kvstore.Persistent, orcidSlotKey)
}

// LinkGitHub stores the GitHub account linkage. It does not require an
// active ORCID session.
func (m *Manager) LinkGitHub(username, token string) error {
	data, err := json.Marshal(GitHubLink{Username: username, Token: token})
	if err != nil {
		return fmt.Errorf("encoding github link: %w", err)
	}
	return m.kv.Put(kvstore.Persistent, githubSlotKey, string(data))
}

// GitHub returns the stored GitHub link, or nil when not linked.
func (m *Manager) GitHub() (*GitHubLink, error) {
	raw, ok, err := m.kv.Get(kvstore.Persistent, githubSlotKey)
	if err != nil {
		return nil, fmt.Errorf("reading github link: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var link GitHubLink
	if err := json.Unmarshal([]byte(raw), &link); err != nil {
		return nil, fmt.Errorf("parsing github link: %w", err)
	}
	return &link, nil
}

// UnlinkGitHub removes the GitHub linkage.
func (m *Manager) UnlinkGitHub() error {
	return m.kv.Delete(kvstore.Persistent, githubSlotKey)
}

// Watch periodically re-checks session expiry until the context is done.
// Current already removes an expired session as a side effect.
func (m *Manager) Watch(ctx context.Context) {
	ticker := time.NewTicker(SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Current()
		}
	}
}

func (m *Manager) saveSession(s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	return m.kv.Put(kvstore.Persistent, orcidSlotKey, string(data))
}
