package moderation

import (
	"sync"

	"github.com/hipstersmoothie/social-app/internal/chat"
)

// Label visibility verdicts, matching the config values.
const (
	VisibilityHide   = "hide"
	VisibilityWarn   = "warn"
	VisibilityIgnore = "ignore"
)

// Opts are the account-level moderation preferences. They arrive from
// configuration or a preferences sync and may be briefly absent after
// startup.
type Opts struct {
	// LabelVisibility maps a label value to its verdict. Labels without an
	// entry are ignored.
	LabelVisibility map[string]string
}

// Service decides per-profile moderation verdicts. Until SetOpts is called
// (or after Clear), Decide reports the verdict as unavailable and callers
// fall back to their conservative path.
type Service struct {
	mu   sync.RWMutex
	opts *Opts
}

func NewService() *Service {
	return &Service{}
}

func (s *Service) SetOpts(opts Opts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = &opts
}

func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts = nil
}

func (s *Service) Available() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.opts != nil
}

// Decide combines the relationship state the service reported with the
// account's label preferences. ok is false while preferences are missing.
func (s *Service) Decide(p chat.Profile) (chat.Decision, bool) {
	s.mu.RLock()
	opts := s.opts
	s.mu.RUnlock()
	if opts == nil {
		return chat.Decision{}, false
	}

	d := chat.Decision{
		Blocked: p.Viewer.Blocking || p.Viewer.BlockedBy,
		Muted:   p.Viewer.Muted,
	}
	if !d.Blocked {
		for _, label := range p.Labels {
			if opts.LabelVisibility[label] == VisibilityHide {
				d.Blocked = true
				break
			}
		}
	}

	return d, true
}
