package domain

import (
	"time"
)

// Session holds the measurement being edited for one report. It lives only as
// long as the session store keeps it.
type Session struct {
	ID          string      `json:"id"`
	Measurement Measurement `json:"measurement"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Clone returns a copy of the session that shares no field storage with s.
func (s *Session) Clone() *Session {
	out := *s
	out.Measurement = s.Measurement.Clone()
	return &out
}
