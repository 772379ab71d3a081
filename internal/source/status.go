package source

// Status is a snapshot of a capture session.
type Status struct {
	Name                string
	Open                bool
	Started             bool
	Format              string
	Offset              uint64
	RenegotiationAdjust uint64
	PendingFormatChange bool
	ClockUntrusted      bool
}

// Status returns the current session state.
func (s *Source) Status() Status {
	st := Status{Name: s.name, Open: s.dev.IsOpen()}

	s.mu.Lock()
	defer s.mu.Unlock()
	st.Started = s.started
	if s.agreed {
		st.Format = s.format.String()
	}
	st.Offset = s.state.Offset
	st.RenegotiationAdjust = s.state.RenegotiationAdjust
	st.PendingFormatChange = s.state.PendingFormatChange
	st.ClockUntrusted = s.state.Untrusted
	return st
}
