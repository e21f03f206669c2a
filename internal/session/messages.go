package session

// Messages are the user-visible texts written for status and fallback outcomes.
type Messages struct {
	Standby             string
	Recording           string
	Processing          string
	TooShort            string
	TranscriptionFailed string
	NoResponse          string
	Silence             string
}

// DefaultMessages returns the built-in status and fallback texts.
func DefaultMessages() Messages {
	return Messages{
		Standby:             "Neural Link: STANDBY",
		Recording:           "UPLINK: [ RECORDING... ]",
		Processing:          "UPLINK: [ DECRYPTING NEURAL DATA... ]",
		TooShort:            "Link error: Audio too short.",
		TranscriptionFailed: "Link error: Transcription failed.",
		NoResponse:          "Link Lost: No response from the Net.",
		Silence:             "Silence...",
	}
}

// WithDefaults fills every empty field from DefaultMessages.
func (m Messages) WithDefaults() Messages {
	d := DefaultMessages()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&m.Standby, d.Standby)
	fill(&m.Recording, d.Recording)
	fill(&m.Processing, d.Processing)
	fill(&m.TooShort, d.TooShort)
	fill(&m.TranscriptionFailed, d.TranscriptionFailed)
	fill(&m.NoResponse, d.NoResponse)
	fill(&m.Silence, d.Silence)
	return m
}
