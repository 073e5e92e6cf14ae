package database

// Session holds a participant's survey answers.
type Session struct {
	SessionID       string
	ParticipantAge  *int
	SegaFamiliarity *int
	AISentiment     *int
	Opinion         *string
	CreatedAt       string
	UpdatedAt       string
}

// Vote is a participant's rating of one displayed lyric.
type Vote struct {
	LyricID string
	Genre   string
	IsAI    bool
	Vote    string
}

// Selection is the set of human lyric ids shown to a session.
type Selection struct {
	SessionID string
	IDs       []int64
	UpdatedAt string
}

// Stats holds database statistics.
type Stats struct {
	HumanLyrics   int
	AILyrics      int
	AISessions    int
	Sessions      int
	Selections    int
	Votes         int
	LockedIPs     int
	LastGenerated string
}
