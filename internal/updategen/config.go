package updategen

import "time"

// Config holds configuration for one generator run.
type Config struct {
	Clients    int           // Number of client updates to generate
	Dim        int           // Length of every weight vector
	Spread     float64       // Stddev of per-client deviation from the shared center
	Seed       uint64        // Non-zero makes generation reproducible
	OutputFile string        // Where the update set is written; empty skips writing
	BaseURL    string        // Server to submit to; empty skips submission
	Clip       float64       // clip query parameter and local clipping norm
	Noise      float64       // noise query parameter and local noise stddev
	Workers    int           // Concurrent generator goroutines
	Timeout    time.Duration // HTTP request timeout
}

// Stats holds run statistics.
type Stats struct {
	ClientsGenerated int
	Submitted        bool
	RoundID          string
	ModelHash        string
	LocalHash        string
	DigestVerified   bool
	LocalMatched     bool
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
