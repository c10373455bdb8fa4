package core

import (
	"time"
)

type Config struct {
	Spotify SpotifyConfig
	LLM     LLMConfig
	AutoDJ  AutoDJConfig
	History HistoryConfig
	Lyrics  LyricsConfig
	Lastfm  LastfmConfig
	Library LibraryConfig
	Server  ServerConfig
	Log     LogConfig
	UI      UIConfig
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenPath    string
	// MinRelevance is the minimal search relevance score a candidate must
	// reach to resolve; below it the resolver reports not-found.
	MinRelevance float64
}

type LLMConfig struct {
	Provider    string
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	// PromptsPath optionally points to a JSON file overriding the
	// built-in prompt templates.
	PromptsPath string
}

type AutoDJConfig struct {
	// RepeatWindow is the number of trailing played/queued history
	// entries a track must be absent from before it may be enqueued.
	RepeatWindow int
	// QueueAhead is how many auto-queued tracks the controller keeps
	// pending; below it a fetch triggers.
	QueueAhead int
	// CooldownSecs is the base cooldown after a failed fetch; it doubles
	// per consecutive failure up to MaxCooldownSecs.
	CooldownSecs         int
	MaxCooldownSecs      int
	UpstreamCooldownSecs int
	// CallsPerMinute bounds recommendation calls through the rate gate.
	CallsPerMinute int
	// ChatterLevel 0-2 controls how often auto-queued tracks carry a DJ
	// intro: 0 never, 1 occasionally, 2 every track.
	ChatterLevel int
}

type HistoryConfig struct {
	// Path of the JSONL session log. Empty disables persistence.
	Path string
}

type LyricsConfig struct {
	BaseURL   string
	CacheSize int
	Timeout   time.Duration
}

type LastfmConfig struct {
	APIKey     string
	Secret     string
	SessionKey string
	Username   string
}

type LibraryConfig struct {
	// Path of the SQLite database holding saved and disliked tracks.
	// Empty disables the library.
	Path string
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level string
	// Path of the session log file. The terminal UI owns stdout, so logs
	// always go to a file.
	Path string
}

type UIConfig struct {
	// TickMillis is the playback poll interval for the event loop.
	TickMillis int
	// Locale selects the message catalog.
	Locale string
}

func DefaultConfig() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			RedirectURL:  "http://localhost:8888/callback",
			TokenPath:    "./spotify_token.json",
			MinRelevance: 0.55,
		},
		LLM: LLMConfig{
			Provider:    "openai",
			Model:       "",
			MaxTokens:   700,
			Temperature: 0.8,
		},
		AutoDJ: AutoDJConfig{
			RepeatWindow:         8,
			QueueAhead:           2,
			CooldownSecs:         15,
			MaxCooldownSecs:      300,
			UpstreamCooldownSecs: 120,
			CallsPerMinute:       10,
			ChatterLevel:         1,
		},
		History: HistoryConfig{
			Path: "./song_history.jsonl",
		},
		Lyrics: LyricsConfig{
			BaseURL:   "https://lrclib.net",
			CacheSize: 64,
			Timeout:   10 * time.Second,
		},
		Library: LibraryConfig{
			Path: "./radiofree_library.db",
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         9100,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
			Path:  "./radiofree.log",
		},
		UI: UIConfig{
			TickMillis: 500,
			Locale:     "en",
		},
	}
}
