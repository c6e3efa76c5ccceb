package params

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type API struct {
	Addr string
	// AllowedOrigins for browser clients hitting the REST/WS surface.
	AllowedOrigins []string
}

type Node struct {
	LogFile string
	// JournalPath enables the Pebble trade archive when non-empty.
	JournalPath string
	// SeedDemo loads the sample dataset at startup.
	SeedDemo bool
}

type Config struct {
	API  API
	Node Node
}

func Default() Config {
	return Config{
		API: API{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
		},
		Node: Node{
			LogFile:     "data/exchange.log",
			JournalPath: "",
			SeedDemo:    false,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load() // loads .env from current directory
	}

	if addr := os.Getenv("API_ADDR"); addr != "" {
		cfg.API.Addr = addr
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.API.AllowedOrigins = strings.Split(origins, ",")
	}
	if logFile := os.Getenv("LOG_FILE"); logFile != "" {
		cfg.Node.LogFile = logFile
	}
	if journal := os.Getenv("JOURNAL_PATH"); journal != "" {
		cfg.Node.JournalPath = journal
	}
	if seed := os.Getenv("SEED_DEMO"); seed != "" {
		cfg.Node.SeedDemo = seed == "true"
	}

	return cfg
}
