package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port        int
	DataPath    string
	DBPath      string
	AssetPath   string // assembled uploads and externally staged media
	StagingPath string // chunked upload staging
	CaptionPath string // generated caption artifacts

	ChunkSize  int64
	SessionTTL time.Duration

	MaxAudioSeconds int // duration cap for extracted audio

	GoogleCredsPath string // service-account key for the speech recognizers
	GeminiAPIKey    string

	CallerTokenSecret string // shared secret of the upstream identity service
	CORSOrigins       []string
}

func Load() *Config {
	port, _ := strconv.Atoi(getEnv("PORT", "8080"))
	dataPath := getEnv("DATA_PATH", "/data")

	chunkSize, err := strconv.ParseInt(getEnv("CHUNK_SIZE", "2097152"), 10, 64)
	if err != nil || chunkSize <= 0 {
		log.Printf("WARNING: invalid CHUNK_SIZE, using 2MiB")
		chunkSize = 2 * 1024 * 1024
	}

	ttlHours, _ := strconv.Atoi(getEnv("SESSION_TTL_HOURS", "24"))
	if ttlHours <= 0 {
		ttlHours = 24
	}

	maxAudio, _ := strconv.Atoi(getEnv("MAX_AUDIO_SECONDS", "1200"))
	if maxAudio <= 0 {
		maxAudio = 1200
	}

	// CORS origins: comma-separated list or "*" (default)
	corsOrigins := []string{"*"}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		corsOrigins = make([]string, 0, len(origins))
		for _, o := range origins {
			o = strings.TrimSpace(o)
			if o != "" {
				corsOrigins = append(corsOrigins, o)
			}
		}
	}

	if os.Getenv("CALLER_TOKEN_SECRET") == "" {
		log.Println("WARNING: CALLER_TOKEN_SECRET not set, caller identity will not be attached to requests")
	}

	return &Config{
		Port:              port,
		DataPath:          dataPath,
		DBPath:            getEnv("DB_PATH", dataPath+"/media.db"),
		AssetPath:         getEnv("ASSET_PATH", dataPath+"/assets"),
		StagingPath:       getEnv("STAGING_PATH", dataPath+"/staging"),
		CaptionPath:       getEnv("CAPTION_PATH", dataPath+"/captions"),
		ChunkSize:         chunkSize,
		SessionTTL:        time.Duration(ttlHours) * time.Hour,
		MaxAudioSeconds:   maxAudio,
		GoogleCredsPath:   getEnv("GOOGLE_CREDENTIALS", ""),
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		CallerTokenSecret: getEnv("CALLER_TOKEN_SECRET", ""),
		CORSOrigins:       corsOrigins,
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
