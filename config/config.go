// config/config.go
package config

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	Port          string
	MongoURI      string
	DatabaseName  string
	JWTKey        []byte
	JWTExpiration time.Duration
	LogLevel      string

	// SweepSchedule is the cron spec for the stuck-cascade report job;
	// SweepAge is how old a running cascade log must be before it is reported.
	SweepSchedule string
	SweepAge      time.Duration
)

func LoadConfig() {
	Port = os.Getenv("PORT")
	if Port == "" {
		Port = "8080"
	}

	MongoURI = os.Getenv("MONGO_URI")
	if MongoURI == "" {
		MongoURI = "mongodb://localhost:27017"
	}

	DatabaseName = os.Getenv("DB_NAME")
	if DatabaseName == "" {
		DatabaseName = "assethub"
	}

	JWTKey = []byte(os.Getenv("JWT_SECRET"))
	if len(JWTKey) == 0 {
		JWTKey = []byte("secret")
	}

	expireStr := os.Getenv("JWT_EXPIRE")
	dur := 24 * time.Hour
	if expireStr != "" {
		if expireStr == "7d" {
			dur = 7 * 24 * time.Hour
		} else {
			var err error
			dur, err = time.ParseDuration(expireStr)
			if err != nil {
				logrus.Warnf("Invalid JWT_EXPIRE: %s, using 24h", expireStr)
				dur = 24 * time.Hour
			}
		}
	}
	JWTExpiration = dur

	LogLevel = os.Getenv("LOG_LEVEL")
	if LogLevel == "" {
		LogLevel = "info"
	}

	SweepSchedule = os.Getenv("SWEEP_SCHEDULE")
	if SweepSchedule == "" {
		SweepSchedule = "@every 10m"
	}

	ageStr := os.Getenv("SWEEP_AGE")
	SweepAge = 15 * time.Minute
	if ageStr != "" {
		if age, err := time.ParseDuration(ageStr); err == nil {
			SweepAge = age
		} else {
			logrus.Warnf("Invalid SWEEP_AGE: %s, using 15m", ageStr)
		}
	}
}
