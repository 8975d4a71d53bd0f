package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN          string
	Environment    string
	MigrationsPath string

	TelegramToken string
	AMQPURL        string
	AMQPExchange   string
	AMQPQueue      string
	CommandQueue   string
	GradebookQueue string

	ScanInterval      time.Duration
	SendTimeout       time.Duration
	DigestTime        time.Duration // время суток рассылки дайджеста, отступ от полуночи
	TeacherDigestOnly bool
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		DBDSN:          os.Getenv("DB_DSN"),
		Environment:    os.Getenv("ENV"),
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		AMQPURL:        os.Getenv("AMQP_URL"),
		AMQPExchange:   os.Getenv("AMQP_EXCHANGE"),
		AMQPQueue:      os.Getenv("AMQP_QUEUE"),
		CommandQueue:   os.Getenv("COMMAND_QUEUE"),
		GradebookQueue: os.Getenv("GRADEBOOK_QUEUE"),
	}

	// Устанавливаем дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "migrations"
	}
	if cfg.AMQPExchange == "" {
		cfg.AMQPExchange = "organizer.notifications"
	}
	if cfg.AMQPQueue == "" {
		cfg.AMQPQueue = "organizer.notifications"
	}
	if cfg.CommandQueue == "" {
		cfg.CommandQueue = "organizer.commands"
	}
	if cfg.GradebookQueue == "" {
		cfg.GradebookQueue = "organizer.gradebook"
	}

	var err error
	cfg.ScanInterval, err = durationEnv("SCAN_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	cfg.SendTimeout, err = durationEnv("SEND_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.DigestTime, err = timeOfDayEnv("DIGEST_TIME", 6*time.Hour)
	if err != nil {
		return nil, err
	}
	cfg.TeacherDigestOnly, err = boolEnv("TEACHER_DIGEST_ONLY", false)
	if err != nil {
		return nil, err
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}
	if cfg.TelegramToken == "" && cfg.AMQPURL == "" {
		return nil, fmt.Errorf("either TELEGRAM_TOKEN or AMQP_URL must be set")
	}

	return cfg, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return def, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

// timeOfDayEnv читает время суток в формате "15:04"; значение "never"
// выключает дайджест
func timeOfDayEnv(key string, def time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return def, nil
	}
	if value == "never" {
		return -1, nil
	}

	t, err := time.Parse("15:04", value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func boolEnv(key string, def bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return def, nil
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}
