// Package config собирает настройки процессов beadprep из окружения
// и YAML-файла параметров запуска.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/beadprep/internal/domain"
	"github.com/shaiso/beadprep/internal/phases"
)

// ErrInvalidConfig — некорректное значение переменной окружения.
var ErrInvalidConfig = errors.New("invalid configuration")

// Значения по умолчанию.
const (
	DefaultAPIPort          = "8090"
	DefaultDoorPollInterval = time.Second
)

// Env — настройки из переменных окружения.
type Env struct {
	// DatabaseURL — DSN PostgreSQL журнала (DB_URL). Пусто — SQLite.
	DatabaseURL string

	// SQLitePath — файл локального журнала (SQLITE_PATH).
	SQLitePath string

	// RabbitMQURL — адрес брокера событий (RABBITMQ_URL). Пусто — без шины.
	RabbitMQURL string

	// APIPort — порт HTTP API (API_PORT).
	APIPort string

	// MetricsAddr — адрес /metrics раннера (METRICS_ADDR). Пусто — выключено.
	MetricsAddr string

	// DoorPollInterval — период опроса двери (DOOR_POLL_INTERVAL).
	DoorPollInterval time.Duration
}

// FromEnv читает Env из окружения.
func FromEnv() (Env, error) {
	env := Env{
		DatabaseURL:      os.Getenv("DB_URL"),
		SQLitePath:       os.Getenv("SQLITE_PATH"),
		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		APIPort:          getEnv("API_PORT", DefaultAPIPort),
		MetricsAddr:      os.Getenv("METRICS_ADDR"),
		DoorPollInterval: DefaultDoorPollInterval,
	}

	if v := os.Getenv("DOOR_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return env, fmt.Errorf("%w: DOOR_POLL_INTERVAL %q", ErrInvalidConfig, v)
		}
		env.DoorPollInterval = d
	}
	return env, nil
}

// APIAddr возвращает адрес прослушивания HTTP API.
func (e Env) APIAddr() string {
	return ":" + e.APIPort
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// RunFile — содержимое YAML-файла параметров запуска.
//
//	profile: biorad_96_wellplate_200ul_pcr
//	params:
//	  sample_count: 24
//	  wash_cycle_count: 2
//	layout:
//	  mag_slot: 4
//
// Незаданные поля получают значения по умолчанию.
type RunFile struct {
	Profile string            `yaml:"profile"`
	Params  domain.Params     `yaml:"params"`
	Layout  phases.DeckLayout `yaml:"layout"`
}

// DefaultRunFile возвращает параметры и деку по умолчанию.
func DefaultRunFile() RunFile {
	return RunFile{
		Params: domain.DefaultParams(),
		Layout: phases.DefaultLayout(),
	}
}

// ParseRunFile разбирает YAML поверх значений по умолчанию.
func ParseRunFile(data []byte) (RunFile, error) {
	rf := DefaultRunFile()
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return RunFile{}, fmt.Errorf("parse params file: %w", err)
	}
	rf.Layout = rf.Layout.WithDefaults()

	if err := rf.Params.Validate(); err != nil {
		return RunFile{}, err
	}
	if err := rf.Layout.Validate(); err != nil {
		return RunFile{}, err
	}
	return rf, nil
}

// LoadParamsFile читает и проверяет файл параметров.
func LoadParamsFile(path string) (RunFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunFile{}, fmt.Errorf("read params file: %w", err)
	}
	return ParseRunFile(data)
}
