package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Listen   string   `koanf:"listen"`
	Storage  Storage  `koanf:"storage"`
	Tracking Tracking `koanf:"tracking"`
}

type Storage struct {
	// Dir is the data directory; relative File and Database paths are
	// resolved against it.
	Dir      string `koanf:"dir"`
	File     string `koanf:"file"`
	Database string `koanf:"database"`
	// BackupRetention is the number of backup snapshots kept in the
	// structured store before the oldest ones are pruned.
	BackupRetention int `koanf:"backupretention"`
	// StaleMonths is the default age, in months, past which stored weeks
	// are offered for cleanup.
	StaleMonths int `koanf:"stalemonths"`
}

type Tracking struct {
	// WeeklyTargetMinutes is the contracted weekly working time.
	WeeklyTargetMinutes int `koanf:"weeklytargetminutes"`
	// DailyTargetHours applies Monday through Thursday.
	DailyTargetHours float64 `koanf:"dailytargethours"`
	// FridayTargetHours is the shortened Friday target.
	FridayTargetHours float64 `koanf:"fridaytargethours"`
	// BreakMinutes is deducted on any day worked beyond BreakThresholdHours.
	BreakMinutes        int     `koanf:"breakminutes"`
	BreakThresholdHours float64 `koanf:"breakthresholdhours"`
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".zeitkonto")
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Application{
		Listen: ":8181",
		Storage: Storage{
			Dir:             defaultDataDir(),
			File:            "timesheet.json",
			Database:        "zeitkonto.db",
			BackupRetention: 10,
			StaleMonths:     3,
		},
		Tracking: Tracking{
			WeeklyTargetMinutes: 2160,
			DailyTargetHours:    7.5,
			FridayTargetHours:   6,
			BreakMinutes:        30,
			BreakThresholdHours: 6,
		},
	}, "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "ZEITKONTO_",
		TransformFunc: func(k, v string) (string, any) {
			// Transform the key.
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "ZEITKONTO_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}

// FilePath returns the absolute location of the primary JSON store.
func (s Storage) FilePath() string {
	if filepath.IsAbs(s.File) {
		return s.File
	}
	return filepath.Join(s.Dir, s.File)
}

// DatabasePath returns the absolute location of the SQLite store.
func (s Storage) DatabasePath() string {
	if filepath.IsAbs(s.Database) {
		return s.Database
	}
	return filepath.Join(s.Dir, s.Database)
}
