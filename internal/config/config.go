// Copyright 2026 The Candlepipe Authors. All Rights Reserved.
//
// Created: July 2026
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the environment-keyed process configuration. A .env
// file in the working directory is folded into the environment when present;
// a missing file is not an error.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config is the resolved process configuration.
type Config struct {
	// RatesURL is the base URL of the rates endpoint; the collector appends
	// the symbol path. Required.
	RatesURL string

	DB    DBConfig
	Redis RedisConfig
}

// DBConfig holds the relational sink's connection settings.
type DBConfig struct {
	Host string
	Port string
	User string
	Name string
	Pass string
}

// RedisConfig holds the redis sink's connection settings.
type RedisConfig struct {
	Addr   string
	Prefix string
}

// DSN renders the keyword/value connection string the postgres adapter
// expects.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host='%s' port='%s' user='%s' dbname='%s' password='%s'",
		c.Host, c.Port, c.User, c.Name, c.Pass)
}

// Load resolves the configuration from .env plus the process environment.
// Returns an error when a required value is missing.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("no .env file loaded, using process environment only")
	}

	ratesURL := os.Getenv("URL_RATES")
	if ratesURL == "" {
		return nil, fmt.Errorf("URL_RATES must be configured")
	}

	return &Config{
		RatesURL: ratesURL,
		DB: DBConfig{
			Host: envOrDefault("DB_HOST", "127.0.0.1"),
			Port: envOrDefault("DB_PORT", "5432"),
			User: envOrDefault("DB_USER", "demouser"),
			Name: envOrDefault("DB_NAME", "demo"),
			Pass: envOrDefault("DB_PASS", ""),
		},
		Redis: RedisConfig{
			Addr:   envOrDefault("REDIS_ADDR", "127.0.0.1:6379"),
			Prefix: envOrDefault("REDIS_KEY", "candlepipe"),
		},
	}, nil
}

func envOrDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}
