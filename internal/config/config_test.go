package config

import (
	"testing"
)

func validConfig() Config {
	return Config{
		HTTP:      HTTPConfig{Port: 8080},
		Database:  DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Embedding: EmbeddingConfig{Model: "text-embedding-3-small"},
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }},
		{"no addrs", func(c *Config) { c.Database.Addrs = nil }},
		{"no model", func(c *Config) { c.Embedding.Model = "" }},
		{"rerank enabled without url", func(c *Config) { c.Rerank.Enabled = true }},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := validConfig()
			c.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.ApplyDefaults()

	if cfg.Database.KeyPrefix != "graphtalk:" {
		t.Errorf("key prefix: got %q", cfg.Database.KeyPrefix)
	}
	if cfg.Search.IndexName != "idx:chunks" {
		t.Errorf("index name: got %q", cfg.Search.IndexName)
	}
	if cfg.Search.HybridAlpha != 0.6 {
		t.Errorf("hybrid alpha: got %v", cfg.Search.HybridAlpha)
	}
	if cfg.Search.Overfetch != 3 {
		t.Errorf("overfetch: got %d", cfg.Search.Overfetch)
	}
	if cfg.Search.MaxChunksPerFile != 5 {
		t.Errorf("max chunks per file: got %d", cfg.Search.MaxChunksPerFile)
	}
	if cfg.Search.StageTimeoutMS != 5000 {
		t.Errorf("stage timeout: got %d", cfg.Search.StageTimeoutMS)
	}
	if cfg.Rerank.Weight != 0.7 {
		t.Errorf("rerank weight: got %v", cfg.Rerank.Weight)
	}
	if cfg.Cache.MemoryEntries != 4096 {
		t.Errorf("cache entries: got %d", cfg.Cache.MemoryEntries)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := validConfig()
	cfg.Search.HybridAlpha = 0.5
	cfg.Search.Overfetch = 2
	cfg.ApplyDefaults()

	if cfg.Search.HybridAlpha != 0.5 {
		t.Errorf("hybrid alpha overwritten: got %v", cfg.Search.HybridAlpha)
	}
	if cfg.Search.Overfetch != 2 {
		t.Errorf("overfetch overwritten: got %d", cfg.Search.Overfetch)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "redis:6379")

	in := []byte("addr: ${TEST_REDIS_ADDR}\nkey: ${TEST_UNSET_VAR:-fallback}\nempty: ${TEST_UNSET_VAR}")
	got := string(expandEnvVars(in))
	want := "addr: redis:6379\nkey: fallback\nempty: "

	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
