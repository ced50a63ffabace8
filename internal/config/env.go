package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnv overrides cfg with any environment variables that are set.
func applyEnv(cfg *Config) error {
	var errs []string
	fail := func(key string, err error) {
		errs = append(errs, fmt.Sprintf("%s: %v", key, err))
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = "0.0.0.0:" + port
	}
	setString(&cfg.Server.Addr, "ADDR")
	if err := setInt64(&cfg.Server.MaxUploadBytes, "MAX_UPLOAD_BYTES"); err != nil {
		fail("MAX_UPLOAD_BYTES", err)
	}
	setList(&cfg.Server.CORSOrigins, "CORS_ORIGINS")

	setString(&cfg.LLM.APIKey, "GROQ_API_KEY")
	setString(&cfg.LLM.APIKey, "LLM_API_KEY")
	setString(&cfg.LLM.BaseURL, "LLM_BASE_URL")
	setString(&cfg.LLM.Model, "LLM_MODEL")
	if err := setDuration(&cfg.LLM.Timeout, "LLM_TIMEOUT"); err != nil {
		fail("LLM_TIMEOUT", err)
	}
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fail("LLM_TEMPERATURE", err)
		} else {
			cfg.LLM.Temperature = &t
		}
	}

	setString(&cfg.Retrieval.Mode, "RETRIEVAL_MODE")
	if err := setInt(&cfg.Retrieval.TopK, "RETRIEVAL_TOP_K"); err != nil {
		fail("RETRIEVAL_TOP_K", err)
	}
	if err := setInt(&cfg.Retrieval.MaxContextChars, "MAX_CONTEXT_CHARS"); err != nil {
		fail("MAX_CONTEXT_CHARS", err)
	}

	setString(&cfg.Embedding.APIKey, "OPENAI_API_KEY")
	setString(&cfg.Embedding.BaseURL, "EMBEDDING_BASE_URL")
	setString(&cfg.Embedding.Model, "EMBEDDING_MODEL")
	if err := setInt(&cfg.Embedding.Dimension, "EMBEDDING_DIMENSION"); err != nil {
		fail("EMBEDDING_DIMENSION", err)
	}

	setString(&cfg.VectorStore.Type, "VECTOR_STORE")
	setString(&cfg.VectorStore.Qdrant.Host, "QDRANT_HOST")
	if err := setInt(&cfg.VectorStore.Qdrant.Port, "QDRANT_PORT"); err != nil {
		fail("QDRANT_PORT", err)
	}

	setString(&cfg.History.Type, "HISTORY_TYPE")
	setString(&cfg.History.DBPath, "HISTORY_DB")

	setString(&cfg.Documents.WatchDir, "WATCH_DIR")
	setList(&cfg.Documents.Extensions, "DOCUMENT_EXTENSIONS")

	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = i
	}
	return nil
}

func setInt64(dst *int64, key string) error {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*dst = i
	}
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
	}
	return nil
}

// setList splits a comma-separated variable, dropping empty items.
func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) > 0 {
		*dst = items
	}
}
