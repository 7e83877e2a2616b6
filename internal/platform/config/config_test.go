package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("TASK_BUS", "")
	t.Setenv("WORKER_POLL_INTERVAL", "")
	t.Setenv("VOTE_RATE_LIMIT_RPS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.TaskBus != TaskBusMemory {
		t.Fatalf("expected memory task bus, got %q", cfg.TaskBus)
	}
	if cfg.WorkerPollInterval != time.Second {
		t.Fatalf("expected 1s poll interval, got %s", cfg.WorkerPollInterval)
	}
	if cfg.VoteRateLimitRPS != 5 {
		t.Fatalf("expected default rps 5, got %v", cfg.VoteRateLimitRPS)
	}
}

func TestRequireJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load must not require JWT_SECRET: %v", err)
	}
	if err := cfg.RequireJWTSecret(); err == nil {
		t.Fatal("expected missing JWT_SECRET to fail")
	}
}

func TestLoadRejectsUnknownTaskBus(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("TASK_BUS", "kafka")
	if _, err := Load(); err == nil {
		t.Fatal("expected unknown task bus to fail")
	}
}

func TestLoadParsesAdminList(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("ADMIN_USER_IDS", " admin-1, ,admin-2 ")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(cfg.AdminUserIDs) != 2 || cfg.AdminUserIDs[0] != "admin-1" || cfg.AdminUserIDs[1] != "admin-2" {
		t.Fatalf("unexpected admin ids: %#v", cfg.AdminUserIDs)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("DEDUP_TTL", "forever")
	if _, err := Load(); err == nil {
		t.Fatal("expected invalid DEDUP_TTL to fail")
	}
}
