package db

import (
	"context"
	"strings"
	"testing"

	"DevcampAPI/internal/config"
	"DevcampAPI/internal/resource"
	"DevcampAPI/internal/store/memory"
)

func TestOpenStore_Memory(t *testing.T) {
	reg, err := resource.InitRegistry("../../resources")
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	st, err := OpenStore(context.Background(), &config.Config{StoreDriver: "memory"}, reg, true)
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	if _, ok := st.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", st)
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := OpenStore(context.Background(), &config.Config{StoreDriver: "sqlite"}, nil, false)
	if err == nil || !strings.Contains(err.Error(), `unknown STORE_DRIVER "sqlite"`) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInitRedis_EmptyAddrDisablesCache(t *testing.T) {
	rdb, err := InitRedis(context.Background(), "")
	if rdb != nil || err != nil {
		t.Fatalf("expected nil client and nil error, got %v %v", rdb, err)
	}
}
