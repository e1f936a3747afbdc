package store_test

import (
	"testing"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/store"
)

// The memory store must mirror SQLite behavior; run the same suites.

func TestMemoryUsers(t *testing.T)      { testUsers(t, store.NewMemory()) }
func TestMemorySessions(t *testing.T)   { testSessions(t, store.NewMemory()) }
func TestMemorySecretInfo(t *testing.T) { testSecretInfo(t, store.NewMemory()) }
