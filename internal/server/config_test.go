package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feltops/cardroom/internal/tournament"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.hcl"))
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.Addr())
	assert.Equal(t, "memory", cfg.Ledger.Driver)
	require.Len(t, cfg.Rooms, 1)
	assert.Equal(t, "main", cfg.Rooms[0].Name)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	content := `
server {
  address = "0.0.0.0"
  port    = 9000
}

ledger {
  driver = "sqlite"
}

room "high stakes" {
  small_blind = 50
  big_blind   = 100
  max_seats   = 9
}

tournament "sunday major" {
  buy_in = 500
  fee    = 50
  prizes = "top-3"

  level {
    small_blind = 25
    big_blind   = 50
    minutes     = 15
  }
  level {
    small_blind = 50
    big_blind   = 100
  }
}
`
	path := filepath.Join(t.TempDir(), "cardroom.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9000", cfg.Addr())
	assert.Equal(t, "sqlite", cfg.Ledger.Driver)
	assert.Equal(t, "cardroom.db", cfg.Ledger.Path)

	rooms := cfg.RoomConfigs()
	require.Len(t, rooms, 1)
	assert.Equal(t, "high stakes", rooms[0].Name)
	assert.Equal(t, 100, rooms[0].Stakes.BigBlind)
	// Defaults: 50/500 big blinds and a 30 second turn clock.
	assert.Equal(t, 5000, rooms[0].Stakes.MinBuyIn)
	assert.Equal(t, 50000, rooms[0].Stakes.MaxBuyIn)
	assert.Equal(t, 30*time.Second, rooms[0].TurnTimeout)

	tournaments := cfg.TournamentConfigs()
	require.Len(t, tournaments, 1)
	assert.Equal(t, tournament.Top3, tournaments[0].Prizes)
	assert.Equal(t, int64(500), tournaments[0].BuyIn)
	require.Len(t, tournaments[0].Levels, 2)
	assert.Equal(t, 15*time.Minute, tournaments[0].Levels[0].Duration)
	assert.Equal(t, 10*time.Minute, tournaments[0].Levels[1].Duration)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Port = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Ledger.Driver = "postgres"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Rooms[0].MaxSeats = 11
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Rooms[0].BigBlind = 0
	assert.Error(t, cfg.Validate())
}
