package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/feltops/cardroom/internal/room"
	"github.com/feltops/cardroom/internal/tournament"
)

// Config is the complete cardroom configuration.
type Config struct {
	Server      ServerSettings     `hcl:"server,block"`
	Ledger      *LedgerSettings    `hcl:"ledger,block"`
	Rooms       []RoomConfig       `hcl:"room,block"`
	Tournaments []TournamentConfig `hcl:"tournament,block"`
}

// ServerSettings contains server-level configuration.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// LedgerSettings selects the balance store.
type LedgerSettings struct {
	Driver string `hcl:"driver,optional"` // "sqlite" or "memory"
	Path   string `hcl:"path,optional"`
}

// RoomConfig defines a cash table opened at startup.
type RoomConfig struct {
	Name               string `hcl:"name,label"`
	MaxSeats           int    `hcl:"max_seats,optional"`
	SmallBlind         int    `hcl:"small_blind"`
	BigBlind           int    `hcl:"big_blind"`
	BuyInMin           int    `hcl:"buy_in_min,optional"`
	BuyInMax           int    `hcl:"buy_in_max,optional"`
	TurnTimeoutSeconds int    `hcl:"turn_timeout_seconds,optional"`
}

// TournamentConfig defines a tournament opened for registration at
// startup.
type TournamentConfig struct {
	Name          string        `hcl:"name,label"`
	BuyIn         int64         `hcl:"buy_in"`
	Fee           int64         `hcl:"fee,optional"`
	StartingStack int           `hcl:"starting_stack,optional"`
	MinPlayers    int           `hcl:"min_players,optional"`
	MaxPlayers    int           `hcl:"max_players,optional"`
	Prizes        string        `hcl:"prizes,optional"`
	Levels        []LevelConfig `hcl:"level,block"`
}

// LevelConfig is one step of a tournament blind schedule.
type LevelConfig struct {
	SmallBlind int `hcl:"small_blind"`
	BigBlind   int `hcl:"big_blind"`
	Ante       int `hcl:"ante,optional"`
	Minutes    int `hcl:"minutes,optional"`
}

// DefaultConfig returns the configuration used when no file exists: one
// low-stakes table on an in-memory ledger.
func DefaultConfig() *Config {
	cfg := &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Ledger: &LedgerSettings{Driver: "memory"},
		Rooms: []RoomConfig{
			{
				Name:       "main",
				MaxSeats:   6,
				SmallBlind: 1,
				BigBlind:   2,
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads configuration from an HCL file, falling back to the
// defaults when the file does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Ledger == nil {
		c.Ledger = &LedgerSettings{Driver: "memory"}
	}
	if c.Ledger.Driver == "" {
		c.Ledger.Driver = "memory"
	}
	if c.Ledger.Driver == "sqlite" && c.Ledger.Path == "" {
		c.Ledger.Path = "cardroom.db"
	}

	for i := range c.Rooms {
		r := &c.Rooms[i]
		if r.MaxSeats == 0 {
			r.MaxSeats = 6
		}
		if r.BuyInMin == 0 {
			r.BuyInMin = r.BigBlind * 50
		}
		if r.BuyInMax == 0 {
			r.BuyInMax = r.BigBlind * 500
		}
		if r.TurnTimeoutSeconds == 0 {
			r.TurnTimeoutSeconds = 30
		}
	}

	for i := range c.Tournaments {
		t := &c.Tournaments[i]
		if t.StartingStack == 0 {
			t.StartingStack = 1500
		}
		if t.MinPlayers == 0 {
			t.MinPlayers = 2
		}
		if t.MaxPlayers == 0 {
			t.MaxPlayers = 64
		}
		if t.Prizes == "" {
			t.Prizes = string(tournament.WinnerTakesAll)
		}
		for j := range t.Levels {
			if t.Levels[j].Minutes == 0 {
				t.Levels[j].Minutes = 10
			}
		}
		if len(t.Levels) == 0 {
			t.Levels = []LevelConfig{
				{SmallBlind: 10, BigBlind: 20, Minutes: 10},
				{SmallBlind: 20, BigBlind: 40, Minutes: 10},
				{SmallBlind: 50, BigBlind: 100, Minutes: 10},
			}
		}
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Ledger.Driver != "memory" && c.Ledger.Driver != "sqlite" {
		return fmt.Errorf("unknown ledger driver: %s", c.Ledger.Driver)
	}

	for _, r := range c.Rooms {
		if r.SmallBlind <= 0 {
			return fmt.Errorf("room %s: small blind must be positive", r.Name)
		}
		if r.BigBlind < r.SmallBlind {
			return fmt.Errorf("room %s: big blind below small blind", r.Name)
		}
		if r.MaxSeats < 2 || r.MaxSeats > 10 {
			return fmt.Errorf("room %s: max seats must be between 2 and 10", r.Name)
		}
		if r.BuyInMin > r.BuyInMax {
			return fmt.Errorf("room %s: buy-in minimum above maximum", r.Name)
		}
	}

	for _, t := range c.Tournaments {
		if t.BuyIn < 0 || t.Fee < 0 {
			return fmt.Errorf("tournament %s: negative buy-in or fee", t.Name)
		}
		if t.MinPlayers < 2 {
			return fmt.Errorf("tournament %s: min players must be at least 2", t.Name)
		}
		if t.MaxPlayers < t.MinPlayers {
			return fmt.Errorf("tournament %s: max players below min players", t.Name)
		}
		for _, lv := range t.Levels {
			if lv.SmallBlind <= 0 || lv.BigBlind < lv.SmallBlind {
				return fmt.Errorf("tournament %s: invalid blind level %d/%d", t.Name, lv.SmallBlind, lv.BigBlind)
			}
		}
	}
	return nil
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// RoomConfigs converts the room blocks into room configurations.
func (c *Config) RoomConfigs() []room.Config {
	out := make([]room.Config, len(c.Rooms))
	for i, r := range c.Rooms {
		out[i] = room.Config{
			Name: r.Name,
			Stakes: room.Stakes{
				SmallBlind: r.SmallBlind,
				BigBlind:   r.BigBlind,
				MinBuyIn:   r.BuyInMin,
				MaxBuyIn:   r.BuyInMax,
			},
			MaxSeats:    r.MaxSeats,
			TurnTimeout: time.Duration(r.TurnTimeoutSeconds) * time.Second,
		}
	}
	return out
}

// TournamentConfigs converts the tournament blocks into tournament
// configurations.
func (c *Config) TournamentConfigs() []tournament.Config {
	out := make([]tournament.Config, len(c.Tournaments))
	for i, t := range c.Tournaments {
		levels := make([]tournament.BlindLevel, len(t.Levels))
		for j, lv := range t.Levels {
			levels[j] = tournament.BlindLevel{
				SmallBlind: lv.SmallBlind,
				BigBlind:   lv.BigBlind,
				Ante:       lv.Ante,
				Duration:   time.Duration(lv.Minutes) * time.Minute,
			}
		}
		out[i] = tournament.Config{
			Name:          t.Name,
			Format:        tournament.SingleElimination,
			BuyIn:         t.BuyIn,
			Fee:           t.Fee,
			StartingStack: t.StartingStack,
			MinPlayers:    t.MinPlayers,
			MaxPlayers:    t.MaxPlayers,
			Prizes:        tournament.PrizeStructure(t.Prizes),
			Levels:        levels,
		}
	}
	return out
}
