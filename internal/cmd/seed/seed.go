// Package seed loads the jibe word pool into the local database.
package seed

import (
	"bufio"
	"context"
	_ "embed"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	entrypoint "github.com/louisbranch/jibe/internal/platform/cmd"
	"github.com/louisbranch/jibe/internal/platform/logging"
	"github.com/louisbranch/jibe/internal/services/jibe/game"
	jibesqlite "github.com/louisbranch/jibe/internal/services/jibe/storage/sqlite"
)

//go:embed words.txt
var defaultWords string

// Config holds seed command configuration.
type Config struct {
	DBPath    string `env:"JIBE_DB_PATH" envDefault:"data/jibe.db"`
	WordsFile string `env:"JIBE_SEED_WORDS_FILE"`
	Logging   logging.Config
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the jibe SQLite database")
	fs.StringVar(&cfg.WordsFile, "words", cfg.WordsFile, "Word list file, one word per line (default: built-in list)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run replaces the word pool with the configured list.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	logger := logging.New(out, cfg.Logging, entrypoint.ServiceSeed)

	source := io.Reader(strings.NewReader(defaultWords))
	if path := strings.TrimSpace(cfg.WordsFile); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open word list: %w", err)
		}
		defer f.Close()
		source = f
	}
	words, err := ReadWords(source)
	if err != nil {
		return err
	}
	if len(words) < game.DefaultRoundWords {
		logger.Warn().Int("words", len(words)).Int("needed", game.DefaultRoundWords).Msg("word pool is smaller than a session's sample; sessions will fail to start")
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := jibesqlite.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open jibe sqlite store: %w", err)
	}
	defer store.Close()

	if err := store.ReplaceWords(ctx, words); err != nil {
		return fmt.Errorf("replace words: %w", err)
	}
	logger.Info().Int("words", len(words)).Str("db_path", cfg.DBPath).Msg("word pool seeded")
	return nil
}

// ReadWords reads one word per line, skipping blanks, "#" comments and
// case-insensitive duplicates.
func ReadWords(r io.Reader) ([]string, error) {
	var words []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		key := strings.ToLower(word)
		if seen[key] {
			continue
		}
		seen[key] = true
		words = append(words, word)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read word list: %w", err)
	}
	return words, nil
}
