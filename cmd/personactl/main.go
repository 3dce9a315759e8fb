// personactl manages the personality catalog: seeding the preset set,
// listing rows and upserting individual personalities with optional avatar
// import. This is the administrative path; the chat core only ever reads
// personalities.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/imposterai/imposter/internal/chat"
	"github.com/imposterai/imposter/internal/db"
)

type promptList []string

func (p *promptList) String() string { return strings.Join(*p, " | ") }

func (p *promptList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var (
		driver    = flag.String("driver", envOr("DB_DRIVER", "sqlite"), "database driver (sqlite|mysql)")
		dsn       = flag.String("dsn", envOr("DB_DSN", "imposter.sqlite"), "database DSN")
		assetsDir = flag.String("assets", envOr("ASSETS_DIR", "assets"), "avatar assets directory")

		seed = flag.Bool("seed", false, "seed the preset personalities")
		list = flag.Bool("list", false, "list all personalities")

		id    = flag.Uint64("id", 0, "personality id to save")
		name  = flag.String("name", "", "personality display name")
		intro = flag.String("intro", "", "personality intro message")
		image = flag.String("image", "", "avatar image file to import")
	)
	var prompts promptList
	flag.Var(&prompts, "prompt", "system prompt fragment (repeatable)")
	flag.Parse()

	gdb, err := db.Connect(*driver, *dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	if err := db.AutoMigrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	repo := chat.NewRepo(gdb)
	ctx := context.Background()

	switch {
	case *seed:
		for i := range chat.PresetPersonalities {
			p := chat.PresetPersonalities[i]
			if err := repo.SavePersonality(ctx, &p); err != nil {
				log.Fatal().Err(err).Uint64("id", p.ID).Msg("seed personality")
			}
			log.Info().Uint64("id", p.ID).Str("name", p.Name).Msg("seeded")
		}

	case *list:
		records, err := repo.ListPersonalities(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("list personalities")
		}
		for _, r := range records {
			fmt.Printf("%d\t%s\t%s\t%d prompt fragment(s)\n", r.ID, r.Name, r.ImagePath, len(r.SystemPrompt))
		}

	case *id != 0:
		if *name == "" {
			log.Fatal().Msg("-name is required when saving a personality")
		}
		imagePath := ""
		if *image != "" {
			imagePath, err = importAvatar(*image, *assetsDir)
			if err != nil {
				log.Fatal().Err(err).Msg("import avatar")
			}
		}
		rec := &chat.PersonalityRecord{
			ID:           *id,
			Name:         *name,
			SystemPrompt: prompts,
			IntroMessage: *intro,
			ImagePath:    imagePath,
		}
		if err := repo.SavePersonality(ctx, rec); err != nil {
			log.Fatal().Err(err).Msg("save personality")
		}
		log.Info().Uint64("id", *id).Str("name", *name).Msg("saved")

	default:
		flag.Usage()
		os.Exit(2)
	}
}

// importAvatar copies the file into the assets directory under a fresh name
// and returns the stored file name.
func importAvatar(src, assetsDir string) (string, error) {
	if err := os.MkdirAll(assetsDir, 0o755); err != nil {
		return "", err
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	name := uuid.NewString() + filepath.Ext(src)
	out, err := os.Create(filepath.Join(assetsDir, name))
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return "", err
	}
	return name, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
