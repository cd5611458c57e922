package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	activerecord "github.com/tinywasm/activerecord"
	_ "modernc.org/sqlite"
)

// ardemo walks the persistence layer end to end against an in-memory
// SQLite database: schema, type definitions, validation, saving, and a
// batched eager load.
func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	drv, err := activerecord.Open("sqlite", ":memory:")
	if err != nil {
		log.Fatalf("ardemo: %v", err)
	}
	defer drv.Close()
	drv.DB().SetMaxOpenConns(1) // keep the in-memory schema on one connection
	activerecord.RegisterDatasource(activerecord.DefaultDatasource, drv.WithLogger(logger))

	for _, ddl := range []string{
		`CREATE TABLE authors (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, created_at TIMESTAMP, updated_at TIMESTAMP)`,
		`CREATE TABLE posts (id INTEGER PRIMARY KEY AUTOINCREMENT, author_id INTEGER, title TEXT)`,
	} {
		if _, err := drv.DB().Exec(ddl); err != nil {
			log.Fatalf("ardemo: %v", err)
		}
	}

	authors := activerecord.Define("Author",
		activerecord.WithValidator(activerecord.NewRules().Add("name", activerecord.Required())),
		activerecord.WithLogger(logger)).
		HasMany("posts")
	posts := activerecord.Define("Post",
		activerecord.WithLogger(logger)).
		BelongsTo("author")

	invalid := authors.New(activerecord.Row{})
	if ok, _ := invalid.Save(); !ok {
		fmt.Printf("rejected empty author: %v\n", invalid.Errors())
	}

	ann := authors.New(activerecord.Row{"name": "Ann"})
	if ok, err := ann.Save(); err != nil || !ok {
		log.Fatalf("ardemo: save author: ok=%v err=%v", ok, err)
	}
	for _, title := range []string{"Hello", "Second post"} {
		p := posts.New(activerecord.Row{"author_id": ann.PrimaryKey(), "title": title})
		if ok, err := p.Save(); err != nil || !ok {
			log.Fatalf("ardemo: save post: ok=%v err=%v", ok, err)
		}
	}

	records, err := authors.All().Includes("posts").Get()
	if err != nil {
		log.Fatalf("ardemo: %v", err)
	}
	for _, author := range records {
		group, err := author.RelatedMany("posts")
		if err != nil {
			log.Fatalf("ardemo: %v", err)
		}
		fmt.Printf("%v has %d posts\n", author.Get("name"), len(group))
		for _, post := range group {
			fmt.Printf("  - %v\n", post.Get("title"))
		}
	}
}
