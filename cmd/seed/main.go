// Command main runs the database seeder for StreamLens.
package main

import (
	"flag"
	"log"

	"streamlens/internal/config"
	"streamlens/internal/database"
	"streamlens/internal/seed"
)

func main() {
	numStreams := flag.Int("streams", 5, "Number of captures to create")
	comments := flag.Int("comments", 400, "Comments per capture")
	products := flag.Int("products", 8, "Products per linked session")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Println("===============")
	log.Printf("Target: %d streams, %d comments each, clean=%v\n", *numStreams, *comments, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if _, err = database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	s := seed.NewSeeder(database.DB, seed.Options{
		NumStreams:         *numStreams,
		CommentsPerStream:  *comments,
		ProductsPerSession: *products,
		ShouldClean:        *shouldClean,
	})

	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	if err := s.SeedDemo(); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("All done! Your database now has demo captures, links, and comment corpora.")
}
