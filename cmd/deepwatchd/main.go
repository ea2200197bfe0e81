// Command deepwatchd runs the development backend: the same HTTP contract
// as the production dashboard service, backed by a local SQLite database
// and seeded with demo data.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/swarapotd-rgb/threat-neutralizer/internal/server"
)

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	dbPath := flag.String("db", "deepwatch.db", "sqlite database path")
	regToken := flag.String("regtoken", "", "registration token to accept (random if empty)")
	ttl := flag.Duration("ttl", 8*time.Hour, "session token lifetime")
	seed := flag.Bool("seed", true, "seed demo records and demo users into an empty database")
	flag.Parse()

	token := *regToken
	if token == "" {
		token = server.RandomRegToken()
	}

	cfg := server.Config{
		Addr:     *addr,
		DBPath:   *dbPath,
		RegToken: token,
		TokenTTL: *ttl,
		SeedDemo: *seed,
	}
	if *seed {
		cfg.SeedUsers = []server.SeedUser{
			{Username: "admin", Password: "admin123", Role: "admin", TOTPSecret: "JBSWY3DPEHPK3PXP"},
			{Username: "user", Password: "user123", Role: "user", TOTPSecret: "JBSWY3DPEHPK3PXQ"},
		}
	}

	s, err := server.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	fmt.Println("registration token:", token)
	log.Printf("deepwatchd listening on %s (db=%s)", *addr, *dbPath)
	if err := http.ListenAndServe(*addr, s.Handler()); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
