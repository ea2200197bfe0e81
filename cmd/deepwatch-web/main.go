// Command deepwatch-web serves the browser dashboard. It holds no data of
// its own; every page is assembled from backend calls made with the bearer
// token stored in the visitor's cookie session.
package main

import (
	"encoding/hex"
	"flag"
	"log"
	"net/http"
	"os"

	"github.com/swarapotd-rgb/threat-neutralizer/internal/api"
	"github.com/swarapotd-rgb/threat-neutralizer/internal/web"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	backend := flag.String("backend", "http://localhost:8000", "DeepWatch backend URL")
	cookieKey := flag.String("cookie-key", "", "hex-encoded cookie signing key (env DEEPWATCH_COOKIE_KEY; random if empty)")
	flag.Parse()

	keyHex := *cookieKey
	if keyHex == "" {
		keyHex = os.Getenv("DEEPWATCH_COOKIE_KEY")
	}
	var key []byte
	if keyHex != "" {
		var err error
		if key, err = hex.DecodeString(keyHex); err != nil {
			log.Fatal("invalid cookie key:", err)
		}
	}

	client := api.New(*backend)
	h := web.New(client, key)

	log.Printf("deepwatch-web listening on %s (backend=%s)", *addr, *backend)
	if err := http.ListenAndServe(*addr, h); err != nil {
		log.Fatal(err)
	}
}
