package main

import (
	"log"
	"net/http"

	"github.com/tnsecretariat/regadmin/internal/config"
	"github.com/tnsecretariat/regadmin/internal/db"
	"github.com/tnsecretariat/regadmin/internal/web"
)

func main() {
	cfg := config.Load()

	if err := db.Init(cfg.DBPath); err != nil {
		log.Fatalf("db init: %v", err)
	}
	if err := db.SeedSpheres(db.Conn()); err != nil {
		log.Fatalf("seed spheres: %v", err)
	}

	r := web.Router(cfg)

	log.Printf("regadmin API listening on %s (db %s)", cfg.Addr, cfg.DBPath)
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		log.Fatal(err)
	}
}
