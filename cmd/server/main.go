package main

import (
	"flag"
	"log"

	"github.com/joho/godotenv"

	"github.com/mpuig/rentagpt/pkg/config"
	"github.com/mpuig/rentagpt/server"
)

func main() {
	godotenv.Load()

	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	log.Fatal(srv.ListenAndServe())
}
