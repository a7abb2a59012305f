package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func init() {
	InitializeLogger(zerolog.DebugLevel)
}

// Populated by ldflags
var (
	version            string
	buildUnixTimestamp string
	commitHash         string
)

func main() {
	ts, _ := strconv.ParseInt(buildUnixTimestamp, 10, 64)
	buildTime := time.Unix(ts, 0)

	configFlag := flag.String("config", "", "Path to config file (default ~/"+ConfigFileName+")")
	versionFlag := flag.Bool("version", false, "Print version")
	systemdFlag := flag.Bool("systemd", false, "Print systemd service file")
	flag.Parse()

	if *versionFlag {
		fmt.Println("pinsim version:", version)
		fmt.Println("Built on:", buildTime)
		fmt.Println("Commit hash:", commitHash)
		return
	}

	if *systemdFlag {
		if err := SystemdServiceFile(os.Stdout, *configFlag); err != nil {
			log.Fatal().Err(err).Msg("Failed to render service file")
		}
		return
	}

	config, err := NewConfig(NewPinsimOSFS(), Flags{ConfigPath: *configFlag}, os.Getenv)
	if err != nil {
		log.Fatal().Err(err).Msg("Config initialization failed")
	}
	InitializeLogger(config.LogLevel())

	log.Info().
		Str("version", version).
		Str("build_timestamp", buildTime.Format(time.RFC3339)).
		Str("commit_hash", commitHash).
		Str("config", config.Path()).
		Msg("Initializing pinsim")

	harness, err := NewHarness(config)
	if err != nil {
		log.Fatal().Err(err).Msg("Harness initialization failed")
	}
	defer harness.Close()

	buildInfo := BuildInfo{
		Version:    version,
		BuildTime:  buildTime.Format(time.RFC3339),
		CommitHash: commitHash,
	}
	if err := StartServer(config, buildInfo, harness); err != nil {
		log.Err(err).Msg("Server closed with error")
	}
}
