package main

import (
	"TrafficParser/pkg/pcap"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

func main() {
	outputFile := flag.String("o", "pcap_files/sample_traffic.pcap", "Output capture file path (.pcap or .pcapng)")
	extra := flag.Int("c", 0, "Number of random TCP/UDP packets to append after the sample traffic")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for the extra packets")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	start := time.Now().UTC()
	frames, err := pcap.SampleFrames(start)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build sample frames")
	}

	rng := rand.New(rand.NewSource(*seed))
	last := frames[len(frames)-1].Timestamp
	for i := 0; i < *extra; i++ {
		if (i+1)%100000 == 0 {
			log.Info().Int("generated", i+1).Msg("Generating packets")
		}
		data, err := randomFrame(rng)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build random frame")
		}
		last = last.Add(time.Duration(rng.Intn(1000)+1) * time.Microsecond)
		frames = append(frames, pcap.SynthFrame{Timestamp: last, Data: data})
	}

	if dir := filepath.Dir(*outputFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatal().Err(err).Msg("Failed to create output directory")
		}
	}
	if err := pcap.WriteCaptureFile(*outputFile, frames); err != nil {
		log.Fatal().Err(err).Str("path", *outputFile).Msg("Failed to write capture")
	}
	log.Info().Int("packets", len(frames)).Str("path", *outputFile).Msg("Capture written")
}

func randomIP(rng *rand.Rand) string {
	return fmt.Sprintf("10.%d.%d.%d", rng.Intn(256), rng.Intn(256), rng.Intn(254)+1)
}

func randomFrame(rng *rand.Rand) ([]byte, error) {
	src, dst := randomIP(rng), randomIP(rng)
	sport := uint16(rng.Intn(65535-1024) + 1024)
	dport := uint16(rng.Intn(65535-1024) + 1024)
	payload := make([]byte, rng.Intn(1400)+50)
	rng.Read(payload)

	if rng.Intn(4) == 0 {
		return pcap.UDPFrame(src, dst, sport, dport, payload)
	}
	return pcap.TCPFrame(src, dst, sport, dport, payload)
}
