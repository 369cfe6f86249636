package main

import (
	"TrafficParser/internal/protocol"
	"TrafficParser/pkg/pcap"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func main() {
	limit := flag.Int("n", 5, "Number of frames to print, 0 for all")
	flag.Parse()
	if flag.NArg() < 1 {
		fmt.Println("Usage: go run ./scripts/pcapana [-n N] <path_to_capture_file>")
		os.Exit(1)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	reader, err := pcap.NewReader(flag.Arg(0), *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open capture")
	}
	defer reader.Close()

	for {
		frame, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Error().Err(err).Msg("Capture is corrupt")
			break
		}

		record, err := protocol.ExtractRecord(frame)
		if err != nil {
			fmt.Printf("#%d dropped: %v\n", frame.Index, err)
			continue
		}
		src, dst := record.SourceIP, record.DestinationIP
		if record.SourcePort != nil {
			src = fmt.Sprintf("%s:%d", src, *record.SourcePort)
		}
		if record.DestinationPort != nil {
			dst = fmt.Sprintf("%s:%d", dst, *record.DestinationPort)
		}
		fmt.Printf("#%d [%s] %s -> %s proto=%s len=%d meta=%v\n",
			frame.Index,
			record.Timestamp.Format("15:04:05.000000"),
			src, dst, record.Protocol, record.PacketSize, record.Metadata,
		)
	}
	log.Info().Int("read", reader.Read()).Int("skipped", reader.Skipped()).Msg("Done")
}
