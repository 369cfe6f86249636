package main

import (
	"TrafficParser/internal/model"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Queries a running `traffic-parser serve` and prints the statistics for the
// given filters, or the matching packets with -packets.
func main() {
	addr := flag.String("addr", "http://localhost:8080", "Base URL of the API server")
	protocol := flag.String("protocol", "", "Protocol filter")
	ip := flag.String("ip", "", "IP filter")
	port := flag.String("port", "", "Port filter, comma separated")
	since := flag.String("since", "", "Earliest capture time")
	until := flag.String("until", "", "Latest capture time")
	packets := flag.Bool("packets", false, "Print the matching packets instead of statistics")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	q := url.Values{}
	for key, v := range map[string]string{"protocol": *protocol, "ip": *ip, "port": *port, "since": *since, "until": *until} {
		if v != "" {
			q.Set(key, v)
		}
	}
	path := "/api/v1/statistics"
	if *packets {
		path = "/api/v1/packets"
	}
	target := *addr + path + "?" + q.Encode()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build request")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal().Err(err).Str("url", target).Msg("Request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		log.Fatal().Int("status", resp.StatusCode).Str("body", string(body)).Msg("API returned an error")
	}

	if *packets {
		var bundle model.ExportBundle
		if err := json.Unmarshal(body, &bundle); err != nil {
			log.Fatal().Err(err).Msg("Failed to decode bundle")
		}
		for _, p := range bundle.Packets {
			fmt.Printf("%d %s %s %s -> %s %d\n", p.ID, p.Timestamp.Format(time.RFC3339Nano), p.Protocol, p.SourceIP, p.DestinationIP, p.PacketSize)
		}
		log.Info().Int("packets", bundle.Metadata.TotalPackets).Msg("Done")
		return
	}

	var report model.StatisticsReport
	if err := json.Unmarshal(body, &report); err != nil {
		log.Fatal().Err(err).Msg("Failed to decode statistics")
	}
	out, _ := json.MarshalIndent(report.Statistics, "", "  ")
	fmt.Println(string(out))
}
